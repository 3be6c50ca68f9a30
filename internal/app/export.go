package app

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"

	"taxtrail/internal/service"
)

// Export renders the tax-by-region summary in every requested format.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" && opts.XLSXPath == "" && opts.PDFPath == "" {
		return errors.New("at least one of --csv, --png, --xlsx or --pdf must be provided")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rows, err := a.newServices(store).reports.TaxSummaryByRegion(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		a.Logger.Info().Msg("no tax contributions to export")
		return nil
	}

	maxRows := a.Config.ResolveMaxRows(opts.MaxRows)
	if len(rows) > maxRows {
		a.Logger.Warn().Int("total", len(rows)).Int("max_rows", maxRows).Msg("export truncated")
		rows = rows[:maxRows]
	}
	a.Logger.Info().Int("rows", len(rows)).Msg("exporting tax summary")

	generated := a.now().UTC()
	writers := []struct {
		path  string
		write func(io.Writer) error
	}{
		{opts.CSVPath, func(w io.Writer) error { return writeTaxCSV(w, rows) }},
		{opts.PNGPath, func(w io.Writer) error { return writeTaxPNG(w, rows) }},
		{opts.XLSXPath, func(w io.Writer) error { return writeTaxXLSX(w, rows, generated) }},
		{opts.PDFPath, func(w io.Writer) error { return writeTaxPDF(w, rows, generated) }},
	}
	for _, out := range writers {
		if out.path == "" {
			continue
		}
		if err := writeFile(out.path, out.write); err != nil {
			return fmt.Errorf("export %s: %w", out.path, err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return file.Close()
}

var taxHeader = []string{"region_id", "region_name", "total_tax", "contributions"}

func writeTaxCSV(w io.Writer, rows []service.RegionTaxTotal) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(taxHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.RegionID,
			row.RegionName,
			row.TotalTax.StringFixed(2),
			strconv.Itoa(row.Count),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTaxPNG(w io.Writer, rows []service.RegionTaxTotal) error {
	bars := make([]chart.Value, 0, len(rows))
	top := decimal.Zero
	for _, row := range rows {
		bars = append(bars, chart.Value{Label: row.RegionName, Value: row.TotalTax.InexactFloat64()})
		top = decimal.Max(top, row.TotalTax)
	}
	ceiling := top.InexactFloat64() * 1.1
	if ceiling <= 0 {
		ceiling = 1
	}

	graph := chart.BarChart{
		Title:    "Tax contributions by region",
		Width:    1280,
		Height:   720,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Name:  "Total tax",
			Range: &chart.ContinuousRange{Min: 0, Max: ceiling},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

func writeTaxXLSX(w io.Writer, rows []service.RegionTaxTotal, generated time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "tax_by_region"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	_ = f.SetCellValue(sheet, "A1", "Region ID")
	_ = f.SetCellValue(sheet, "B1", "Region")
	_ = f.SetCellValue(sheet, "C1", "Total Tax")
	_ = f.SetCellValue(sheet, "D1", "Contributions")
	total := decimal.Zero
	for i, row := range rows {
		r := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", r), row.RegionID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", r), row.RegionName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", r), row.TotalTax.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", r), row.Count)
		total = total.Add(row.TotalTax)
	}
	last := len(rows) + 3
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", last), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", last), total.InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", last+1), "Generated")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", last+1), generated.Format(time.RFC3339))

	return f.Write(w)
}

func writeTaxPDF(w io.Writer, rows []service.RegionTaxTotal, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Tax Contributions by Region")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Region", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Total Tax", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Contributions", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	total := decimal.Zero
	for _, row := range rows {
		pdf.CellFormat(70, 6, row.RegionName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, row.TotalTax.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, strconv.Itoa(row.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
		total = total.Add(row.TotalTax)
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 6, total.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	return pdf.Output(w)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

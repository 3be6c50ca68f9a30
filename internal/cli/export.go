package cli

import (
	"github.com/spf13/cobra"

	"taxtrail/internal/app"
)

var exportOpts app.ExportOptions

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the tax-by-region summary as CSV, PNG, XLSX and/or PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), exportOpts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOpts.CSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportOpts.PNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportOpts.XLSXPath, "xlsx", "", "Path to write an XLSX workbook")
	exportCmd.Flags().StringVar(&exportOpts.PDFPath, "pdf", "", "Path to write a PDF report")
	exportCmd.Flags().IntVar(&exportOpts.MaxRows, "max-rows", 0, "Maximum rows to export (defaults to config)")
}

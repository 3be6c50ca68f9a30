package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"taxtrail/internal/service"
)

// Show prints the budget-by-sector summary.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	totals, err := a.newServices(store).reports.BudgetSummaryBySector(ctx)
	if err != nil {
		return err
	}
	if opts.Limit > 0 && len(totals) > opts.Limit {
		totals = totals[:opts.Limit]
	}
	return renderBudgetTable(a.Out, totals)
}

func renderBudgetTable(out io.Writer, totals []service.SectorBudgetTotal) error {
	if len(totals) == 0 {
		_, err := fmt.Fprintln(out, "no budget allocations found")
		return err
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(writer, "Sector\tAllocated\tAllocations\t")
	for _, row := range totals {
		fmt.Fprintf(writer, "%s\t%s\t%d\t\n", sanitizeInline(row.Sector), row.TotalAllocated.StringFixed(2), row.Count)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}

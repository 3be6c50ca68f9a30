package cli

import (
	"github.com/spf13/cobra"

	"taxtrail/internal/app"
)

var simulateOpts app.SimulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Evaluate the decision tables offline for given inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		simulateOpts.HasBenchmark = cmd.Flags().Changed("benchmark")
		_, err := getApp().Simulate(cmd.Context(), simulateOpts)
		return err
	},
}

func init() {
	flags := simulateCmd.Flags()
	flags.StringVar(&simulateOpts.Country, "country", "", "Country label (defaults to worldbank.benchmark_country)")
	flags.Float64Var(&simulateOpts.Gini, "gini", 0, "Gini index")
	flags.IntVar(&simulateOpts.Programs, "programs", 0, "Number of recorded social programs")
	flags.StringVar(&simulateOpts.Region, "region", "", "Region label")
	flags.Float64Var(&simulateOpts.PovertyRate, "poverty-rate", 0, "Local poverty rate (%)")
	flags.Float64Var(&simulateOpts.Benchmark, "benchmark", 0, "Global benchmark (defaults to the offline value)")
	flags.BoolVar(&simulateOpts.Notify, "notify", false, "Send alerts for verdicts that would notify")
}

package cli

import (
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis against live indicators and stored records",
}

var analyzeInequalityCmd = &cobra.Command{
	Use:   "inequality <country>",
	Short: "Compare a country's Gini index with recorded social programs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AnalyzeInequality(cmd.Context(), args[0])
	},
}

var analyzeSDGCmd = &cobra.Command{
	Use:   "sdg <region>",
	Short: "Compare a region's latest poverty rate with the global benchmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AnalyzeSDG(cmd.Context(), args[0])
	},
}

func init() {
	analyzeCmd.AddCommand(analyzeInequalityCmd)
	analyzeCmd.AddCommand(analyzeSDGCmd)
}

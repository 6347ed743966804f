package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/samreport-cli/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the model catalog used for prompt-size and cost estimates",
	Example: `  samreport models
  samreport config set model_catalog ./models.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tCONTEXT\tIN $/1K\tOUT $/1K")
		for _, name := range ai.ModelNames() {
			mi, _ := ai.LookupModel(name)
			fmt.Fprintf(tw, "%s\t%d\t%.5f\t%.5f\n", name, mi.ContextTokens, mi.InputPerK, mi.OutputPerK)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, p := range ai.Providers() {
			if m, ok := ai.DefaultModel(p); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "default for %s: %s\n", p, m)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/samreport-cli/internal/render"
)

var ovClassify bool

var overviewCmd = &cobra.Command{
	Use:   "overview <qa-file>",
	Short: "Show survey period, participants, monthly trend, top topics and answer status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		ds, err := s.Snapshot().RequirePrimary()
		if err != nil {
			return err
		}
		rep := render.BuildOverview(ds)
		if ovClassify {
			sum, err := newSummarizer()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			c, err := sum.ClassifyAnswers(ctx, ds)
			if err != nil {
				rep.Notices = append(rep.Notices, err.Error())
			} else {
				rep.Classification = c
			}
		}
		return writeOutput(cmd, rep)
	},
}

func init() {
	rootCmd.AddCommand(overviewCmd)
	overviewCmd.Flags().BoolVar(&ovClassify, "classify", false, "classify sampled answered/unanswered questions with the LLM")
}

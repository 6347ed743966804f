package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/render"
)

var (
	orgG1        string
	orgG2        string
	orgG3        string
	orgLevel     string
	orgSummarize bool
)

var orgCmd = &cobra.Command{
	Use:   "org <qa-file>",
	Short: "Drill down by center/division/team and count questions per group",
	Long: `org narrows the question log by up to three nested organization levels and counts
questions and distinct users per group. Each level offers only the values present under the
levels selected above it; "all" (the default) leaves a level open.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var lvl dataset.Level
		if orgLevel != "" {
			l, err := dataset.ParseLevel(orgLevel)
			if err != nil {
				return err
			}
			lvl = l
		}
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		sn := s.Snapshot()
		ds, err := sn.RequirePrimary()
		if err != nil {
			return err
		}
		sel := analysis.Selection{G1: orgG1, G2: orgG2, G3: orgG3}
		rep, err := render.BuildOrg(ds, sn.Companion, sel, lvl)
		if err != nil {
			return err
		}
		if orgSummarize {
			sum, err := newSummarizer()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			res := sum.OrgReport(ctx, rep.Profile)
			rep.Summary = &res
		}
		return writeOutput(cmd, rep)
	},
}

func init() {
	rootCmd.AddCommand(orgCmd)
	f := orgCmd.Flags()
	f.StringVar(&orgG1, "g1", analysis.All, "center (group_1) value or all")
	f.StringVar(&orgG2, "g2", analysis.All, "division (group_2) value or all")
	f.StringVar(&orgG3, "g3", analysis.All, "team (group_3) value or all")
	f.StringVar(&orgLevel, "level", "", "grouping level: group_1|group_2|group_3 (default: coarsest permitted)")
	f.BoolVar(&orgSummarize, "summarize", false, "generate an organization report with the LLM")
}

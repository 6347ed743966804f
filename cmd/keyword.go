package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/render"
)

var kwKeyword string

var keywordCmd = &cobra.Command{
	Use:   "keyword <qa-file> --keyword K",
	Short: "Find questions/answers containing a keyword, the centers asking, and related learning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if kwKeyword == "" {
			return analysis.ErrEmptyKeyword
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
		rep, err := analysis.BuildKeywordReport(ds, sn.Companion, kwKeyword)
		if err != nil {
			return err
		}
		return writeOutput(cmd, render.Keyword{KeywordReport: rep})
	},
}

func init() {
	rootCmd.AddCommand(keywordCmd)
	keywordCmd.Flags().StringVarP(&kwKeyword, "keyword", "k", "", "keyword to search for (case-sensitive)")
}

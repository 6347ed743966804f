package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/render"
)

var (
	userID        string
	userSummarize bool
)

var userCmd = &cobra.Command{
	Use:   "user <qa-file> [--id ID]",
	Short: "List users, or show one user's questions and learning history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		sn := s.Snapshot()
		ds, err := sn.RequirePrimary()
		if err != nil {
			return err
		}
		if userID == "" {
			if err := ds.Require("user directory", dataset.ColUserID); err != nil {
				return err
			}
			return writeOutput(cmd, render.NewUsers(ds))
		}
		up, err := analysis.BuildUserProfile(ds, sn.Companion, dataset.UserIDFromDisplay(userID))
		if err != nil {
			return err
		}
		rep := &render.User{Profile: up}
		if userSummarize {
			sum, err := newSummarizer()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			res := sum.UserProfile(ctx, up)
			rep.Summary = &res
		}
		return writeOutput(cmd, rep)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.Flags().StringVar(&userID, "id", "", `user id, or a directory entry like "1023 / Kim"`)
	userCmd.Flags().BoolVar(&userSummarize, "summarize", false, "generate a learning-profile analysis with the LLM")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/samreport-cli/internal/api"
	"github.com/KaramelBytes/samreport-cli/internal/session"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [qa-file]",
	Short: "Serve the reports as a JSON HTTP API (files can also be uploaded)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			s   *session.Session
			err error
		)
		if len(args) == 1 {
			s, err = loadSession(args[0])
			if err != nil {
				return err
			}
		} else {
			s = session.New(logger)
		}
		sum, err := newSummarizer()
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" && cfg != nil {
			addr = cfg.ServerAddr
		}
		if addr == "" {
			addr = "127.0.0.1:8080"
		}
		var origins []string
		if cfg != nil {
			origins = cfg.CORSOrigins
		}
		srv := api.NewServer(api.Options{
			Session:     s,
			Summarizer:  sum,
			Logger:      logger,
			CORSOrigins: origins,
		})
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Serving session %s on http://%s\n", s.ID, addr)
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			logger.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config server_addr)")
}

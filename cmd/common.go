package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/render"
	"github.com/KaramelBytes/samreport-cli/internal/session"
	"github.com/KaramelBytes/samreport-cli/internal/utils"
)

// loadSession reads the question file and, when --learning is set, the
// learning-history file into a new session.
func loadSession(qaPath string) (*session.Session, error) {
	s := session.New(logger)
	opt, err := readOptions()
	if err != nil {
		return nil, err
	}
	if err := loadInto(qaPath, func(name string, data []byte) error {
		ds, err := s.LoadPrimary(name, data, opt)
		if err == nil {
			warn(ds.Warnings)
		}
		return err
	}); err != nil {
		return nil, err
	}
	if flagLearning != "" {
		if err := loadInto(flagLearning, func(name string, data []byte) error {
			c, err := s.LoadCompanion(name, data, learningOptions())
			if err == nil {
				warn(c.Warnings)
			}
			return err
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func loadInto(path string, load func(name string, data []byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &dataset.FileError{Path: path, Err: err}
	}
	return load(filepath.Base(path), data)
}

func warn(msgs []string) {
	for _, m := range msgs {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", m)
	}
}

// writeOutput renders doc in --format to --output or the command's stdout.
func writeOutput(cmd *cobra.Command, doc render.Document) error {
	f, err := render.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	b, err := render.Bytes(f, doc)
	if err != nil {
		return err
	}
	if flagOutput == "" {
		if _, err := cmd.OutOrStdout().Write(b); err != nil {
			return err
		}
		if len(b) > 0 && b[len(b)-1] != '\n' {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	}
	if err := utils.SafeWriteFile(flagOutput, b); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Report written to %s\n", flagOutput)
	return nil
}

// signalContext is cancelled on Ctrl-C so LLM calls and the server stop promptly.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

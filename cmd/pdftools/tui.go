package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/tui"
	"github.com/spf13/cobra"
)

func newTUICmd() *cobra.Command {
	var (
		delay       time.Duration
		catalogPath string
		logFile     string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the PDF tools flow in the terminal",
		Long: `Runs the select / upload / process / download flow in the terminal.

Keys: ↑/↓ and enter pick a tool, f enters comma-separated file paths,
p processes, d downloads once completed, q quits.`,
		Example: `  pdftools tui
  pdftools tui --delay 500ms --log-file pdftools.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}

			// The terminal belongs to the TUI, so logs go to a file or nowhere
			var w io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))

			ctrl := flow.New(cat, flow.WithDelay(delay), flow.WithLogger(logger))
			defer ctrl.Close()

			return tui.Run(ctrl, cat)
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", flow.DefaultProcessDelay, "Simulated processing time")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Path to a YAML tool catalog (default: built-in)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	return cmd
}

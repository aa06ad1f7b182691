package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "pdftools.config"

// NewRootCmd builds the pdftools command tree
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdftools",
		Short: "PDF tools workflow server and terminal client",
		Long: `pdftools serves the PDF Tools page and its session API, or runs the same
select / upload / process / download flow in the terminal.

Processing is simulated: files are never read and no output is produced.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().String("config", defaultConfigPath, "Path to the XML configuration file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTUICmd())
	cmd.AddCommand(newToolsCmd())

	return cmd
}

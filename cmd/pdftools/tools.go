package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	var (
		catalogPath string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available PDF tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalogPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cat.Tools())
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION\tFEATURES")
			for _, t := range cat.Tools() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Description, strings.Join(t.Features, ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Path to a YAML tool catalog (default: built-in)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")

	return cmd
}

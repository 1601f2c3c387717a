package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geostac/geosync/internal/check"
	"github.com/geostac/geosync/internal/checksum"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize each collection's working copy state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		collection, _ := cmd.Flags().GetString("collection")
		cols, err := selectCollections(ws, collection)
		if err != nil {
			return err
		}

		scanner, done := newScanner(ws)
		defer done()

		type row struct {
			Collection string `json:"collection"`
			Version    string `json:"version,omitempty"`
			New        int    `json:"new"`
			Modified   int    `json:"modified"`
			Missing    int    `json:"missing"`
			Breaking   bool   `json:"breaking,omitempty"`
		}
		var rows []row

		for _, col := range cols {
			result, err := scanner.Scan(cmd.Context(), col.Dir)
			if err != nil {
				return err
			}
			report, err := check.Run(col, result)
			if err != nil {
				return err
			}

			r := row{
				Collection: col.Name,
				Version:    report.CurrentVersion,
				Missing:    len(report.Missing),
				Breaking:   len(report.Breaking) > 0,
			}
			for _, s := range report.Statuses {
				switch s.Reason {
				case checksum.NewFile:
					r.New++
				case checksum.ContentChanged, checksum.SchemaChanged:
					r.Modified++
				}
			}
			if report.SchemaDrift && r.Modified == 0 && r.New == 0 {
				r.Modified++ // the sidecar itself moved
			}
			rows = append(rows, r)
		}

		if jsonOutput() {
			return printJSON(cmd, rows)
		}
		for _, r := range rows {
			var parts []string
			if r.New > 0 {
				parts = append(parts, plural(r.New, "new file"))
			}
			if r.Modified > 0 {
				parts = append(parts, plural(r.Modified, "modified file"))
			}
			if r.Missing > 0 {
				parts = append(parts, plural(r.Missing, "missing file"))
			}
			state := "clean"
			if len(parts) > 0 {
				state = strings.Join(parts, ", ")
			}
			if r.Breaking {
				state += " [breaking schema change]"
			}
			cmd.Printf("%-24s %-12s %s\n", r.Collection, orUnversioned(r.Version), state)
		}
		return nil
	},
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func init() {
	statusCmd.Flags().String("collection", "", "limit to one collection")
}

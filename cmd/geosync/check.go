package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/check"
	"github.com/geostac/geosync/internal/checksum"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare the working copy against the last recorded version",
	Long: "Compare each collection's files and schema against its most recent\n" +
		"recorded version. With --fix, record a new version capturing the drift.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		collection, _ := cmd.Flags().GetString("collection")
		fix, _ := cmd.Flags().GetBool("fix")
		message, _ := cmd.Flags().GetString("message")

		cols, err := selectCollections(ws, collection)
		if err != nil {
			return err
		}
		if fix {
			if err := ws.Lock(); err != nil {
				return err
			}
			defer ws.Unlock()
		}

		scanner, done := newScanner(ws)
		defer done()

		var reports []*check.Report
		for _, col := range cols {
			result, err := scanner.Scan(cmd.Context(), col.Dir)
			if err != nil {
				return err
			}
			report, err := check.Run(col, result)
			if err != nil {
				return err
			}
			reports = append(reports, report)

			if fix && report.Stale() {
				_, entry, err := col.RecordVersion(result, message)
				if errors.Is(err, catalog.ErrNoChanges) {
					continue
				}
				if err != nil {
					return err
				}
				report.CurrentVersion = entry.Version
			}
		}

		if jsonOutput() {
			return printJSON(cmd, reports)
		}
		for _, r := range reports {
			printReport(cmd, r, fix)
		}
		return nil
	},
}

func printReport(cmd *cobra.Command, r *check.Report, fixed bool) {
	for _, s := range r.Statuses {
		if s.Reason == checksum.MtimeUnchanged || s.Reason == checksum.TouchedUnchanged {
			continue
		}
		cmd.Printf("%s  %-40s %s\n", r.Collection, s.Href, s.Reason)
	}
	for _, name := range r.Missing {
		cmd.Printf("%s  %-40s missing\n", r.Collection, name)
	}
	for _, href := range r.Unsupported {
		cmd.Printf("%s  %-40s unsupported format\n", r.Collection, href)
	}
	for _, b := range r.Breaking {
		cmd.Printf("%s  breaking: %s\n", r.Collection, b.String())
	}

	switch {
	case fixed && r.Stale():
		// RecordVersion updated CurrentVersion in the report
		cmd.Printf("%s: recorded %s\n", r.Collection, r.CurrentVersion)
	case r.Stale():
		cmd.Printf("%s: drift since %s, run 'geosync check --fix' to record %s\n",
			r.Collection, orUnversioned(r.CurrentVersion), r.NextVersion)
	default:
		cmd.Printf("%s: clean at %s\n", r.Collection, orUnversioned(r.CurrentVersion))
	}
}

func orUnversioned(v string) string {
	if v == "" {
		return "unversioned"
	}
	return v
}

func init() {
	checkCmd.Flags().String("collection", "", "limit to one collection")
	checkCmd.Flags().Bool("fix", false, "record a new version when drift is found")
	checkCmd.Flags().StringP("message", "m", "", "message for the recorded version")
}

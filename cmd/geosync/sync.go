package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/geostac/geosync/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync [dest]",
	Short: "Pull, record local changes, and push in one pass",
	Long: "Run the full cycle for each collection: pull remote versions, scan the\n" +
		"working copy, record drift as a new version (with --fix), then push.\n" +
		"Stages after a failed one are skipped and reported.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		collection, _ := cmd.Flags().GetString("collection")
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		fix, _ := cmd.Flags().GetBool("fix")
		message, _ := cmd.Flags().GetString("message")

		cols, err := selectCollections(ws, collection)
		if err != nil {
			return err
		}
		if err := ws.Lock(); err != nil {
			return err
		}
		defer ws.Unlock()

		dest := ""
		if len(args) == 1 {
			dest = args[0]
		}
		client, err := connectClient(cmd.Context(), ws, dest)
		if err != nil {
			return err
		}

		opts := sync.SyncOptions{Force: force, DryRun: dryRun, Fix: fix, Message: message}
		var results []*sync.SyncResult
		var errs []error
		for _, col := range cols {
			res, err := client.Sync(cmd.Context(), ws, col, opts)
			if res != nil {
				results = append(results, res)
			}
			if err != nil {
				errs = append(errs, err)
			}
		}

		if jsonOutput() {
			if err := printJSON(cmd, results); err != nil {
				return err
			}
			return errors.Join(errs...)
		}
		for _, res := range results {
			printSyncResult(cmd, res)
		}
		return errors.Join(errs...)
	},
}

func printSyncResult(cmd *cobra.Command, res *sync.SyncResult) {
	cmd.Printf("%s:\n", res.Collection)
	for _, st := range res.Stages {
		mark := "ok"
		switch st.Status {
		case sync.StageFailed:
			mark = "failed"
		case sync.StageSkipped:
			mark = "skipped"
		}
		if st.Detail != "" {
			cmd.Printf("  %-7s %-7s %s\n", st.Name, mark, st.Detail)
		} else {
			cmd.Printf("  %-7s %s\n", st.Name, mark)
		}
		if st.Status == sync.StageFailed {
			printConflictHint(cmd, st.Err)
		}
	}
}

func init() {
	syncCmd.Flags().String("collection", "", "limit to one collection")
	syncCmd.Flags().Bool("force", false, "override conflict and dirty guards")
	syncCmd.Flags().Bool("dry-run", false, "plan only, transfer and record nothing")
	syncCmd.Flags().Bool("fix", false, "record unversioned drift before pushing")
	syncCmd.Flags().StringP("message", "m", "", "message for the recorded version")
}

package main

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/geostac/geosync/internal/sync"
)

var pullCmd = &cobra.Command{
	Use:   "pull [dest]",
	Short: "Fetch remote versions into the catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		collection, _ := cmd.Flags().GetString("collection")
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

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

		var results []*sync.PullResult
		var errs []error
		for _, col := range cols {
			res, err := client.Pull(cmd.Context(), col, sync.PullOptions{Force: force, DryRun: dryRun})
			if err != nil {
				cmd.PrintErrf("%s: %v\n", col.Name, err)
				printConflictHint(cmd, err)
				errs = append(errs, err)
				continue
			}
			results = append(results, res)
		}

		if jsonOutput() {
			if err := printJSON(cmd, results); err != nil {
				return err
			}
			return errors.Join(errs...)
		}
		for _, res := range results {
			printPullResult(cmd, res)
		}
		return errors.Join(errs...)
	},
}

func printPullResult(cmd *cobra.Command, res *sync.PullResult) {
	switch {
	case res.DryRun:
		var total uint64
		for _, t := range res.Transfers {
			total += uint64(t.SizeBytes)
		}
		cmd.Printf("%s: %s, would download %d assets (%s)\n",
			res.Collection, res.State, len(res.Transfers), humanize.Bytes(total))
	case !res.Merged:
		cmd.Printf("%s: up to date at %s\n", res.Collection, orUnversioned(res.LocalVersion))
	default:
		cmd.Printf("%s: pulled %s, %d downloaded, %d skipped\n",
			res.Collection, res.RemoteVersion, res.Downloaded, res.Skipped)
	}
}

func init() {
	pullCmd.Flags().String("collection", "", "limit to one collection")
	pullCmd.Flags().Bool("force", false, "overwrite local changes and divergent history")
	pullCmd.Flags().Bool("dry-run", false, "plan only, transfer nothing")
}

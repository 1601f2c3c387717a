package main

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/geostac/geosync/internal/sync"
)

var pushCmd = &cobra.Command{
	Use:   "push [dest]",
	Short: "Publish local versions to a remote",
	Long: "Publish each collection's local-only versions to the remote. dest is\n" +
		"a configured remote name or a URL; omitted, the default remote is used.",
	Args: cobra.MaximumNArgs(1),
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

		var results []*sync.PushResult
		var errs []error
		for _, col := range cols {
			res, err := client.Push(cmd.Context(), col, sync.PushOptions{Force: force, DryRun: dryRun})
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
			printPushResult(cmd, res)
		}
		return errors.Join(errs...)
	},
}

func printPushResult(cmd *cobra.Command, res *sync.PushResult) {
	switch {
	case res.DryRun:
		var total uint64
		for _, t := range res.Transfers {
			total += uint64(t.SizeBytes)
		}
		cmd.Printf("%s: %s, would upload %d assets (%s)\n",
			res.Collection, res.State, len(res.Transfers), humanize.Bytes(total))
	case !res.Published:
		cmd.Printf("%s: up to date at %s\n", res.Collection, orUnversioned(res.LocalVersion))
	default:
		cmd.Printf("%s: pushed %s, %d uploaded, %d skipped\n",
			res.Collection, res.LocalVersion, res.Uploaded, res.Skipped)
	}
}

func printConflictHint(cmd *cobra.Command, err error) {
	switch {
	case errors.Is(err, sync.ErrUnrelatedHistories):
		cmd.PrintErrln("  local and remote histories are unrelated; check the remote and " +
			"prefix, or pass --force to overwrite")
	case errors.Is(err, sync.ErrPushConflict):
		cmd.PrintErrln("  the remote moved; run 'geosync pull' first, or pass --force to overwrite")
	case errors.Is(err, sync.ErrPullConflict):
		cmd.PrintErrln("  local history diverged; push it, discard it with 'pull --force', " +
			"or resolve by hand")
	case errors.Is(err, sync.ErrUncommittedChanges):
		cmd.PrintErrln("  record the changes with 'geosync commit', revert them, or pass --force")
	}
}

func init() {
	pushCmd.Flags().String("collection", "", "limit to one collection")
	pushCmd.Flags().Bool("force", false, "publish even when the remote diverged")
	pushCmd.Flags().Bool("dry-run", false, "plan only, transfer nothing")
}

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/geostac/geosync/internal/catalog"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record a new version of each changed collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		collection, _ := cmd.Flags().GetString("collection")
		message, _ := cmd.Flags().GetString("message")

		cols, err := selectCollections(ws, collection)
		if err != nil {
			return err
		}
		if err := ws.Lock(); err != nil {
			return err
		}
		defer ws.Unlock()

		scanner, done := newScanner(ws)
		defer done()

		recorded := 0
		for _, col := range cols {
			result, err := scanner.Scan(cmd.Context(), col.Dir)
			if err != nil {
				return err
			}
			_, entry, err := col.RecordVersion(result, message)
			if errors.Is(err, catalog.ErrNoChanges) {
				cmd.Printf("%s: nothing to record\n", col.Name)
				continue
			}
			if err != nil {
				return err
			}
			recorded++
			breaking := ""
			if entry.Breaking {
				breaking = " (breaking)"
			}
			cmd.Printf("%s: recorded %s%s, %d files changed\n",
				col.Name, entry.Version, breaking, len(entry.Changes))
		}
		if recorded == 0 {
			cmd.Println("working copies match their recorded versions")
		}
		return nil
	},
}

func init() {
	commitCmd.Flags().String("collection", "", "limit to one collection")
	commitCmd.Flags().StringP("message", "m", "", "describe what changed")
}

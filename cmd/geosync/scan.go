package main

import (
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/scan"
)

// newScanner builds a scanner backed by the workspace checksum cache. A
// broken cache degrades to hashing everything.
func newScanner(ws *catalog.Workspace) (*scan.Scanner, func()) {
	cache := scan.NewChecksumCache(ws.CachePath)
	closer := func() {}
	if err := cache.Open(); err != nil {
		slog.Warn("checksum cache unavailable, hashing everything", "error", err)
		cache = nil
	} else {
		closer = func() { cache.Close() }
	}
	return &scan.Scanner{Cache: cache, Workers: viper.GetInt("workers")}, closer
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Enumerate and checksum the data files of each collection",
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

		type output struct {
			Collection  string       `json:"collection"`
			Entries     []scan.Entry `json:"entries"`
			Unsupported []string     `json:"unsupported,omitempty"`
		}
		var outputs []output

		for _, col := range cols {
			result, err := scanner.Scan(cmd.Context(), col.Dir)
			if err != nil {
				return err
			}
			outputs = append(outputs, output{
				Collection:  col.Name,
				Entries:     result.Entries,
				Unsupported: result.Unsupported,
			})
		}

		if jsonOutput() {
			return printJSON(cmd, outputs)
		}
		for _, out := range outputs {
			var total uint64
			for _, e := range out.Entries {
				total += uint64(e.Size)
				cmd.Printf("%s  %-40s %10s  %s\n", out.Collection, e.Href,
					humanize.Bytes(uint64(e.Size)), e.SHA256[:12])
			}
			for _, href := range out.Unsupported {
				cmd.Printf("%s  %-40s  unsupported format\n", out.Collection, href)
			}
			cmd.Printf("%s: %d data files, %s\n", out.Collection, len(out.Entries), humanize.Bytes(total))
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().String("collection", "", "limit to one collection")
}

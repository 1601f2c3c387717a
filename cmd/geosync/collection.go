package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections in the catalog",
}

var collectionAddCmd = &cobra.Command{
	Use:   "add <name>...",
	Short: "Create one or more collections",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		if err := ws.Lock(); err != nil {
			return err
		}
		defer ws.Unlock()

		for _, name := range args {
			col, err := ws.InitCollection(name)
			if err != nil {
				return err
			}
			cmd.Printf("collection %s at %s\n", col.Name, col.Dir)
		}
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections and their current versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		cols, err := ws.Collections()
		if err != nil {
			return err
		}

		type row struct {
			Name    string `json:"name"`
			Version string `json:"version,omitempty"`
			Assets  int    `json:"assets"`
		}
		var rows []row
		for _, col := range cols {
			l, err := col.Ledger()
			if err != nil {
				return err
			}
			r := row{Name: col.Name, Version: l.CurrentVersion}
			if latest := l.Latest(); latest != nil {
				r.Assets = len(latest.Assets)
			}
			rows = append(rows, r)
		}

		if jsonOutput() {
			return printJSON(cmd, rows)
		}
		if len(rows) == 0 {
			cmd.Println("no collections")
			return nil
		}
		for _, r := range rows {
			version := r.Version
			if version == "" {
				version = "unversioned"
			}
			cmd.Println(fmt.Sprintf("%-24s %-12s %d assets", r.Name, version, r.Assets))
		}
		return nil
	},
}

func init() {
	collectionCmd.AddCommand(collectionAddCmd, collectionListCmd)
}

package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the version history of each collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		collection, _ := cmd.Flags().GetString("collection")
		limit, _ := cmd.Flags().GetInt("limit")

		cols, err := selectCollections(ws, collection)
		if err != nil {
			return err
		}

		for _, col := range cols {
			l, err := col.Ledger()
			if err != nil {
				return err
			}
			if jsonOutput() {
				if err := printJSON(cmd, l); err != nil {
					return err
				}
				continue
			}

			if len(l.Versions) == 0 {
				cmd.Printf("%s: no versions recorded\n", col.Name)
				continue
			}
			shown := 0
			for i := len(l.Versions) - 1; i >= 0; i-- {
				if limit > 0 && shown >= limit {
					break
				}
				v := l.Versions[i]
				flags := ""
				if v.Breaking {
					flags = "  BREAKING"
				}
				cmd.Printf("%s %s  %s (%s)%s\n", col.Name, v.Version,
					v.Created.Format("2006-01-02 15:04"), humanize.Time(v.Created), flags)
				if v.Message != "" {
					cmd.Printf("    %s\n", v.Message)
				}
				for _, name := range v.Changes {
					cmd.Printf("    ~ %s\n", name)
				}
				shown++
			}
		}
		return nil
	},
}

func init() {
	logCmd.Flags().String("collection", "", "limit to one collection")
	logCmd.Flags().IntP("limit", "n", 0, "show at most n versions per collection")
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/geostac/geosync/internal/catalog"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a catalog",
	Long:  "Create a geosync catalog in the current directory, or in dir.\nRunning it on an existing catalog is a no-op.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ws *catalog.Workspace
		var err error
		if len(args) == 1 {
			ws, err = catalog.NewWorkspace(args[0])
		} else {
			ws, err = openWorkspace()
		}
		if err != nil {
			return err
		}

		id, _ := cmd.Flags().GetString("id")
		description, _ := cmd.Flags().GetString("description")
		if err := ws.Init(id, description); err != nil {
			return err
		}
		cmd.Printf("catalog ready at %s\n", ws.Root)

		collections, _ := cmd.Flags().GetStringSlice("collection")
		for _, name := range collections {
			col, err := ws.InitCollection(name)
			if err != nil {
				return err
			}
			cmd.Printf("collection %s at %s\n", col.Name, col.Dir)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String("id", "", "catalog identifier (default: directory name)")
	initCmd.Flags().String("description", "", "catalog description")
	initCmd.Flags().StringSlice("collection", nil, "also create these collections")
}

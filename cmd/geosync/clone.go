package main

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/config"
	"github.com/geostac/geosync/internal/store"
	"github.com/geostac/geosync/internal/sync"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <remote> [dir]",
	Short: "Create a catalog from a remote and pull its collections",
	Long: "Initialize a fresh catalog directory, pull every collection found on\n" +
		"the remote (or just the ones named with --collection), and save the\n" +
		"remote as \"" + config.DefaultRemoteName + "\".",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := store.ParseRemote(args[0])
		if err != nil {
			return err
		}
		if remote.Scheme == "s3" {
			remote.Region = viper.GetString("s3_region")
			remote.Endpoint = viper.GetString("s3_endpoint")
			remote.AccessKey = viper.GetString("s3_access_key")
			remote.SecretKey = viper.GetString("s3_secret_key")
		}

		dir := cloneDir(remote)
		if len(args) == 2 {
			dir = args[1]
		}
		ws, err := catalog.NewWorkspace(dir)
		if err != nil {
			return err
		}
		if ws.Exists() {
			return fmt.Errorf("already a geosync catalog: %s", ws.Root)
		}
		if err := ws.Lock(); err != nil {
			return err
		}
		defer ws.Unlock()

		st, err := remote.Connect(cmd.Context())
		if err != nil {
			return fmt.Errorf("connect %s: %w", remote, err)
		}
		prefix := ""
		if remote.Scheme == "s3" {
			prefix = remote.Prefix
		}
		client := sync.NewClient(st, prefix)
		if w := viper.GetInt("workers"); w > 0 {
			client.Workers = w
		}

		collections, _ := cmd.Flags().GetStringSlice("collection")
		results, err := client.Clone(cmd.Context(), ws, collections)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(ws)
		if err != nil {
			return err
		}
		if err := cfg.SetRemote(config.DefaultRemoteName, args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}

		if jsonOutput() {
			return printJSON(cmd, results)
		}
		for _, res := range results {
			printPullResult(cmd, res)
		}
		cmd.Printf("cloned %d collections into %s\n", len(results), ws.Root)
		return nil
	},
}

// cloneDir picks a directory name from the remote when none is given,
// like git does from the repository URL.
func cloneDir(r *store.Remote) string {
	switch r.Scheme {
	case "s3":
		if r.Prefix != "" {
			return path.Base(r.Prefix)
		}
		return r.Bucket
	case "http", "https":
		return path.Base(r.BaseURL)
	default:
		return filepath.Base(r.Path)
	}
}

func init() {
	cloneCmd.Flags().StringSlice("collection", nil, "collections to clone (repeatable; default all)")
}

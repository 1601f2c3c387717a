package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geostac/geosync/internal/catalog"
	"github.com/geostac/geosync/internal/config"
	"github.com/geostac/geosync/internal/jsonutil"
	"github.com/geostac/geosync/internal/sync"
	"github.com/geostac/geosync/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "geosync",
	Short:         "Versioned geospatial data catalogs on object storage",
	Long:          "geosync keeps a local catalog of versioned geospatial collections\nin sync with object storage, with no server in between.",
	Version:       version.Detailed(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("dir", "C", ".", "catalog root directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "warnings and errors only")
	rootCmd.PersistentFlags().Bool("json", false, "machine-readable output")
	rootCmd.PersistentFlags().Int("workers", 0, "parallel workers for hashing and transfers")

	viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.SetEnvPrefix("GEOSYNC")
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		initCmd,
		collectionCmd,
		scanCmd,
		checkCmd,
		commitCmd,
		statusCmd,
		logCmd,
		pushCmd,
		pullCmd,
		syncCmd,
		cloneCmd,
		remoteCmd,
		versionCmd,
	)
}

func openWorkspace() (*catalog.Workspace, error) {
	return catalog.NewWorkspace(viper.GetString("dir"))
}

func openCatalog() (*catalog.Workspace, error) {
	ws, err := openWorkspace()
	if err != nil {
		return nil, err
	}
	if !ws.Exists() {
		return nil, fmt.Errorf("not a geosync catalog: %s (run 'geosync init' first)", ws.Root)
	}
	return ws, nil
}

func configPath(ws *catalog.Workspace) string {
	return filepath.Join(ws.MetadataDir, "config.json")
}

func loadConfig(ws *catalog.Workspace) (*config.Config, error) {
	return config.Load(configPath(ws))
}

// connectClient resolves dest (a remote name, a URL, or empty for the
// default remote) and opens a sync client against it.
func connectClient(ctx context.Context, ws *catalog.Workspace, dest string) (*sync.Client, error) {
	cfg, err := loadConfig(ws)
	if err != nil {
		return nil, err
	}
	remote, err := cfg.Resolve(dest)
	if err != nil {
		return nil, err
	}
	if remote.Scheme == "s3" {
		remote.Region = viper.GetString("s3_region")
		remote.Endpoint = viper.GetString("s3_endpoint")
		remote.AccessKey = viper.GetString("s3_access_key")
		remote.SecretKey = viper.GetString("s3_secret_key")
	}

	st, err := remote.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", remote, err)
	}

	prefix := ""
	if remote.Scheme == "s3" {
		prefix = remote.Prefix
	}
	client := sync.NewClient(st, prefix)
	if w := viper.GetInt("workers"); w > 0 {
		client.Workers = w
	} else {
		client.Workers = cfg.Workers
	}
	return client, nil
}

func selectCollections(ws *catalog.Workspace, name string) ([]*catalog.Collection, error) {
	return ws.Select(name)
}

func jsonOutput() bool {
	return viper.GetBool("json")
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Detailed())
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage named remotes",
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ws)
		if err != nil {
			return err
		}
		if err := cfg.SetRemote(args[0], args[1]); err != nil {
			return err
		}
		return cfg.Save()
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ws)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(cmd, cfg)
		}
		for _, name := range cfg.RemoteNames() {
			mark := " "
			if name == cfg.DefaultRemote {
				mark = "*"
			}
			cmd.Printf("%s %-16s %s\n", mark, name, cfg.Remotes[name])
		}
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a named remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ws)
		if err != nil {
			return err
		}
		if err := cfg.RemoveRemote(args[0]); err != nil {
			return err
		}
		return cfg.Save()
	},
}

var remoteDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openCatalog()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(ws)
		if err != nil {
			return err
		}
		if _, ok := cfg.Remotes[args[0]]; !ok {
			return fmt.Errorf("unknown remote %q", args[0])
		}
		cfg.DefaultRemote = args[0]
		return cfg.Save()
	},
}

func init() {
	remoteCmd.AddCommand(remoteAddCmd, remoteListCmd, remoteRemoveCmd, remoteDefaultCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shopfloor/internal/config"
)

type configEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func newConfigCmd(cfg *config.Config, structured *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the effective configuration",
	}
	cmd.AddCommand(
		newConfigListCmd(cfg, structured),
		newConfigGetCmd(cfg, structured),
		newConfigSetCmd(),
		newConfigPathCmd(cfg),
	)
	return cmd
}

func newConfigListCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every key with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]configEntry, 0, len(config.AllowedKeys()))
			for _, key := range config.AllowedKeys() {
				value, err := cfg.Get(key)
				if err != nil {
					return err
				}
				entries = append(entries, configEntry{Key: key, Value: value})
			}
			if *structured {
				return writeStructured(entries)
			}
			for _, entry := range entries {
				if err := writePlain("%s = %s\n", entry.Key, entry.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigGetCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective config value",
		Args:  requireExactlyArgs(1, "requires exactly 1 argument: <key>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.IsAllowedKey(args[0]) {
				return fmt.Errorf("unknown key: %s (allowed: %v)", args[0], config.AllowedKeys())
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			if *structured {
				return writeStructured(configEntry{Key: args[0], Value: value})
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a config value to the project or global file",
		Args:  requireExactlyArgs(2, "requires exactly 2 arguments: <key> <value>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configTarget(global)
			if err != nil {
				return err
			}
			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			return writePlain("%s written to %s\n", args[0], path)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to the global file (~/.shopfloor.toml)")
	return cmd
}

func newConfigPathCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show which config files are consulted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			global, err := config.GlobalPath()
			if err != nil {
				return err
			}
			if err := writePlain("global:  %s%s\n", global, missingSuffix(global)); err != nil {
				return err
			}
			if cfg.TrustedProjectConfigPath != "" {
				return writePlain("project: %s (trusted)\n", cfg.TrustedProjectConfigPath)
			}
			return writePlain("project: not loaded\n")
		},
	}
}

func configTarget(global bool) (string, error) {
	if global {
		return config.GlobalPath()
	}
	return config.ProjectPath()
}

func missingSuffix(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (missing)"
	}
	return ""
}

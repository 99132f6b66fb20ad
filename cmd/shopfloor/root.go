package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shopfloor/internal/config"
	"shopfloor/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonFlag     bool
		outputFormat string
		logLevel     string
		structured   bool
	)

	cmd := &cobra.Command{
		Use:           "shopfloor",
		Short:         "Shopfloor tracks manufacturing tasks through their operator workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := setupLogging(os.Stderr, logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			formatter, err := format.ByName(outputFormat)
			if err != nil {
				return err
			}
			outputFormatter = formatter
			// --output implies structured output.
			structured = jsonFlag || outputFormat != ""
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output JSON")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "structured output format (json|yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &structured),
		newLoginCmd(cfg, &structured),
		newLogoutCmd(cfg),
		newWhoamiCmd(cfg, &structured),
		newTasksCmd(cfg, &structured),
		newShowCmd(cfg, &structured),
		newStartCmd(cfg, &structured),
		newHoldCmd(cfg, &structured),
		newResumeCmd(cfg, &structured),
		newCompleteCmd(cfg, &structured),
		newDenyCmd(cfg, &structured),
		newBoardCmd(cfg),
		newTaskCmd(cfg, &structured),
		newUserCmd(cfg, &structured),
		newMachineCmd(cfg, &structured),
		newConfigCmd(cfg, &structured),
	)

	return cmd
}

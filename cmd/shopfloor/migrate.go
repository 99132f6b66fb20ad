package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shopfloor/internal/config"
	"shopfloor/internal/store"
)

func newMigrateCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations and show their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}
			// Opening the store applies pending migrations.
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()

			status, err := st.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}
			if *structured {
				return writeStructured(status)
			}

			if err := writePlain("Schema version: %d (latest %d)\n", status.CurrentVersion, status.AvailableVersion); err != nil {
				return err
			}
			for _, m := range status.Applied {
				if err := writePlain("  %d: %s (applied %s)\n", m.Version, m.Description, m.AppliedAt); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

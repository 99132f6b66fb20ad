package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shopfloor/internal/api"
	internalauth "shopfloor/internal/auth"
	"shopfloor/internal/config"
	"shopfloor/internal/models"
	"shopfloor/internal/server"
	"shopfloor/internal/session"
	"shopfloor/internal/store"
)

func newUserCmd(cfg *config.Config, structured *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage shopfloor users",
	}
	cmd.AddCommand(newUserAddCmd(cfg, structured))
	cmd.AddCommand(newUserListCmd(cfg, structured))
	cmd.AddCommand(newUserSetDisabledCmd(cfg, structured, "disable", "Disable a user (direct database access)", true))
	cmd.AddCommand(newUserSetDisabledCmd(cfg, structured, "enable", "Enable a user (direct database access)", false))
	return cmd
}

func newUserAddCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var (
		role          string
		fullName      string
		passwordStdin bool
		direct        bool
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user through the API, or directly in the database with --direct",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			var created models.User
			if direct {
				// Bootstraps the first admin before anyone can log in.
				created, err = addUserDirect(cmd, cfg, server.CreateUserInput{
					Username: args[0],
					Password: password,
					FullName: fullName,
					Role:     role,
				})
			} else {
				err = withSession(cfg, func(_ *session.Session, client *api.Client) error {
					var apiErr error
					created, apiErr = client.CreateUser(cmd.Context(), api.UserCreateRequest{
						Username: args[0],
						Password: password,
						FullName: fullName,
						Role:     role,
					})
					return apiErr
				})
			}
			if err != nil {
				return err
			}

			if *structured {
				return writeStructured(created)
			}
			return writePlain("created %s user %s (%s)\n", created.Role, created.Username, created.ID)
		},
	}

	cmd.Flags().StringVar(&role, "role", string(models.RoleOperator), "role (admin|operator|supervisor|planning)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().BoolVar(&direct, "direct", false, "write to the configured database instead of the API")
	return cmd
}

func addUserDirect(cmd *cobra.Command, cfg *config.Config, input server.CreateUserInput) (models.User, error) {
	st, err := openStore(cfg)
	if err != nil {
		return models.User{}, err
	}
	defer st.Close()

	created, err := server.NewAuthService(st).CreateUser(cmd.Context(), input, time.Now().UTC())
	if err != nil {
		return models.User{}, err
	}
	return created.Public(), nil
}

func newUserListCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(_ *session.Session, client *api.Client) error {
				users, err := client.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(users)
				}
				if len(users) == 0 {
					return writePlain("no users\n")
				}
				if err := writePlain("USERNAME\tROLE\tSTATUS\tID\n"); err != nil {
					return err
				}
				for _, user := range users {
					status := "enabled"
					if user.Disabled {
						status = "disabled"
					}
					if err := writePlain("%s\t%s\t%s\t%s\n", user.Username, user.Role, status, user.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newUserSetDisabledCmd(cfg *config.Config, structured *bool, name, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <username>",
		Short: short,
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			updated, err := st.SetUserDisabled(cmd.Context(), username, disabled, time.Now().UTC())
			if err != nil {
				return err
			}
			if updated == nil {
				return fmt.Errorf("user %q not found", username)
			}

			if *structured {
				return writeStructured(updated.Public())
			}
			return writePlain("%sd user %s\n", name, updated.Username)
		},
	}
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	return store.Open(cfg.DBPath)
}

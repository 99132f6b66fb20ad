package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"shopfloor/internal/api"
	"shopfloor/internal/config"
	"shopfloor/internal/session"
)

func newLoginCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and save the session",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				sess, err := session.Login(cmd.Context(), client, cfg.APIURL, args[0], password)
				if err != nil {
					return err
				}
				store := sessionStore(cfg)
				if err := store.Save(sess); err != nil {
					return fmt.Errorf("save session: %w", err)
				}
				slog.Debug("session saved", "path", store.Path(), "expires_at", sess.ExpiresAt)
				if *structured {
					return writeStructured(sess.User)
				}
				return writePlain("logged in as %s (%s)\n", sess.User.Username, sess.User.Role)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func newLogoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withSession(cfg, func(_ *session.Session, client *api.Client) error {
				return client.Logout(cmd.Context())
			})
			var apiErr *api.APIError
			switch {
			case errors.Is(err, session.ErrNotLoggedIn):
			case errors.As(err, &apiErr) && apiErr.Status == 401:
				// Already expired server-side.
			case err != nil:
				return err
			}
			if err := sessionStore(cfg).Clear(); err != nil {
				return err
			}
			return writePlain("logged out\n")
		},
	}
}

func newWhoamiCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(_ *session.Session, client *api.Client) error {
				user, err := client.Me(cmd.Context())
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(user)
				}
				name := user.FullName
				if name == "" {
					name = user.Username
				}
				return writePlain("%s (%s) role=%s id=%s at %s\n", name, user.Username, user.Role, user.ID, client.BaseURL())
			})
		},
	}
}

// readPassword reads the whole of stdin with --password-stdin, otherwise
// prompts without echo on a terminal or reads one line.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	in := cmd.InOrStdin()
	if fromStdin {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

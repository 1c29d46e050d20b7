package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// PasswordEnv supplies the login password when --password is not given.
const PasswordEnv = "QUERYSYNC_PASSWORD"

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(PasswordEnv)
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or " + PasswordEnv + ") are required")
			}
			user, err := a.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", user.Name, user.Role)
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.api.Logout(cmd.Context())
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := a.session.Identity()
			if id == nil {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"user_id":    id.UserID,
				"name":       id.Name(),
				"email":      id.Email,
				"role":       id.Role.String(),
				"expires_at": id.ExpiresAt,
			})
		},
	}
}

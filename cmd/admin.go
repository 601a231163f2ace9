package cmd

import (
	"errors"
	"fmt"

	"levelup_backend/internal/app"

	"github.com/spf13/cobra"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account, or promote an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if username == "" || len(password) < 6 {
			return errors.New("--username and a --password of at least 6 characters are required")
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		application, err := app.Bootstrap(cfg)
		if err != nil {
			return err
		}
		defer application.Close()

		user, err := application.Services.Auth.EnsureAdmin(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %q ready (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("username", "", "Account name")
	createAdminCmd.Flags().String("password", "", "Password for a new account")
}

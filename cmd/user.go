package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"twintrack/models"
)

var (
	userUsername string
	userFullName string
	userPassword string
	userRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
	Long: `Commands for managing TwinTrack accounts directly in the database.

Example:
  twintrack user create --username larry --name "Larry Lead" --password secret --role SUPERVISOR`,
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, ok := models.ParseRole(strings.ToUpper(userRole))
		if !ok {
			return fmt.Errorf("--role must be ADMIN, SUPERVISOR or WORKER")
		}
		if userPassword == "" {
			return fmt.Errorf("--password is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		user, err := store.CreateUser(cmd.Context(), userUsername, userFullName, userPassword, role)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Printf("Created %s %q with id %d\n", user.Role, user.Username, user.ID)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userUsername, "username", "", "login name (required)")
	userCreateCmd.Flags().StringVar(&userFullName, "name", "", "full name")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "password (required)")
	userCreateCmd.Flags().StringVar(&userRole, "role", "WORKER", "ADMIN, SUPERVISOR or WORKER")
	userCreateCmd.MarkFlagRequired("username")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

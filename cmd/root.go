// Package cmd contains the twintrack command line.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"twintrack/client"
)

var (
	verbose bool
	output  string
)

var rootCmd = &cobra.Command{
	Use:   "twintrack",
	Short: "TwinTrack - construction project tracking",
	Long: `TwinTrack tracks construction projects: supervisor and worker rosters,
tasks, and the materials allocated to them.

The serve, migrate and user commands work on the database directly.
The remaining commands talk to a running server and read their session
from TWINTRACK_API_URL, TWINTRACK_TOKEN and TWINTRACK_USER_ID.

Examples:
  # Run the API server
  twintrack serve

  # Log in and export the session
  eval $(twintrack login --username larry --password secret)

  # Allocate 30 bags of cement (material 11) to task 21 of project 7
  twintrack allocate 7 21 11=30`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-2] + ".."
}

// apiClient builds a client from the environment session.
func apiClient() (*client.Client, error) {
	session, err := client.SessionFromEnv()
	if err != nil {
		return nil, err
	}
	return client.New(session), nil
}

// notify turns a client error into the single message shown to the user.
func notify(err error) error {
	if err == nil {
		return nil
	}
	if verbose {
		fmt.Fprintln(os.Stderr, "detail:", err)
	}
	return errors.New(client.Notification(err))
}

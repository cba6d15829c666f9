// Command norelctl is the operator CLI for a NOREL deployment
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "norelctl",
	Short: "Operator tools for the NOREL backend",
	Long: `Operator tools for the NOREL backend.

Available commands:
  hash-password - Hash the admin password for ADMIN_PASSWORD_HASH
  decode        - Decode and validate a share code or kiosk URL
  templates     - List the kiosk form templates
  migrate       - Apply the database schema`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd, decodeCmd, templatesCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

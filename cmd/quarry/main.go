package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quarrydata/quarry/cmd/quarry/commands"
	"github.com/quarrydata/quarry/logger"
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "quarry - dataset execution engine for paginated GraphQL APIs",
	Long: `quarry - define, execute and retrieve datasets against external
paginated GraphQL APIs.

Datasets are parameterized queries stored against a source. Executing one
walks the API's pages to completion (or fans out a dependent primary/
secondary query pair with resumable checkpoints) and records the run as a
durable execution.

Available commands:
  datasets - List stored datasets
  run      - Execute a dataset and poll until it finishes
  status   - Show execution status and result preview
  reset    - Force a stuck execution to a terminal state
  db       - Manage the quarry database

Examples:
  quarry datasets ls            # List datasets
  quarry run ds_orders          # Execute and watch a dataset
  quarry status EXE_abc123      # Show one execution
  quarry db stats               # Show database statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(false); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.DatasetsCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.ResetCmd)
	rootCmd.AddCommand(commands.DbCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

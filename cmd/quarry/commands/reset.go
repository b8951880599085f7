package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ResetCmd represents the reset command
var ResetCmd = &cobra.Command{
	Use:   "reset <execution-id>",
	Short: "Force a stuck execution to a terminal state",
	Long: `Force a pending or running execution to a terminal failed state so a
fresh execution can be started for its dataset.

The stuck classification itself never changes an execution; this explicit
reset is the only way out of a wedged run. Resetting an execution that has
already completed or failed is a no-op.

Example:
  quarry reset EXE_abc123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset(args[0])
	},
}

func runReset(executionID string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	stuck, err := e.detector.Check(executionID)
	if err != nil {
		return fmt.Errorf("failed to check execution: %w", err)
	}
	if !stuck {
		fmt.Printf("Note: execution %s is not classified stuck; resetting anyway\n", executionID)
	}

	if err := e.detector.Reset(executionID); err != nil {
		return fmt.Errorf("failed to reset execution: %w", err)
	}

	fmt.Printf("Execution %s reset to failed\n", executionID)
	return nil
}

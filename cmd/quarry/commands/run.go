package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydata/quarry/client"
	"github.com/quarrydata/quarry/engine"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run <dataset-id>",
	Short: "Execute a dataset and poll until it finishes",
	Long: `Execute a dataset against its source and poll the execution until it
reaches a terminal state.

Triggering retries automatically on transient failures. Polling falls back
across retrieval strategies and stops on completion, failure, a stuck
classification, or when the attempt bounds are hit.

Examples:
  quarry run ds_orders               # Execute and watch
  quarry run ds_orders --owner ops   # Attribute the run to an owner
  quarry run ds_orders --no-wait     # Trigger only, do not poll`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		noWait, _ := cmd.Flags().GetBool("no-wait")
		limit, _ := cmd.Flags().GetInt("limit")
		return runRun(cmd.Context(), args[0], owner, limit, noWait)
	},
}

func init() {
	RunCmd.Flags().String("owner", "", "Owner to attribute the execution to")
	RunCmd.Flags().Bool("no-wait", false, "Trigger the execution without polling for completion")
	RunCmd.Flags().Int("limit", 10, "Preview rows to show on completion")
}

func runRun(ctx context.Context, datasetID, owner string, limit int, noWait bool) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	trigger := client.NewTrigger(e.api, e.triggerConfig(), nil)
	executionID, err := trigger.Run(ctx, datasetID, owner)
	if err != nil {
		return fmt.Errorf("%s", client.FriendlyMessage(err.Error()))
	}

	fmt.Printf("Execution %s started for dataset %s\n", executionID, datasetID)
	if noWait {
		return nil
	}

	poller := client.NewPoller(client.NewRetriever(e.api, nil), e.pollConfig(), nil)
	lastStatus := ""
	outcome := poller.Poll(ctx, executionID, limit, func(result *engine.StatusResult, poll int) {
		if result.Status != lastStatus {
			fmt.Printf("  [%d] %s\n", poll, result.Status)
			lastStatus = result.Status
		}
	})

	return printOutcome(outcome, executionID)
}

func printOutcome(outcome client.PollOutcome, executionID string) error {
	switch outcome.Reason {
	case client.StopCompleted:
		printStatusResult(outcome.Result)
		return nil
	case client.StopFailed:
		fmt.Printf("\nExecution failed: %s\n", client.FriendlyMessage(outcome.Result.Error))
		return fmt.Errorf("execution %s failed", executionID)
	case client.StopStuck:
		fmt.Printf("\nExecution appears stuck. Run 'quarry reset %s' to force it to a terminal state,\nthen start a fresh run.\n", executionID)
		return fmt.Errorf("execution %s is stuck", executionID)
	case client.StopErrors:
		return fmt.Errorf("gave up polling execution %s after repeated errors: %w", executionID, outcome.Err)
	case client.StopMaxPolls:
		return fmt.Errorf("execution %s still not finished after %d polls; check later with 'quarry status %s'", executionID, outcome.Polls, executionID)
	default:
		return nil
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrydata/quarry/client"
	"github.com/quarrydata/quarry/engine"
)

// StatusCmd represents the status command
var StatusCmd = &cobra.Command{
	Use:   "status <execution-id>",
	Short: "Show execution status and result preview",
	Long: `Display the current status of an execution: timestamps, row and API
call counts, and a result preview once completed.

Retrieval falls back across three strategies (preview, direct, minimal);
the output notes when a degraded strategy served the request.

Examples:
  quarry status EXE_abc123             # One-shot status
  quarry status EXE_abc123 --watch     # Poll until terminal
  quarry status EXE_abc123 --limit 25  # Show up to 25 preview rows`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		limit, _ := cmd.Flags().GetInt("limit")
		return runStatus(cmd.Context(), args[0], limit, watch)
	},
}

func init() {
	StatusCmd.Flags().Bool("watch", false, "Poll until the execution reaches a terminal state")
	StatusCmd.Flags().Int("limit", 10, "Maximum preview rows to display")
}

func runStatus(ctx context.Context, executionID string, limit int, watch bool) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	retriever := client.NewRetriever(e.api, nil)

	if watch {
		poller := client.NewPoller(retriever, e.pollConfig(), nil)
		lastStatus := ""
		outcome := poller.Poll(ctx, executionID, limit, func(result *engine.StatusResult, poll int) {
			if result.Status != lastStatus {
				fmt.Printf("  [%d] %s\n", poll, result.Status)
				lastStatus = result.Status
			}
		})
		return printOutcome(outcome, executionID)
	}

	result, err := retriever.Fetch(ctx, executionID, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch status: %w", err)
	}
	printStatusResult(result)
	return nil
}

func printStatusResult(result *engine.StatusResult) {
	fmt.Printf("\nExecution: %s\n", result.Execution.ID)
	fmt.Printf("  Status: %s\n", result.Status)
	if result.Dataset.ID != "" {
		fmt.Printf("  Dataset: %s (%s, %s)\n", result.Dataset.Name, result.Dataset.ID, result.Dataset.Type)
	}
	if result.Execution.StartTime != nil {
		fmt.Printf("  Started: %s\n", result.Execution.StartTime.Format("2006-01-02 15:04:05"))
	}
	if result.Execution.EndTime != nil {
		fmt.Printf("  Finished: %s\n", result.Execution.EndTime.Format("2006-01-02 15:04:05"))
	}
	if result.Execution.ExecutionTimeMS != nil {
		fmt.Printf("  Duration: %dms\n", *result.Execution.ExecutionTimeMS)
	}
	fmt.Printf("  Rows: %d  API calls: %d\n", result.Execution.RowCount, result.Execution.APICallCount)

	if result.Strategy != "" && result.Strategy != string(client.StrategyPreview) {
		fmt.Printf("  (served via degraded %q strategy)\n", result.Strategy)
	}

	if result.Error != "" {
		fmt.Printf("\n  Error: %s\n", client.FriendlyMessage(result.Error))
	}

	if len(result.Preview) > 0 {
		fmt.Printf("\nPreview (%d of %d rows):\n", len(result.Preview), result.TotalCount)
		for _, col := range result.Columns {
			fmt.Printf("  %-20s", col.Label)
		}
		if len(result.Columns) > 0 {
			fmt.Println()
		}
		for _, row := range result.Preview {
			if len(result.Columns) > 0 {
				for _, col := range result.Columns {
					fmt.Printf("  %-20v", row[col.Key])
				}
				fmt.Println()
			} else {
				fmt.Printf("  %v\n", row)
			}
		}
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DatasetsCmd represents the datasets command
var DatasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage stored datasets",
	Long: `datasets — inspect stored dataset definitions.

Examples:
  quarry datasets ls              # List all datasets
  quarry datasets ls --limit 50   # Show up to 50 datasets`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var datasetsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List datasets",
	Long: `List stored datasets with their type and most recent execution.

Dataset types:
  predefined - Runs a single shared query template
  dependent  - Runs a primary query, then one secondary query per id
  custom     - Runs a single user-authored query template
  direct_api - Invokes a named remote function on the source`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return runDatasetsLs(limit)
	},
}

func init() {
	datasetsLsCmd.Flags().Int("limit", 20, "Maximum number of datasets to display")
	DatasetsCmd.AddCommand(datasetsLsCmd)
}

func runDatasetsLs(limit int) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	datasets, err := e.datasets.ListDatasets(limit)
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	if len(datasets) == 0 {
		fmt.Println("No datasets found")
		return nil
	}

	fmt.Printf("%-20s %-25s %-12s %-25s %s\n", "DATASET ID", "NAME", "TYPE", "LAST EXECUTION", "CREATED")
	fmt.Printf("%-20s %-25s %-12s %-25s %s\n", "----------", "----", "----", "--------------", "-------")

	for _, ds := range datasets {
		lastExec := ds.LastExecutionID
		if lastExec == "" {
			lastExec = "-"
		}
		fmt.Printf("%-20s %-25s %-12s %-25s %s\n",
			truncate(ds.ID, 20),
			truncate(ds.Name, 25),
			ds.Type,
			truncate(lastExec, 25),
			ds.CreatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Printf("\nTotal: %d dataset(s)\n", len(datasets))
	return nil
}

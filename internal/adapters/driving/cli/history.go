package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [source-id]",
	Short: "Show the sync ledger of a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline")
	}

	entries, err := pipelineService.History(commandContext(cmd), args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if len(entries) == 0 {
		cmd.Printf("No syncs recorded for %s.\n", args[0])
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPHASE\tTYPE\tSTATUS\tFETCHED\tINS\tUPD\tSKIP\tERR\tDURATION")
	for _, e := range entries {
		duration := "-"
		if e.CompletedAt != nil {
			duration = e.CompletedAt.Sub(e.StartedAt).Round(10 * time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Phase, e.SyncType, styles.Status(e.Status),
			e.Counts.Fetched, e.Counts.Inserted, e.Counts.Updated, e.Counts.Skipped, e.Counts.Errors, duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	// Item errors of the newest entry that has any.
	for _, e := range entries {
		if len(e.ErrorDetails) == 0 {
			continue
		}
		cmd.Println()
		cmd.Printf("Errors in %s %s:\n", e.Phase, e.StartedAt.Local().Format("2006-01-02 15:04:05"))
		for _, d := range e.ErrorDetails {
			cmd.Printf("  %s: %s\n", d.Item, d.Error)
		}
		break
	}
	return nil
}

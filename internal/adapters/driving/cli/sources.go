package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/core/services"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List catalog sources by lifecycle stage",
	Long: `Lists every source in the catalog, grouped by how far it has
progressed: planned, api-tested, schema-ready, loaded, delta-active.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest sync of every source",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(statusCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return errNotConfigured("source")
	}

	sources, err := sourceService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No sources in the catalog.")
		return nil
	}

	nameWidth := outputWidth(cmd.OutOrStdout()) - 48
	groups := services.ByLifecycle(sources)
	for _, stage := range domain.Lifecycles() {
		group := groups[stage]
		if len(group) == 0 {
			continue
		}
		cmd.Printf("%s (%d)\n", styles.Title.Render(string(stage)), len(group))
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, s := range group {
			estimate := "-"
			if s.EstimatedItems > 0 {
				estimate = fmt.Sprintf("~%d", s.EstimatedItems)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", s.ID, s.Connector, estimate, truncate(s.Name, nameWidth))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		cmd.Println()
	}
	cmd.Printf("%d sources\n", len(sources))
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return errNotConfigured("source")
	}

	statuses, err := sourceService.Status(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	if len(statuses) == 0 {
		cmd.Println("No syncs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tPHASE\tTYPE\tSTATUS\tCOMPLETED")
	for _, st := range statuses {
		completed := "-"
		if st.CompletedAt != nil {
			completed = st.CompletedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.SourceID, st.Phase, st.SyncType, styles.Status(st.Status), completed)
	}
	return tw.Flush()
}

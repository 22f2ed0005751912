package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ficoreafrica/ficore/audit"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Create or update collections and indexes, then exit",
	Long: `Bring the database in line with the schema registry: create missing
collections with their validators, replace validators on existing ones and
create, keep or recreate every declared index. Running it twice changes
nothing the second time.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, report, err := start(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	a.Audit.Record(cmd.Context(), audit.Entry{ToolName: "reconcile", Action: "run"})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Collections created:  %s\n", list(report.CollectionsCreated))
	fmt.Fprintf(out, "Collections modified: %s\n", list(report.CollectionsModified))
	fmt.Fprintf(out, "Indexes created:      %s\n", list(report.IndexesCreated))
	fmt.Fprintf(out, "Indexes dropped:      %s\n", list(report.IndexesDropped))
	fmt.Fprintf(out, "Indexes unchanged:    %d\n", len(report.IndexesSkipped))
	return nil
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

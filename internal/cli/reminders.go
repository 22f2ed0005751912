package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(remindersCmd)
	remindersCmd.AddCommand(remindersRunCmd)

	remindersRunCmd.Flags().String("at", "", "Sweep as if it were this RFC 3339 time (default: now)")
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Bill reminder notifications",
}

var remindersRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the bill reminders that are due",
	RunE:  runRemindersRun,
}

func runRemindersRun(cmd *cobra.Command, args []string) error {
	now := time.Now()
	if at, _ := cmd.Flags().GetString("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		now = t
	}

	a, _, err := start(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	sum, err := a.Reminders.Sweep(cmd.Context(), now)
	fmt.Fprintf(cmd.OutOrStdout(), "Bills: %d  Sent: %d  Skipped: %d  Failed: %d\n",
		sum.Bills, sum.Sent, sum.Skipped, sum.Failed)
	return err
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "paytrack",
	Short: "Pay-cycle payment tracker",
	Long: `paytrack tracks recurring payments against a bi-weekly pay cycle.

It materialises payment occurrences ahead of time, totals each pay cycle and
sends due-soon, overdue and daily summary reminders in-app and over Telegram.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runDailyCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(migrateCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

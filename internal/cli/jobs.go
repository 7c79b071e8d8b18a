package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"paytrack/internal/infra/telegram"
)

var runDailyCmd = &cobra.Command{
	Use:   "run-daily",
	Short: "Run generation, reminders and the daily summary once",
	Long: `run-daily performs the same guarded pass the scheduler runs.
It is safe to run any number of times a day: jobs already recorded for the
date are skipped and reminders are never sent twice.`,
	RunE: runDaily,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate occurrences up to the horizon without the daily job guard",
	RunE:  runGenerate,
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Print a pay cycle with its occurrences and totals",
	RunE:  runCycle,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func init() {
	runDailyCmd.Flags().String("date", "", "Logical date (YYYY-MM-DD), defaults to today in the schedule timezone")
	runDailyCmd.Flags().Bool("force-summary", false, "Send the daily summary even before its configured time")

	generateCmd.Flags().String("date", "", "Logical date (YYYY-MM-DD), defaults to today in the schedule timezone")
	generateCmd.Flags().Int("horizon", 0, "Horizon in days, defaults to the stored setting")

	cycleCmd.Flags().String("date", "", "Date inside the cycle (YYYY-MM-DD), defaults to today")
	cycleCmd.Flags().Int("offset", 0, "Cycles relative to the one containing the date (-1 previous, 1 next)")
}

func runDaily(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, _ := cmd.Flags().GetString("date")
	force, _ := cmd.Flags().GetBool("force-summary")

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	now, today, err := rt.resolveDay(ctx, date)
	if err != nil {
		return err
	}
	res, err := rt.daily.Run(ctx, today, now)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s for %s\n", res.RunID, res.RunDate)
	if res.GenerationRan {
		fmt.Printf("  generation: %d occurrences for %d payments\n", res.Generation.Generated, res.Generation.Payments)
	} else {
		fmt.Println("  generation: already ran")
	}
	fmt.Printf("  reminders: %d due soon, %d overdue (%d sent, %d failed)\n",
		res.Notices.DueSoon, res.Notices.Overdue, res.Notices.Sent, res.Notices.Failed)

	switch {
	case res.SummaryRan:
		fmt.Printf("  summary: %d sent, %d failed\n", res.Summary.Sent, res.Summary.Failed)
	case res.Summary.Deferred && force:
		summary, err := rt.notifier.SendDailySummary(ctx, today, now, true)
		if err != nil {
			return err
		}
		fmt.Printf("  summary (forced): %d sent, %d failed\n", summary.Sent, summary.Failed)
	case res.Summary.Deferred:
		fmt.Println("  summary: deferred until the configured time")
	default:
		fmt.Println("  summary: already sent")
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, _ := cmd.Flags().GetString("date")
	horizon, _ := cmd.Flags().GetInt("horizon")

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	_, today, err := rt.resolveDay(ctx, date)
	if err != nil {
		return err
	}
	if horizon <= 0 {
		_, appSettings, err := rt.settings.Load(ctx)
		if err != nil {
			return err
		}
		horizon = appSettings.GenerationHorizonDays
	}

	res, err := rt.generator.GenerateAhead(ctx, today, horizon)
	fmt.Printf("Generated %d occurrences for %d payments through %s\n", res.Generated, res.Payments, today.AddDays(horizon))
	return err
}

func runCycle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, _ := cmd.Flags().GetString("date")
	offset, _ := cmd.Flags().GetInt("offset")

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	_, today, err := rt.resolveDay(ctx, date)
	if err != nil {
		return err
	}
	snap, err := rt.cycles.Snapshot(ctx, today, offset)
	if err != nil {
		return err
	}
	fmt.Println(telegram.FormatCycle(snap))
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Printf("Schema is up to date (%s)\n", rt.db.Dialect)
	return nil
}

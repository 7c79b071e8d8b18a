package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"paytrack/internal/infra/scheduler"
	"paytrack/internal/infra/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the Telegram bot until interrupted",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	schedule, _, err := rt.settings.Load(ctx)
	if err != nil {
		return err
	}
	sched := scheduler.NewDailyScheduler(rt.daily, rt.settings, schedule.Location(), rt.log,
		rt.cfg.CronSpecGeneration, rt.cfg.CronSpecNotifications)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	if rt.bot != nil {
		handlers := telegram.NewHandlers(rt.cfg.OwnerTelegramID, rt.payments, rt.actions, rt.cycles, rt.notifier, rt.settings, rt.log)
		handlers.Register(ctx, rt.bot)
		rt.log.Info("Telegram command handlers registered")
		go rt.bot.Start()
	}

	rt.log.Info("Application setup complete, waiting for shutdown signal")
	<-ctx.Done()

	rt.log.Info("Shutting down application...")
	if rt.bot != nil {
		rt.bot.Stop()
	}
	sched.Stop()
	rt.log.Info("Application shut down gracefully")
	return nil
}

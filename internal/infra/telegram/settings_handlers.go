package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"paytrack/internal/app"
	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/settings"
)

const usageSettings = "Invalid command format. Use: /settings [anchor <YYYY-MM-DD> [timezone] | due_soon <days> | summary <HH:MM> | telegram on|off [chat id]]"

// ParseSettingsArgs merges one "<key> <value...>" change into the current app settings.
// The anchor key is handled separately because it edits the pay schedule row.
func ParseSettingsArgs(args []string, current *settings.AppSettings) (app.AppSettingsInput, error) {
	in := app.AppSettingsInput{
		DueSoonDays:      current.DueSoonDays,
		DailySummaryTime: current.DailySummaryTime,
		TelegramEnabled:  current.TelegramEnabled,
		TelegramChatID:   current.TelegramChatID,
	}
	if len(args) < 2 {
		return in, &app.ValidationError{Field: "arguments", Message: "expected <key> <value>"}
	}

	switch strings.ToLower(args[0]) {
	case "due_soon":
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return in, &app.ValidationError{Field: "due_soon_days", Message: fmt.Sprintf("%q is not a number", args[1])}
		}
		in.DueSoonDays = n
	case "summary":
		in.DailySummaryTime = args[1]
	case "telegram":
		switch strings.ToLower(args[1]) {
		case "on":
			in.TelegramEnabled = true
		case "off":
			in.TelegramEnabled = false
		default:
			return in, &app.ValidationError{Field: "telegram_enabled", Message: "expected on or off"}
		}
		if len(args) > 2 {
			in.TelegramChatID = args[2]
		}
	default:
		return in, &app.ValidationError{Field: "key", Message: fmt.Sprintf("unknown setting %q", args[0])}
	}
	return in, nil
}

func FormatSettings(schedule *settings.PaySchedule, appSettings *settings.AppSettings) string {
	telegramState := "off"
	if appSettings.TelegramEnabled {
		telegramState = "on (chat " + appSettings.TelegramChatID + ")"
	}
	return fmt.Sprintf("Anchor payday: %s\nTimezone: %s\nDue soon window: %d days\nDaily summary: %s\nTelegram: %s\nGeneration horizon: %d days",
		schedule.AnchorPayday, schedule.Timezone, appSettings.DueSoonDays, appSettings.DailySummaryTime,
		telegramState, appSettings.GenerationHorizonDays)
}

func (h *Handlers) handleSettings(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/settings")
	ctx, cancel := h.requestContext()
	defer cancel()

	schedule, appSettings, err := h.settings.Load(ctx)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}

	args := c.Args()
	switch {
	case len(args) == 0:
		return c.Send(FormatSettings(schedule, appSettings))
	case strings.EqualFold(args[0], "anchor"):
		if len(args) < 2 || len(args) > 3 {
			return c.Send(usageSettings)
		}
		anchor, err := calendar.Parse(args[1])
		if err != nil {
			return h.replyError(c, handlerLogger, &app.ValidationError{Field: "anchor_payday", Message: err.Error()})
		}
		timezone := schedule.Timezone
		if len(args) == 3 {
			timezone = args[2]
		}
		if schedule, err = h.settings.UpdatePaySchedule(ctx, anchor, timezone); err != nil {
			return h.replyError(c, handlerLogger, err)
		}
	default:
		in, err := ParseSettingsArgs(args, appSettings)
		if err != nil {
			handlerLogger.WithField("args", strings.Join(args, " ")).Warn("Invalid settings change")
			return c.Send(usageSettings)
		}
		if appSettings, err = h.settings.UpdateAppSettings(ctx, in); err != nil {
			return h.replyError(c, handlerLogger, err)
		}
	}

	handlerLogger.WithFields(logrus.Fields{"setting": args[0]}).Info("Settings updated")
	return c.Send(FormatSettings(schedule, appSettings))
}

package telegram

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"paytrack/internal/app"
	"paytrack/internal/domain/calendar"
)

const (
	msgUnauthorized = "Error: you are not allowed to use this command."
	msgFailed       = "Something went wrong, please try again later."

	handlerTimeout = 30 * time.Second
)

// Handlers is the owner command surface over the application services.
type Handlers struct {
	baseCtx       context.Context
	ownerID       int64
	payments      *app.PaymentService
	actions       *app.ActionProcessor
	cycles        *app.CycleService
	notifications app.NotificationService
	settings      *app.SettingsService
	log           *logrus.Entry
}

func NewHandlers(
	ownerID int64,
	payments *app.PaymentService,
	actions *app.ActionProcessor,
	cycles *app.CycleService,
	notifications app.NotificationService,
	settings *app.SettingsService,
	baseLogger *logrus.Entry,
) *Handlers {
	return &Handlers{
		baseCtx:       context.Background(),
		ownerID:       ownerID,
		payments:      payments,
		actions:       actions,
		cycles:        cycles,
		notifications: notifications,
		settings:      settings,
		log:           baseLogger.WithField("component", "telegram_handlers"),
	}
}

// Register wires every command. Everything except /start and /help is owner-only.
func (h *Handlers) Register(ctx context.Context, b *telebot.Bot) {
	h.baseCtx = ctx

	b.Handle("/start", h.handleStart)
	b.Handle("/help", h.handleHelp)

	owner := b.Group()
	owner.Use(h.ownerOnly)
	owner.Handle("/cycle", h.handleCycle)
	owner.Handle("/history", h.handleHistory)
	owner.Handle("/inbox", h.handleInbox)
	owner.Handle("/payments", h.handlePayments)
	owner.Handle("/add_payment", h.handleAddPayment)
	owner.Handle("/edit_payment", h.handleEditPayment)
	owner.Handle("/paidoff", h.handlePaidOff)
	owner.Handle("/reactivate", h.handleReactivate)
	owner.Handle("/paid", h.handlePaid)
	owner.Handle("/undo", h.handleUndo)
	owner.Handle("/skip", h.handleSkip)
	owner.Handle("/settings", h.handleSettings)
	owner.Handle(&telebot.Btn{Unique: btnPaid}, h.handlePaidButton)
	owner.Handle(&telebot.Btn{Unique: btnSkip}, h.handleSkipButton)
}

func (h *Handlers) ownerOnly(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if c.Sender() == nil || c.Sender().ID != h.ownerID {
			h.log.WithField("sender_id", senderID(c)).Warn("Unauthorized access attempt")
			if c.Callback() != nil {
				return c.Respond(&telebot.CallbackResponse{Text: msgUnauthorized})
			}
			return c.Send(msgUnauthorized)
		}
		return next(c)
	}
}

func (h *Handlers) handlerLogger(c telebot.Context, handler string) *logrus.Entry {
	return h.log.WithFields(logrus.Fields{"handler": handler, "sender_id": senderID(c)})
}

func (h *Handlers) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.baseCtx, handlerTimeout)
}

// today resolves the logical date and generation horizon from the stored settings.
func (h *Handlers) today(ctx context.Context) (calendar.Date, int, error) {
	_, today, err := h.settings.Now(ctx)
	if err != nil {
		return calendar.Date{}, 0, err
	}
	_, appSettings, err := h.settings.Load(ctx)
	if err != nil {
		return calendar.Date{}, 0, err
	}
	return today, appSettings.GenerationHorizonDays, nil
}

// replyError maps application errors to a user message; unexpected ones are logged at Error.
func (h *Handlers) replyError(c telebot.Context, log *logrus.Entry, err error) error {
	var (
		verr *app.ValidationError
		serr *app.InvalidStateError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &serr), errors.Is(err, app.ErrNotFound):
		log.WithError(err).Warn("Command rejected")
		return c.Send("Error: " + err.Error())
	default:
		log.WithError(err).Error("Command failed")
		return c.Send(msgFailed)
	}
}

func senderID(c telebot.Context) int64 {
	if c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &app.ValidationError{Field: "id", Message: strconv.Quote(s) + " is not a positive number"}
	}
	return id, nil
}

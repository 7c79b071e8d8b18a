package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"paytrack/internal/app"
	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/payment"
)

// PaidArgs is the parsed form of "/paid <id> [amount] [YYYY-MM-DD]".
type PaidArgs struct {
	OccurrenceID int64
	Amount       decimal.NullDecimal
	PaidDate     calendar.NullDate
}

// ParsePaidArgs accepts the optional amount and date in either order.
func ParsePaidArgs(args []string) (PaidArgs, error) {
	var out PaidArgs
	if len(args) < 1 || len(args) > 3 {
		return out, &app.ValidationError{Field: "arguments", Message: "expected <occurrence id> [amount] [YYYY-MM-DD]"}
	}
	id, err := parseID(args[0])
	if err != nil {
		return out, err
	}
	out.OccurrenceID = id

	for _, arg := range args[1:] {
		if d, err := calendar.Parse(arg); err == nil && !out.PaidDate.Valid {
			out.PaidDate = calendar.NewNullDate(d)
			continue
		}
		amt, err := decimal.NewFromString(trimDollar(arg))
		if err != nil || out.Amount.Valid {
			return out, &app.ValidationError{Field: "arguments", Message: fmt.Sprintf("%q is neither an amount nor a YYYY-MM-DD date", arg)}
		}
		out.Amount = decimal.NewNullDecimal(amt)
	}
	return out, nil
}

func (h *Handlers) handlePaid(c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/paid")
	ctx, cancel := h.requestContext()
	defer cancel()

	args, err := ParsePaidArgs(c.Args())
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	today, _, err := h.today(ctx)
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	occ, err := h.actions.MarkPaid(ctx, args.OccurrenceID, args.Amount, args.PaidDate, today)
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	logCtx.WithField("occurrence_id", occ.ID).Info("Occurrence marked paid")
	return c.Send(FormatTransition(occ))
}

func (h *Handlers) handleUndo(c telebot.Context) error {
	return h.simpleTransition(c, "/undo", h.actions.Undo)
}

func (h *Handlers) handleSkip(c telebot.Context) error {
	return h.simpleTransition(c, "/skip", h.actions.Skip)
}

func (h *Handlers) simpleTransition(c telebot.Context, handler string, apply func(context.Context, int64) (*payment.Occurrence, error)) error {
	logCtx := h.handlerLogger(c, handler)
	ctx, cancel := h.requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 1 {
		return c.Send(fmt.Sprintf("Invalid command format. Use: %s <occurrence id>", handler))
	}
	id, err := parseID(args[0])
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	occ, err := apply(ctx, id)
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	logCtx.WithFields(logrus.Fields{"occurrence_id": occ.ID, "status": occ.Status}).Info("Occurrence updated")
	return c.Send(FormatTransition(occ))
}

func (h *Handlers) handlePaidButton(c telebot.Context) error {
	return h.buttonAction(c, btnPaid, func(ctx context.Context, id int64) (*payment.Occurrence, error) {
		today, _, err := h.today(ctx)
		if err != nil {
			return nil, err
		}
		return h.actions.MarkPaid(ctx, id, decimal.NullDecimal{}, calendar.NullDate{}, today)
	})
}

func (h *Handlers) handleSkipButton(c telebot.Context) error {
	return h.buttonAction(c, btnSkip, h.actions.Skip)
}

// buttonAction answers the callback with a short toast; failures never reach the chat.
func (h *Handlers) buttonAction(c telebot.Context, action string, apply func(context.Context, int64) (*payment.Occurrence, error)) error {
	logCtx := h.handlerLogger(c, "callback_"+action).WithField("data", c.Data())
	ctx, cancel := h.requestContext()
	defer cancel()

	id, err := parseID(c.Data())
	if err != nil {
		logCtx.WithError(err).Warn("Invalid callback data")
		return c.Respond(&telebot.CallbackResponse{Text: "Invalid button."})
	}
	occ, err := apply(ctx, id)
	if err != nil {
		var serr *app.InvalidStateError
		if errors.As(err, &serr) {
			logCtx.WithError(err).Info("Button pressed for an already handled occurrence")
			return c.Respond(&telebot.CallbackResponse{Text: "Already " + serr.From + "."})
		}
		logCtx.WithError(err).Error("Error processing button")
		return c.Respond(&telebot.CallbackResponse{Text: msgFailed})
	}
	logCtx.WithFields(logrus.Fields{"occurrence_id": occ.ID, "status": occ.Status}).Info("Button processed")
	return c.Respond(&telebot.CallbackResponse{Text: FormatTransition(occ)})
}

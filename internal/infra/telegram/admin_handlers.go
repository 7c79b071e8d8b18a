package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"paytrack/internal/app"
)

const (
	usageAddPayment  = "Invalid command format. Use: /add_payment <amount> <YYYY-MM-DD> <type> <name>"
	usageEditPayment = "Invalid command format. Use: /edit_payment <id> <amount> <YYYY-MM-DD> <type> <name>"
)

// ParsePaymentArgs reads "<amount> <YYYY-MM-DD> <type> <name...>".
func ParsePaymentArgs(args []string) (app.PaymentInput, error) {
	if len(args) < 4 {
		return app.PaymentInput{}, &app.ValidationError{Field: "arguments", Message: "expected <amount> <YYYY-MM-DD> <type> <name>"}
	}
	return app.ParsePaymentInput(strings.Join(args[3:], " "), args[0], args[1], args[2], "")
}

func (h *Handlers) handlePayments(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/payments")
	ctx, cancel := h.requestContext()
	defer cancel()

	list, err := h.payments.ListPayments(ctx)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}
	handlerLogger.WithField("payments_count", len(list)).Info("Successfully retrieved payment list")
	return c.Send(FormatPayments(list))
}

func (h *Handlers) handleAddPayment(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/add_payment")
	handlerLogger.Info("Command received")
	ctx, cancel := h.requestContext()
	defer cancel()

	args := c.Args()
	if len(args) < 4 {
		handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Send(usageAddPayment)
	}
	in, err := ParsePaymentArgs(args)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}

	today, horizon, err := h.today(ctx)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}
	p, generated, err := h.payments.CreatePayment(ctx, in, today, horizon)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}

	handlerLogger.WithFields(logrus.Fields{"payment_id": p.ID, "generated": generated}).Info("Payment added successfully")
	return c.Send(fmt.Sprintf("Added payment #%d %s (%s, %s). %d occurrences scheduled.",
		p.ID, p.Name, money(p.ExpectedAmount), p.RecurrenceType, generated))
}

func (h *Handlers) handleEditPayment(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/edit_payment")
	handlerLogger.Info("Command received")
	ctx, cancel := h.requestContext()
	defer cancel()

	args := c.Args()
	if len(args) < 5 {
		handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Send(usageEditPayment)
	}
	id, err := parseID(args[0])
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}
	in, err := ParsePaymentArgs(args[1:])
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}

	today, horizon, err := h.today(ctx)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}
	p, res, err := h.actions.EditPayment(ctx, id, in, today, horizon)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}

	handlerLogger.WithFields(logrus.Fields{"payment_id": p.ID, "canceled": res.Canceled, "generated": res.Generated}).Info("Payment edited")
	return c.Send(fmt.Sprintf("Updated payment #%d %s. %d future occurrences replaced by %d.",
		p.ID, p.Name, res.Canceled, res.Generated))
}

func (h *Handlers) handlePaidOff(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/paidoff")
	ctx, cancel := h.requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 1 {
		return c.Send("Invalid command format. Use: /paidoff <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}
	today, _, err := h.today(ctx)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}
	p, res, err := h.actions.PaidOff(ctx, id, today)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}

	handlerLogger.WithFields(logrus.Fields{"payment_id": p.ID, "canceled": res.Canceled}).Info("Payment paid off")
	return c.Send(fmt.Sprintf("Payment #%d %s is paid off. %d future occurrences canceled.", p.ID, p.Name, res.Canceled))
}

func (h *Handlers) handleReactivate(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/reactivate")
	ctx, cancel := h.requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 1 {
		return c.Send("Invalid command format. Use: /reactivate <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}
	today, horizon, err := h.today(ctx)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}
	p, res, err := h.actions.Reactivate(ctx, id, today, horizon)
	if err != nil {
		return h.replyError(c, handlerLogger, err)
	}

	handlerLogger.WithFields(logrus.Fields{"payment_id": p.ID, "generated": res.Generated}).Info("Payment reactivated")
	return c.Send(fmt.Sprintf("Payment #%d %s is active again. %d occurrences scheduled.", p.ID, p.Name, res.Generated))
}

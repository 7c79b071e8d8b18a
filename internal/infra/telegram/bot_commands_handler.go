// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func (h *Handlers) handleStart(c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/start")
	logCtx.Info("Processing /start command")

	if senderID(c) == h.ownerID {
		return c.Send("Hi! Payment tracking is ready. Use /cycle to see the current pay cycle or /help for every command.")
	}
	logCtx.Info("User is not the owner")
	return c.Send("Hi! This is a private payment tracker bot.")
}

func (h *Handlers) handleHelp(c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/help")
	logCtx.Info("Processing /help command")

	if senderID(c) != h.ownerID {
		return c.Send("There are no commands available for you.")
	}
	return c.Send(helpText())
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Available commands:\n\n")
	b.WriteString("/cycle [prev|next] - occurrences and totals of a pay cycle\n")
	b.WriteString("/history [search] - recent occurrences, newest first\n")
	b.WriteString("/inbox [read] - unread notifications, or mark them all read\n\n")
	b.WriteString("/payments - list payments\n")
	b.WriteString("/add_payment <amount> <YYYY-MM-DD> <type> <name> - add a payment\n")
	b.WriteString("/edit_payment <id> <amount> <YYYY-MM-DD> <type> <name> - change a payment and rebuild its schedule\n")
	b.WriteString("/paidoff <id> - stop a payment and cancel its future occurrences\n")
	b.WriteString("/reactivate <id> - resume a paid-off payment\n\n")
	b.WriteString("/paid <occurrence id> [amount] [YYYY-MM-DD] - mark an occurrence paid\n")
	b.WriteString("/skip <occurrence id> - skip an occurrence\n")
	b.WriteString("/undo <occurrence id> - return an occurrence to scheduled\n\n")
	b.WriteString("/settings [key value] - show or change anchor, due_soon, summary, telegram\n\n")
	b.WriteString("Types: one_time, weekly, biweekly, monthly, yearly")
	return b.String()
}

func (h *Handlers) handleCycle(c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/cycle")
	ctx, cancel := h.requestContext()
	defer cancel()

	offset := 0
	if args := c.Args(); len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "prev", "previous":
			offset = -1
		case "next":
			offset = 1
		case "current":
		default:
			return c.Send("Invalid argument. Use /cycle, /cycle prev or /cycle next.")
		}
	}

	today, _, err := h.today(ctx)
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	snap, err := h.cycles.Snapshot(ctx, today, offset)
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	logCtx.WithFields(logrus.Fields{"cycle": snap.Cycle.String(), "occurrences": len(snap.Occurrences)}).Info("Cycle snapshot sent")
	return c.Send(FormatCycle(snap))
}

func (h *Handlers) handleHistory(c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/history")
	ctx, cancel := h.requestContext()
	defer cancel()

	today, _, err := h.today(ctx)
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	page, err := h.cycles.History(ctx, ParseHistoryArgs(c.Args()))
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	return c.Send(FormatHistory(page, today))
}

func (h *Handlers) handleInbox(c telebot.Context) error {
	logCtx := h.handlerLogger(c, "/inbox")
	ctx, cancel := h.requestContext()
	defer cancel()

	if args := c.Args(); len(args) > 0 && strings.EqualFold(args[0], "read") {
		n, err := h.notifications.MarkInboxRead(ctx)
		if err != nil {
			return h.replyError(c, logCtx, err)
		}
		logCtx.WithField("marked", n).Info("Inbox marked read")
		return c.Send(FormatMarkedRead(n))
	}

	items, err := h.notifications.ListInbox(ctx, true, 10)
	if err != nil {
		return h.replyError(c, logCtx, err)
	}
	return c.Send(FormatInbox(items))
}

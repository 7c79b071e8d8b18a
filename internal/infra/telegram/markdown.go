package telegram

import (
	"fmt"
	"strings"

	"gopkg.in/telebot.v3"

	"paytrack/internal/domain/notification"
)

const (
	btnPaid = "paid"
	btnSkip = "skip"

	maxButtonRows = 10
)

var markdownV2Escaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`, "~", `\~`,
	"`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`, "|", `\|`,
	"{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// EscapeMarkdownV2 escapes every character Telegram reserves in MarkdownV2.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// RenderPayload formats a payload as a MarkdownV2 message body.
func RenderPayload(p notification.Payload) string {
	var b strings.Builder
	b.WriteString("*" + EscapeMarkdownV2(p.Title) + "*")
	for _, line := range p.Lines {
		b.WriteString("\n" + EscapeMarkdownV2(line))
	}
	if len(p.Items) > 0 {
		b.WriteString("\n")
	}
	for _, it := range p.Items {
		fmt.Fprintf(&b, "\n• %s %s \\(%s\\)",
			EscapeMarkdownV2(it.DueDate.String()),
			"*"+EscapeMarkdownV2(it.PaymentName)+"*",
			EscapeMarkdownV2("$"+it.Amount.StringFixed(2)))
	}
	return b.String()
}

// actionMarkup adds Paid/Skip buttons for each listed occurrence on due-soon and overdue digests.
func actionMarkup(p notification.Payload) *telebot.ReplyMarkup {
	if p.Type == notification.TypeDailySummary || len(p.Items) == 0 {
		return nil
	}
	m := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, min(len(p.Items), maxButtonRows))
	for _, it := range p.Items {
		if len(rows) == maxButtonRows {
			break
		}
		id := fmt.Sprint(it.OccurrenceID)
		rows = append(rows, m.Row(
			m.Data("✅ Paid: "+it.PaymentName, btnPaid, id),
			m.Data("⏭ Skip", btnSkip, id),
		))
	}
	m.Inline(rows...)
	return m
}

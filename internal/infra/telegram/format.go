package telegram

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"paytrack/internal/app"
	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/notification"
	"paytrack/internal/domain/payment"
)

const historyPageSize = 20

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func trimDollar(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "$")
}

// FormatCycle renders a cycle snapshot as plain text.
func FormatCycle(s *app.CycleSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cycle %s to %s (payday %s)\n\n", s.Cycle.Start, s.Cycle.End, s.Cycle.End)
	if len(s.Occurrences) == 0 {
		b.WriteString("No occurrences in this cycle.\n")
	}
	for _, o := range s.Occurrences {
		fmt.Fprintf(&b, "#%d %s %s %s [%s]\n", o.ID, o.DueDate, o.PaymentName, money(o.ExpectedAmount), o.DisplayStatus(s.Today))
	}
	fmt.Fprintf(&b, "\nScheduled: %s\nPaid: %s\nSkipped: %s\nRemaining: %s",
		money(s.Totals.Scheduled), money(s.Totals.Paid), money(s.Totals.Skipped), money(s.Totals.Remaining))
	return b.String()
}

func FormatPayments(list []*payment.Payment) string {
	if len(list) == 0 {
		return "No payments yet. Add one with /add_payment."
	}
	var b strings.Builder
	b.WriteString("Payments:\n")
	for _, p := range list {
		state := "active"
		switch {
		case p.PaidOffDate.Valid:
			state = "paid off " + p.PaidOffDate.String()
		case !p.IsActive:
			state = "inactive"
		}
		fmt.Fprintf(&b, "#%d %s %s %s from %s (%s)\n", p.ID, p.Name, money(p.ExpectedAmount), p.RecurrenceType, p.InitialDueDate, state)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseHistoryArgs treats status names as status filters and everything else as a name search.
func ParseHistoryArgs(args []string) payment.OccurrenceFilter {
	f := payment.OccurrenceFilter{Limit: historyPageSize, Sort: payment.SortDueDesc}
	var words []string
	for _, a := range args {
		if st := payment.Status(strings.ToLower(a)); st.Valid() {
			f.Statuses = append(f.Statuses, st)
			continue
		}
		words = append(words, a)
	}
	f.Query = strings.Join(words, " ")
	return f
}

func FormatHistory(page *app.HistoryPage, today calendar.Date) string {
	if len(page.Items) == 0 {
		return "No occurrences found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %d:\n", len(page.Items), page.Total)
	for _, o := range page.Items {
		fmt.Fprintf(&b, "#%d %s %s %s [%s]", o.ID, o.DueDate, o.PaymentName, money(o.ExpectedAmount), o.DisplayStatus(today))
		if o.Status == payment.StatusCompleted && o.AmountPaid.Valid {
			fmt.Fprintf(&b, " paid %s on %s", money(o.AmountPaid.Decimal), o.PaidDate)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatInbox(items []*notification.Notification) string {
	if len(items) == 0 {
		return "No unread notifications."
	}
	var b strings.Builder
	for i, n := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s %s\n%s", n.CreatedAt.Format("2006-01-02 15:04"), n.Title, n.Body)
	}
	b.WriteString("\n\nUse /inbox read to mark them read.")
	return b.String()
}

func FormatMarkedRead(n int) string {
	return fmt.Sprintf("Marked %d notifications read.", n)
}

func FormatTransition(o *payment.Occurrence) string {
	switch o.Status {
	case payment.StatusCompleted:
		return fmt.Sprintf("Occurrence #%d marked paid: %s on %s.", o.ID, money(o.AmountPaid.Decimal), o.PaidDate)
	case payment.StatusSkipped:
		return fmt.Sprintf("Occurrence #%d skipped.", o.ID)
	default:
		return fmt.Sprintf("Occurrence #%d is %s again (due %s).", o.ID, o.Status, o.DueDate)
	}
}

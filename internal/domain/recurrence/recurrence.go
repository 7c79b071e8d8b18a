// internal/domain/recurrence/recurrence.go
package recurrence

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"paytrack/internal/domain/calendar"
)

// Type is the recurrence rule stored on a payment.
type Type string

const (
	OneTime    Type = "one_time"
	Weekly     Type = "weekly"
	Biweekly   Type = "biweekly"
	MonthlyDOM Type = "monthly_dom"
	Yearly     Type = "yearly"
)

var Types = []Type{OneTime, Weekly, Biweekly, MonthlyDOM, Yearly}

// ParseType accepts the stored names plus "monthly" as an alias of monthly_dom.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case OneTime, Weekly, Biweekly, MonthlyDOM, Yearly:
		return t, nil
	case "monthly":
		return MonthlyDOM, nil
	default:
		return "", fmt.Errorf("unsupported recurrence type %q", s)
	}
}

func (t Type) Valid() bool {
	_, err := ParseType(string(t))
	return err == nil
}

// Rule is a recurrence with the desired month/day captured once from the initial due date.
// Clamped results never feed back into DesiredDay.
type Rule struct {
	Type         Type
	DesiredDay   int
	DesiredMonth time.Month
}

func NewRule(t Type, initialDue calendar.Date) Rule {
	return Rule{Type: t, DesiredDay: initialDue.Day, DesiredMonth: initialDue.Month}
}

// Next returns the due date following prior; ok is false once the rule is exhausted.
func (r Rule) Next(prior calendar.Date) (next calendar.Date, ok bool) {
	switch r.Type {
	case Weekly:
		return prior.AddDays(7), true
	case Biweekly:
		return prior.AddDays(14), true
	case MonthlyDOM:
		return calendar.Clamped(prior.Year, prior.Month+1, r.DesiredDay), true
	case Yearly:
		return calendar.Clamped(prior.Year+1, r.DesiredMonth, r.DesiredDay), true
	default:
		return calendar.Date{}, false
	}
}

// After yields due dates strictly after start, stopping once horizon is exceeded.
func (r Rule) After(start, horizon calendar.Date) iter.Seq[calendar.Date] {
	return func(yield func(calendar.Date) bool) {
		current := start
		for {
			next, ok := r.Next(current)
			if !ok || next.After(horizon) {
				return
			}
			if !yield(next) {
				return
			}
			current = next
		}
	}
}

// From yields first (when within horizon) followed by After(first, horizon).
func (r Rule) From(first, horizon calendar.Date) iter.Seq[calendar.Date] {
	return func(yield func(calendar.Date) bool) {
		if first.After(horizon) || !yield(first) {
			return
		}
		for d := range r.After(first, horizon) {
			if !yield(d) {
				return
			}
		}
	}
}

// Within yields the dates of the lattice anchored at first that fall in [start, end].
func (r Rule) Within(first, start, end calendar.Date) iter.Seq[calendar.Date] {
	return func(yield func(calendar.Date) bool) {
		for d := range r.From(first, end) {
			if d.Before(start) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

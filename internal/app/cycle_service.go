package app

import (
	"context"
	"fmt"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/paycycle"
	"paytrack/internal/domain/payment"
)

// CycleSnapshot is one cycle window with its occurrences and totals.
type CycleSnapshot struct {
	Today       calendar.Date
	Cycle       paycycle.Cycle
	Occurrences []*payment.OccurrenceView
	Totals      payment.Totals
}

// HistoryPage is one page of a filtered occurrence listing.
type HistoryPage struct {
	Items []*payment.OccurrenceView
	Total int
}

// CycleService answers read-side questions about cycles and occurrences.
type CycleService struct {
	payments payment.Repository
	settings *SettingsService
}

func NewCycleService(pr payment.Repository, ss *SettingsService) *CycleService {
	return &CycleService{payments: pr, settings: ss}
}

func (s *CycleService) calculator(ctx context.Context) (paycycle.Calculator, error) {
	schedule, _, err := s.settings.Load(ctx)
	if err != nil {
		return paycycle.Calculator{}, err
	}
	return schedule.Calculator(), nil
}

// GetCycle returns the cycle containing d under the current pay schedule.
func (s *CycleService) GetCycle(ctx context.Context, d calendar.Date) (paycycle.Cycle, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return paycycle.Cycle{}, err
	}
	return calc.CycleFor(d), nil
}

// GetTotals aggregates the window; paid is counted by paid_date, the rest by due_date.
func (s *CycleService) GetTotals(ctx context.Context, cycle paycycle.Cycle) (payment.Totals, error) {
	occs, err := s.payments.ListOccurrencesTouching(ctx, cycle.Start, cycle.End)
	if err != nil {
		return payment.Totals{}, fmt.Errorf("failed to load occurrences for totals: %w", err)
	}
	return payment.CalculateTotals(occs, cycle), nil
}

func (s *CycleService) ListOccurrences(ctx context.Context, f payment.OccurrenceFilter) ([]*payment.OccurrenceView, error) {
	return s.payments.ListOccurrences(ctx, f)
}

// Snapshot returns the cycle offset cycles away from the one containing today (-1 previous, 1 next).
func (s *CycleService) Snapshot(ctx context.Context, today calendar.Date, offset int) (*CycleSnapshot, error) {
	calc, err := s.calculator(ctx)
	if err != nil {
		return nil, err
	}
	cycle := calc.CycleFor(today)
	for ; offset > 0; offset-- {
		cycle = calc.NextCycle(cycle)
	}
	for ; offset < 0; offset++ {
		cycle = calc.PreviousCycle(cycle)
	}

	occs, err := s.payments.ListOccurrences(ctx, payment.OccurrenceFilter{
		Statuses: []payment.Status{payment.StatusScheduled, payment.StatusCompleted, payment.StatusSkipped},
		DueFrom:  calendar.NewNullDate(cycle.Start),
		DueTo:    calendar.NewNullDate(cycle.End),
		Sort:     payment.SortDueAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cycle occurrences: %w", err)
	}
	totals, err := s.GetTotals(ctx, cycle)
	if err != nil {
		return nil, err
	}
	return &CycleSnapshot{Today: today, Cycle: cycle, Occurrences: occs, Totals: totals}, nil
}

// History lists occurrences by filter with a total count for paging.
func (s *CycleService) History(ctx context.Context, f payment.OccurrenceFilter) (*HistoryPage, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Sort == "" {
		f.Sort = payment.SortDueDesc
	}
	switch f.Sort {
	case payment.SortDueAsc, payment.SortDueDesc, payment.SortPaidDesc:
	default:
		return nil, invalid("sort", "%q is not one of due_asc, due_desc, paid_desc", f.Sort)
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, invalid("status", "%q is not a known status", st)
		}
	}
	if f.From.Valid && f.To.Valid && f.From.Date.After(f.To.Date) {
		return nil, invalid("date_range", "start %s is after end %s", f.From.Date, f.To.Date)
	}

	items, err := s.payments.ListOccurrences(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	total, err := s.payments.CountOccurrences(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}
	return &HistoryPage{Items: items, Total: total}, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/payment"
)

const occurrenceColumns = `o.id, o.payment_id, o.due_date, o.expected_amount, o.status, o.amount_paid, o.paid_date, o.created_at, o.updated_at`

func occurrenceDest(o *payment.Occurrence) []any {
	return []any{&o.ID, &o.PaymentID, &o.DueDate, &o.ExpectedAmount, &o.Status, &o.AmountPaid, &o.PaidDate,
		timestamp{&o.CreatedAt}, timestamp{&o.UpdatedAt}}
}

func (r *PaymentRepository) GetOccurrence(ctx context.Context, id int64) (*payment.Occurrence, error) {
	query := r.dialect.Rebind(`SELECT ` + occurrenceColumns + ` FROM occurrences o WHERE o.id = ?`)
	o := &payment.Occurrence{}
	if err := r.q.QueryRowContext(ctx, query, id).Scan(occurrenceDest(o)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOccurrenceNotFound
		}
		return nil, fmt.Errorf("error getting occurrence by ID: %w", err)
	}
	return o, nil
}

func (r *PaymentRepository) UpdateOccurrence(ctx context.Context, o *payment.Occurrence) error {
	query := r.dialect.Rebind(`UPDATE occurrences
               SET status = ?, amount_paid = ?, paid_date = ?, updated_at = ?
               WHERE id = ?`)
	now := nowUTC()
	res, err := r.q.ExecContext(ctx, query, o.Status, o.AmountPaid, o.PaidDate, now, o.ID)
	if err != nil {
		return fmt.Errorf("error updating occurrence: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOccurrenceNotFound
	}
	o.UpdatedAt = now
	return nil
}

func (r *PaymentRepository) LatestDueDate(ctx context.Context, paymentID int64) (calendar.NullDate, error) {
	query := r.dialect.Rebind(`SELECT MAX(due_date) FROM occurrences WHERE payment_id = ? AND status <> 'canceled'`)
	var latest calendar.NullDate
	if err := r.q.QueryRowContext(ctx, query, paymentID).Scan(&latest); err != nil {
		return calendar.NullDate{}, fmt.Errorf("error getting latest due date: %w", err)
	}
	return latest, nil
}

func (r *PaymentRepository) CancelScheduledFrom(ctx context.Context, paymentID int64, from calendar.Date) (int, error) {
	query := r.dialect.Rebind(`UPDATE occurrences SET status = 'canceled', updated_at = ?
               WHERE payment_id = ? AND status = 'scheduled' AND due_date >= ?`)
	res, err := r.q.ExecContext(ctx, query, nowUTC(), paymentID, from)
	if err != nil {
		return 0, fmt.Errorf("error canceling scheduled occurrences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading canceled count: %w", err)
	}
	return int(n), nil
}

// filterClause renders the WHERE part shared by ListOccurrences and CountOccurrences.
func filterClause(f payment.OccurrenceFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.PaymentID != 0 {
		conds = append(conds, "o.payment_id = ?")
		args = append(args, f.PaymentID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		conds = append(conds, "o.status IN ("+strings.Join(marks, ", ")+")")
	}
	if f.DueFrom.Valid {
		conds = append(conds, "o.due_date >= ?")
		args = append(args, f.DueFrom.Date)
	}
	if f.DueTo.Valid {
		conds = append(conds, "o.due_date <= ?")
		args = append(args, f.DueTo.Date)
	}
	switch {
	case f.From.Valid && f.To.Valid:
		conds = append(conds, "((o.due_date >= ? AND o.due_date <= ?) OR (o.paid_date >= ? AND o.paid_date <= ?))")
		args = append(args, f.From.Date, f.To.Date, f.From.Date, f.To.Date)
	case f.From.Valid:
		conds = append(conds, "(o.due_date >= ? OR o.paid_date >= ?)")
		args = append(args, f.From.Date, f.From.Date)
	case f.To.Valid:
		conds = append(conds, "(o.due_date <= ? OR o.paid_date <= ?)")
		args = append(args, f.To.Date, f.To.Date)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, "LOWER(p.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q)+"%")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sort string) string {
	switch sort {
	case payment.SortDueDesc:
		return " ORDER BY o.due_date DESC, p.name, o.id DESC"
	case payment.SortPaidDesc:
		return " ORDER BY (o.paid_date IS NULL), o.paid_date DESC, o.due_date DESC, o.id DESC"
	default:
		return " ORDER BY o.due_date, p.name, o.id"
	}
}

func (r *PaymentRepository) ListOccurrences(ctx context.Context, f payment.OccurrenceFilter) ([]*payment.OccurrenceView, error) {
	where, args := filterClause(f)
	query := `SELECT ` + occurrenceColumns + `, p.name FROM occurrences o JOIN payments p ON p.id = o.payment_id` +
		where + orderClause(f.Sort)
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.q.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error listing occurrences: %w", err)
	}
	defer rows.Close()

	views := make([]*payment.OccurrenceView, 0)
	for rows.Next() {
		v := &payment.OccurrenceView{}
		if err := rows.Scan(append(occurrenceDest(&v.Occurrence), &v.PaymentName)...); err != nil {
			return nil, fmt.Errorf("error scanning occurrence: %w", err)
		}
		views = append(views, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrences: %w", err)
	}
	return views, nil
}

func (r *PaymentRepository) CountOccurrences(ctx context.Context, f payment.OccurrenceFilter) (int, error) {
	where, args := filterClause(f)
	query := `SELECT COUNT(*) FROM occurrences o JOIN payments p ON p.id = o.payment_id` + where
	var n int
	if err := r.q.QueryRowContext(ctx, r.dialect.Rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting occurrences: %w", err)
	}
	return n, nil
}

func (r *PaymentRepository) ListOccurrencesTouching(ctx context.Context, start, end calendar.Date) ([]*payment.Occurrence, error) {
	query := r.dialect.Rebind(`SELECT ` + occurrenceColumns + ` FROM occurrences o
               WHERE (o.due_date >= ? AND o.due_date <= ?) OR (o.paid_date >= ? AND o.paid_date <= ?)
               ORDER BY o.due_date, o.id`)
	rows, err := r.q.QueryContext(ctx, query, start, end, start, end)
	if err != nil {
		return nil, fmt.Errorf("error listing occurrences for totals: %w", err)
	}
	defer rows.Close()

	occs := make([]*payment.Occurrence, 0)
	for rows.Next() {
		o := &payment.Occurrence{}
		if err := rows.Scan(occurrenceDest(o)...); err != nil {
			return nil, fmt.Errorf("error scanning occurrence: %w", err)
		}
		occs = append(occs, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrences: %w", err)
	}
	return occs, nil
}

// internal/infra/database/payment_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paytrack/internal/domain/payment"
)

// Custom errors
var ErrPaymentNotFound = fmt.Errorf("payment not found")
var ErrOccurrenceNotFound = fmt.Errorf("occurrence not found")

var _ payment.Repository = (*PaymentRepository)(nil)

type PaymentRepository struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	inTx    bool
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db.DB, q: db.DB, dialect: db.Dialect}
}

// RunInTx runs fn with a repository bound to a single transaction. Nested calls reuse it.
func (r *PaymentRepository) RunInTx(ctx context.Context, fn func(payment.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(&PaymentRepository{db: r.db, q: tx, dialect: r.dialect, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const paymentColumns = `id, name, expected_amount, initial_due_date, recurrence_type, priority, is_active, paid_off_date, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*payment.Payment, error) {
	p := &payment.Payment{}
	err := row.Scan(&p.ID, &p.Name, &p.ExpectedAmount, &p.InitialDueDate, &p.RecurrenceType, &p.Priority,
		&p.IsActive, &p.PaidOffDate, timestamp{&p.CreatedAt}, timestamp{&p.UpdatedAt})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, p *payment.Payment) error {
	query := r.dialect.Rebind(`INSERT INTO payments (name, expected_amount, initial_due_date, recurrence_type, priority, is_active, paid_off_date, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
               RETURNING id`)
	now := nowUTC()
	err := r.q.QueryRowContext(ctx, query, p.Name, p.ExpectedAmount, p.InitialDueDate, p.RecurrenceType, p.Priority,
		p.IsActive, p.PaidOffDate, now, now).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("error creating payment: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, id int64) (*payment.Payment, error) {
	return r.getPayment(ctx, id, "")
}

func (r *PaymentRepository) LockPayment(ctx context.Context, id int64) (*payment.Payment, error) {
	return r.getPayment(ctx, id, r.dialect.ForUpdate())
}

func (r *PaymentRepository) getPayment(ctx context.Context, id int64, suffix string) (*payment.Payment, error) {
	query := r.dialect.Rebind(`SELECT ` + paymentColumns + ` FROM payments WHERE id = ?` + suffix)
	p, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("error getting payment by ID: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) UpdatePayment(ctx context.Context, p *payment.Payment) error {
	query := r.dialect.Rebind(`UPDATE payments
               SET name = ?, expected_amount = ?, initial_due_date = ?, recurrence_type = ?, priority = ?,
                   is_active = ?, paid_off_date = ?, updated_at = ?
               WHERE id = ?`)
	now := nowUTC()
	res, err := r.q.ExecContext(ctx, query, p.Name, p.ExpectedAmount, p.InitialDueDate, p.RecurrenceType, p.Priority,
		p.IsActive, p.PaidOffDate, now, p.ID)
	if err != nil {
		return fmt.Errorf("error updating payment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPaymentNotFound
	}
	p.UpdatedAt = now
	return nil
}

func (r *PaymentRepository) ListPayments(ctx context.Context) ([]*payment.Payment, error) {
	return r.listPayments(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY is_active DESC, name, id`)
}

func (r *PaymentRepository) ListActivePayments(ctx context.Context) ([]*payment.Payment, error) {
	return r.listPayments(ctx, `SELECT `+paymentColumns+` FROM payments WHERE is_active = TRUE ORDER BY id`)
}

func (r *PaymentRepository) listPayments(ctx context.Context, query string) ([]*payment.Payment, error) {
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*payment.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return payments, nil
}

// InsertOccurrence relies on the partial unique index; a conflict returns no row.
func (r *PaymentRepository) InsertOccurrence(ctx context.Context, o *payment.Occurrence) (bool, error) {
	query := r.dialect.Rebind(`INSERT INTO occurrences (payment_id, due_date, expected_amount, status, amount_paid, paid_date, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)
               ON CONFLICT DO NOTHING
               RETURNING id`)
	now := nowUTC()
	err := r.q.QueryRowContext(ctx, query, o.PaymentID, o.DueDate, o.ExpectedAmount, o.Status, o.AmountPaid, o.PaidDate, now, now).Scan(&o.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error inserting occurrence: %w", err)
	}
	o.CreatedAt, o.UpdatedAt = now, now
	return true, nil
}

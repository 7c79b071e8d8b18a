package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"paytrack/internal/domain/calendar"
	"paytrack/internal/domain/payment"
	"paytrack/internal/domain/recurrence"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(string(DialectSQLite), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func createTestPayment(t *testing.T, repo *PaymentRepository, name, amount, due string, typ recurrence.Type) *payment.Payment {
	t.Helper()
	p := &payment.Payment{
		Name:           name,
		ExpectedAmount: decimal.RequireFromString(amount),
		InitialDueDate: calendar.MustParse(due),
		RecurrenceType: typ,
		IsActive:       true,
	}
	require.NoError(t, repo.CreatePayment(context.Background(), p))
	return p
}

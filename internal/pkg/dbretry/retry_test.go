package dbretry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quickcommerce/storefront/internal/pkg/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: true},
		{name: "deadlock", err: fmt.Errorf("query: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), want: true},
		{name: "lock not available", err: &pgconn.PgError{Code: pgerrcode.LockNotAvailable}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestRead(t *testing.T) {
	t.Run("retries once on transient error", func(t *testing.T) {
		calls := 0
		err := Read(context.Background(), func() error {
			calls++
			if calls == 1 {
				return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after the second attempt", func(t *testing.T) {
		calls := 0
		err := Read(context.Background(), func() error {
			calls++
			return &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
		})
		assert.True(t, IsTransient(err))
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := Read(context.Background(), func() error {
			calls++
			return errors.New("syntax error")
		})
		assert.EqualError(t, err, "syntax error")
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := Read(ctx, func() error {
			calls++
			return &pgconn.PgError{Code: pgerrcode.LockNotAvailable}
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestReadOn(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	assert.False(t, InTransaction(db))

	calls := 0
	err := ReadOn(ctx, db, func() error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "retried outside a transaction")

	calls = 0
	err = db.Transaction(func(tx *gorm.DB) error {
		assert.True(t, InTransaction(tx))
		return ReadOn(ctx, tx, func() error {
			calls++
			return &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
		})
	})
	assert.True(t, IsTransient(err))
	assert.Equal(t, 1, calls, "not retried inside a transaction")
}

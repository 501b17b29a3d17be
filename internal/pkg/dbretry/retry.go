// Package dbretry retries read-only queries that failed on a transient
// Postgres condition. Writes must not go through here.
package dbretry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const backoff = 25 * time.Millisecond

// IsTransient reports whether err is a Postgres error that is expected to
// succeed when the statement is simply run again.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure,
		pgerrcode.DeadlockDetected,
		pgerrcode.LockNotAvailable:
		return true
	}
	return false
}

// Read runs fn and, if it fails with a transient error, runs it once more.
func Read(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !IsTransient(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return err
	case <-time.After(backoff):
	}
	return fn()
}

// InTransaction reports whether db is bound to an open transaction
func InTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil {
		return false
	}
	committer, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok && committer != nil
}

// ReadOn is Read for queries issued on db. Inside a transaction fn runs once:
// Postgres aborts the transaction on the first error, so a second attempt
// could only fail with in_failed_sql_transaction.
func ReadOn(ctx context.Context, db *gorm.DB, fn func() error) error {
	if InTransaction(db) {
		return fn()
	}
	return Read(ctx, fn)
}

// Package dbx holds the database/sql seam shared by the Postgres stores:
// DBTX is satisfied by both *sql.DB and *sql.Tx, and WithTx runs a function
// inside a transaction.
package dbx

import (
	"context"
	"database/sql"
	"errors"
)

// DBTX is the subset of database/sql used by the stores.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc is the unit of work executed by WithTx.
type TxFunc func(ctx context.Context, tx DBTX) error

// WithTx begins a transaction and runs fn with it. The transaction commits
// when fn returns nil and rolls back on error or panic. Panics are rethrown.
//
// fn may return a Commit-wrapped error to persist its writes while still
// reporting the error to the caller.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		var ce commitError
		if errors.As(err, &ce) {
			if cerr := tx.Commit(); cerr != nil {
				err = cerr
				return
			}
			err = ce.err
			return
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

type commitError struct{ err error }

func (e commitError) Error() string { return e.err.Error() }
func (e commitError) Unwrap() error { return e.err }

// Commit marks err as a result that must not roll back the transaction.
// WithTx commits and then returns err unwrapped.
func Commit(err error) error {
	if err == nil {
		return nil
	}
	return commitError{err: err}
}

// IsCommit reports whether err came from Commit.
func IsCommit(err error) bool {
	var ce commitError
	return errors.As(err, &ce)
}

// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/and161185/scoutfund/internal/errs"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// used by repositories. It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SELECT and returns a rows iterator.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// BeginTx starts a transaction with the provided options.
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	// Close shuts down the pool and frees resources.
	Close()
}

// RetryPolicy bounds the retries applied to transient storage errors.
type RetryPolicy struct {
	Attempts uint64        // total attempts including the first; 0 or 1 disables retries
	Base     time.Duration // first backoff step
	Cap      time.Duration // upper bound of a single backoff step
}

// DefaultRetryPolicy is used when a DB is constructed without an explicit policy.
var DefaultRetryPolicy = RetryPolicy{Attempts: 4, Base: 25 * time.Millisecond, Cap: time.Second}

// DB wraps pgxpool.Pool to satisfy repository constructors and allow testing.
type DB struct {
	Pool  PgxPool
	Retry RetryPolicy
}

// New creates a new connection pool for the given DSN.
func New(ctx context.Context, dsn string, policy RetryPolicy) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool, Retry: policy}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

func (db *DB) backoff() retry.Backoff {
	p := db.Retry
	if p.Attempts == 0 && p.Base == 0 {
		p = DefaultRetryPolicy
	}
	if p.Base <= 0 {
		p.Base = time.Millisecond
	}
	if p.Cap < p.Base {
		p.Cap = p.Base
	}
	var retries uint64
	if p.Attempts > 1 {
		retries = p.Attempts - 1
	}
	b := retry.NewExponential(p.Base)
	b = retry.WithCappedDuration(p.Cap, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(retries, b)
}

// do runs fn, retrying with exponential backoff while it fails transiently.
// Errors leave do already classified: transient failures surface as errs.ErrTransient.
func (db *DB) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, db.backoff(), func(ctx context.Context) error {
		err := classify(fn(ctx))
		if err != nil && errs.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Do is do for callers outside the package that share the pool, such as the redemption limiter.
func (db *DB) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.do(ctx, fn)
}

// inTx runs fn in a transaction, committing on success and rolling back on error.
func (db *DB) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()
	return fn(tx)
}

// transientCodes are SQLSTATEs worth retrying: serialization failure, deadlock,
// lock not available, too many connections, cannot connect now.
var transientCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
	"53300": true,
	"57P03": true,
}

// classify maps raw driver errors onto the errs taxonomy. Domain errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var de *errs.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		if transientCodes[pg.Code] || strings.HasPrefix(pg.Code, "08") {
			return errs.ErrTransient.Wrap(err).With("sqlstate", pg.Code)
		}
		return err
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return errs.ErrTransient.Wrap(err)
	}
	return err
}

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}

// notFound converts pgx.ErrNoRows into a NotFound error naming the entity.
func notFound(err error, entity, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound.With("entity", entity, entity+"_id", id)
	}
	return err
}

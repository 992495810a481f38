package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/scoutfund/internal/repository/postgres"
)

// PG keeps one row per (account, ip hash) in redeem_limiter. Failures inside
// the window accumulate; reaching maxFails sets blocked_until in the same statement.
// Statements run through the storage adapter, so transient failures are retried
// and surface as errs.ErrTransient.
type PG struct {
	db       *postgres.DB
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

// NewPG constructs a PostgreSQL-backed limiter sharing the store's pool and retry policy.
func NewPG(db *postgres.DB, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	if maxFails <= 0 {
		maxFails = 1
	}
	return &PG{db: db, window: window, maxFails: maxFails, blockFor: blockFor, now: time.Now}
}

var _ Limiter = (*PG)(nil)

// HashIP fingerprints a client address so raw IPs are never stored.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

const selectBlock = `SELECT blocked_until FROM redeem_limiter WHERE account_id=$1 AND ip_hash=$2`

// Allow reports whether the key is outside a lockout, and how long is left otherwise.
func (l *PG) Allow(ctx context.Context, accountID uuid.UUID, ipHash []byte) (bool, time.Duration, error) {
	var (
		until time.Time
		found = true
	)
	err := l.db.Do(ctx, func(ctx context.Context) error {
		err := l.db.Pool.QueryRow(ctx, selectBlock, accountID, ipHash).Scan(&until)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return false, 0, err
	}
	if !found {
		return true, 0, nil
	}
	return remaining(until, l.now())
}

func remaining(until, now time.Time) (bool, time.Duration, error) {
	if until.After(now) {
		return false, until.Sub(now), nil
	}
	return true, 0, nil
}

const resetKey = `DELETE FROM redeem_limiter WHERE account_id=$1 AND ip_hash=$2`

// Success forgets the key's failures.
func (l *PG) Success(ctx context.Context, accountID uuid.UUID, ipHash []byte) error {
	return l.db.Do(ctx, func(ctx context.Context) error {
		_, err := l.db.Pool.Exec(ctx, resetKey, accountID, ipHash)
		return err
	})
}

// recordFailure bumps the counter (restarting it once the window since the last
// failure has passed) and sets the lockout when the new count reaches the limit.
const recordFailure = `
INSERT INTO redeem_limiter AS rl (account_id, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, CASE WHEN $4 <= 1 THEN $5::timestamptz ELSE 'epoch' END, $3)
ON CONFLICT (account_id, ip_hash) DO UPDATE SET
  fail_count = CASE WHEN $3 - rl.updated_at > $6::interval THEN 1 ELSE rl.fail_count + 1 END,
  blocked_until = CASE
    WHEN (CASE WHEN $3 - rl.updated_at > $6::interval THEN 1 ELSE rl.fail_count + 1 END) >= $4
    THEN $5::timestamptz ELSE rl.blocked_until END,
  updated_at = $3
RETURNING fail_count, blocked_until`

// Failure records a failed attempt and reports whether the key is now blocked.
func (l *PG) Failure(ctx context.Context, accountID uuid.UUID, ipHash []byte) (bool, time.Duration, error) {
	now := l.now().UTC()
	var (
		fails int
		until time.Time
	)
	err := l.db.Do(ctx, func(ctx context.Context) error {
		return l.db.Pool.QueryRow(ctx, recordFailure,
			accountID, ipHash, now, l.maxFails, now.Add(l.blockFor), l.window,
		).Scan(&fails, &until)
	})
	if err != nil {
		return false, 0, err
	}
	ok, left, _ := remaining(until, now)
	return !ok, left, nil
}

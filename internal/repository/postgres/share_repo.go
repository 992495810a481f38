package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// ShareRepo implements ShareRepository using PostgreSQL.
type ShareRepo struct{ db *DB }

// NewShareRepo constructs a share repository.
func NewShareRepo(db *DB) *ShareRepo { return &ShareRepo{db: db} }

const shareCols = `profile_id, account_id, permissions, created_at, updated_at`

func scanShare(row pgx.Row, s *model.Share) error {
	var perms int16
	if err := row.Scan(&s.ProfileID, &s.AccountID, &perms, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	s.Permissions = model.Permission(perms)
	return nil
}

// GetShare selects the share of a (profile, account) pair.
func (r *ShareRepo) GetShare(ctx context.Context, profileID, accountID uuid.UUID) (*model.Share, error) {
	q := `SELECT ` + shareCols + ` FROM shares WHERE profile_id=$1 AND account_id=$2`
	var s model.Share
	err := r.db.do(ctx, func(ctx context.Context) error {
		err := scanShare(r.db.Pool.QueryRow(ctx, q, profileID, accountID), &s)
		return notFound(err, "share", profileID.String()+"/"+accountID.String())
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const liveProfile = `SELECT EXISTS (SELECT 1 FROM profiles WHERE id=$1 AND NOT deleted)`

// profileGone tells a skipped guarded write apart: nil when the profile is still live.
func (db *DB) profileGone(ctx context.Context, profileID uuid.UUID) error {
	var live bool
	if err := db.Pool.QueryRow(ctx, liveProfile, profileID).Scan(&live); err != nil {
		return err
	}
	if !live {
		return errs.ErrNotFound.With("entity", "profile", "profile_id", profileID.String())
	}
	return nil
}

// PutShare inserts a share unless the pair already has one or the profile is no longer live.
func (r *ShareRepo) PutShare(ctx context.Context, s *model.Share) error {
	const q = `
INSERT INTO shares (profile_id, account_id, permissions, created_at, updated_at)
SELECT $1, $2, $3, $4, $4
WHERE EXISTS (SELECT 1 FROM profiles WHERE id=$1 AND NOT deleted)
ON CONFLICT (profile_id, account_id) DO NOTHING`
	return r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, s.ProfileID, s.AccountID, int16(s.Permissions.Normalize()), s.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			if err := r.db.profileGone(ctx, s.ProfileID); err != nil {
				return err
			}
			return errs.ErrConditionFailed.With("profile_id", s.ProfileID.String(), "account_id", s.AccountID.String())
		}
		s.UpdatedAt = s.CreatedAt
		return nil
	})
}

// MergeShare unions perms into the pair's existing share and returns the result.
// A missing share and a profile that is no longer live both report ErrNotFound.
func (r *ShareRepo) MergeShare(ctx context.Context, profileID, accountID uuid.UUID, perms model.Permission, at time.Time) (*model.Share, error) {
	q := `
UPDATE shares SET permissions = permissions | $3, updated_at=$4
WHERE profile_id=$1 AND account_id=$2
  AND EXISTS (SELECT 1 FROM profiles WHERE id=$1 AND NOT deleted)
RETURNING ` + shareCols
	var s model.Share
	err := r.db.do(ctx, func(ctx context.Context) error {
		err := scanShare(r.db.Pool.QueryRow(ctx, q, profileID, accountID, int16(perms.Normalize()), at), &s)
		return notFound(err, "share", profileID.String()+"/"+accountID.String())
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ShareRepo) list(ctx context.Context, q string, arg uuid.UUID) ([]model.Share, error) {
	var out []model.Share
	err := r.db.do(ctx, func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Pool.Query(ctx, q, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s model.Share
			if err := scanShare(rows, &s); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	return out, err
}

// ListSharesByProfile returns every share of a profile.
func (r *ShareRepo) ListSharesByProfile(ctx context.Context, profileID uuid.UUID) ([]model.Share, error) {
	return r.list(ctx, `SELECT `+shareCols+` FROM shares WHERE profile_id=$1 ORDER BY created_at, account_id`, profileID)
}

// ListSharesByAccount returns every share granted to an account.
func (r *ShareRepo) ListSharesByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Share, error) {
	return r.list(ctx, `SELECT `+shareCols+` FROM shares WHERE account_id=$1 ORDER BY created_at, profile_id`, accountID)
}

// DeleteShare revokes a share.
func (r *ShareRepo) DeleteShare(ctx context.Context, profileID, accountID uuid.UUID) error {
	const q = `DELETE FROM shares WHERE profile_id=$1 AND account_id=$2`
	return r.db.do(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, q, profileID, accountID)
		return err
	})
}

// DeleteSharesByProfile removes one page of a profile's shares.
func (r *ShareRepo) DeleteSharesByProfile(ctx context.Context, profileID uuid.UUID, limit int) (int, error) {
	const q = `
DELETE FROM shares WHERE profile_id=$1 AND account_id IN (
  SELECT account_id FROM shares WHERE profile_id=$1 LIMIT $2
)`
	var n int
	err := r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, profileID, limit)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

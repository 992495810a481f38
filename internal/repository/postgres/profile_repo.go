package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
	"github.com/and161185/scoutfund/internal/repository"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileCols = `id, owner_id, display_name, deleted, deleted_at, ver, created_at, updated_at`

func scanProfile(row pgx.Row, p *model.Profile) error {
	return row.Scan(&p.ID, &p.OwnerID, &p.DisplayName, &p.Deleted, &p.DeletedAt, &p.Ver, &p.CreatedAt, &p.UpdatedAt)
}

const insertProfile = `
INSERT INTO profiles (id, owner_id, display_name, ver, created_at, updated_at)
VALUES ($1, $2, $3, 1, $4, $4)`

// CreateProfile inserts a new profile with ver=1.
func (r *ProfileRepo) CreateProfile(ctx context.Context, p *model.Profile) error {
	return r.db.do(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, insertProfile, p.ID, p.OwnerID, p.DisplayName, p.CreatedAt)
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists.With("entity", "profile", "profile_id", p.ID.String())
		}
		if err == nil {
			p.Ver = 1
			p.UpdatedAt = p.CreatedAt
		}
		return err
	})
}

// GetProfile selects a profile by ID, soft-deleted or not.
func (r *ProfileRepo) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	q := `SELECT ` + profileCols + ` FROM profiles WHERE id=$1`
	var p model.Profile
	err := r.db.do(ctx, func(ctx context.Context) error {
		return notFound(scanProfile(r.db.Pool.QueryRow(ctx, q, id), &p), "profile", id.String())
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) list(ctx context.Context, q string, args ...any) ([]model.Profile, error) {
	var out []model.Profile
	err := r.db.do(ctx, func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Pool.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var p model.Profile
			if err := scanProfile(rows, &p); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// ListProfilesByOwner returns live profiles of an owner, oldest first.
func (r *ProfileRepo) ListProfilesByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Profile, error) {
	q := `SELECT ` + profileCols + ` FROM profiles WHERE owner_id=$1 AND NOT deleted ORDER BY created_at, id`
	return r.list(ctx, q, ownerID)
}

// ListDeletedProfiles returns soft-deleted profiles past the cursor, oldest deletion first.
func (r *ProfileRepo) ListDeletedProfiles(ctx context.Context, after repository.DeletedCursor, limit int) ([]model.Profile, error) {
	q := `SELECT ` + profileCols + ` FROM profiles
WHERE deleted AND (deleted_at, id) > ($1, $2)
ORDER BY deleted_at, id LIMIT $3`
	return r.list(ctx, q, after.DeletedAt, after.ID, limit)
}

// RenameProfile updates the display name with optimistic concurrency and returns the new version.
func (r *ProfileRepo) RenameProfile(ctx context.Context, id uuid.UUID, baseVer int64, name string, at time.Time) (int64, error) {
	const upd = `
UPDATE profiles SET display_name=$3, ver=ver+1, updated_at=$4
WHERE id=$1 AND ver=$2 AND NOT deleted
RETURNING ver`
	var ver int64
	err := r.db.do(ctx, func(ctx context.Context) error {
		err := r.db.Pool.QueryRow(ctx, upd, id, baseVer, name, at).Scan(&ver)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.whyNotLive(ctx, id, errs.ErrVersionConflict)
		}
		return err
	})
	return ver, err
}

// whyNotLive explains a failed guarded write: NotFound when the profile is gone, otherwise cause.
func (r *ProfileRepo) whyNotLive(ctx context.Context, id uuid.UUID, cause *errs.Error) error {
	const q = `SELECT deleted FROM profiles WHERE id=$1`
	var deleted bool
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&deleted); err != nil {
		return notFound(err, "profile", id.String())
	}
	if deleted {
		return errs.ErrNotFound.With("entity", "profile", "profile_id", id.String())
	}
	return cause.With("profile_id", id.String())
}

// TransferOwner swaps the owner if it still equals expectedOwner and drops the new owner's share.
func (r *ProfileRepo) TransferOwner(ctx context.Context, id, expectedOwner, newOwner uuid.UUID, at time.Time) (*model.Profile, error) {
	upd := `
UPDATE profiles SET owner_id=$3, ver=ver+1, updated_at=$4
WHERE id=$1 AND owner_id=$2 AND NOT deleted
RETURNING ` + profileCols
	const delShare = `DELETE FROM shares WHERE profile_id=$1 AND account_id=$2`

	var p model.Profile
	err := r.db.do(ctx, func(ctx context.Context) error {
		return r.db.inTx(ctx, func(tx pgx.Tx) error {
			err := scanProfile(tx.QueryRow(ctx, upd, id, expectedOwner, newOwner, at), &p)
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrConditionFailed.With("profile_id", id.String(), "expected_owner", expectedOwner.String())
			}
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, delShare, id, newOwner)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkProfileDeleted sets the soft-delete flag on a profile owned by ownerID.
func (r *ProfileRepo) MarkProfileDeleted(ctx context.Context, id, ownerID uuid.UUID, at time.Time) error {
	const upd = `
UPDATE profiles SET deleted=true, deleted_at=$3, ver=ver+1, updated_at=$3
WHERE id=$1 AND owner_id=$2 AND NOT deleted`
	const sel = `SELECT owner_id, deleted FROM profiles WHERE id=$1`
	return r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, upd, id, ownerID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
		var (
			owner   uuid.UUID
			deleted bool
		)
		if err := r.db.Pool.QueryRow(ctx, sel, id).Scan(&owner, &deleted); err != nil {
			return notFound(err, "profile", id.String())
		}
		if owner != ownerID {
			return errs.ErrConditionFailed.With("profile_id", id.String(), "expected_owner", ownerID.String())
		}
		// already marked by an earlier attempt
		return nil
	})
}

// PurgeProfile hard-deletes a soft-deleted profile.
func (r *ProfileRepo) PurgeProfile(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM profiles WHERE id=$1 AND deleted`
	return r.db.do(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, q, id)
		return err
	})
}

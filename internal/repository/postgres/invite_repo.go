package postgres

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// InviteRepo implements InviteRepository using PostgreSQL.
type InviteRepo struct{ db *DB }

// NewInviteRepo constructs an invite repository.
func NewInviteRepo(db *DB) *InviteRepo { return &InviteRepo{db: db} }

const inviteCols = `id, code_hash, profile_id, permissions, status, created_by, ` +
	`COALESCE(used_by, '00000000-0000-0000-0000-000000000000'::uuid), used_at, expires_at, created_at`

func scanInvite(row pgx.Row, inv *model.Invite) error {
	var (
		perms  int16
		status string
	)
	if err := row.Scan(&inv.ID, &inv.CodeHash, &inv.ProfileID, &perms, &status, &inv.CreatedBy,
		&inv.UsedBy, &inv.UsedAt, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
		return err
	}
	inv.Permissions = model.Permission(perms)
	inv.Status = model.InviteStatus(status)
	return nil
}

// PutInvite inserts a pending invite while its profile is live; a code hash collision
// is reported as ErrConditionFailed and a missing or deleted profile as ErrNotFound.
func (r *InviteRepo) PutInvite(ctx context.Context, inv *model.Invite) error {
	const q = `
INSERT INTO invites (id, code_hash, profile_id, permissions, status, created_by, expires_at, created_at)
SELECT $1, $2, $3, $4, 'pending', $5, $6, $7
WHERE EXISTS (SELECT 1 FROM profiles WHERE id=$3 AND NOT deleted)`
	return r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, inv.ID, inv.CodeHash, inv.ProfileID, int16(inv.Permissions.Normalize()),
			inv.CreatedBy, inv.ExpiresAt, inv.CreatedAt)
		if isUniqueViolation(err) {
			return errs.ErrConditionFailed.With("entity", "invite", "reason", "code collision")
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound.With("entity", "profile", "profile_id", inv.ProfileID.String())
		}
		inv.Status = model.InvitePending
		return nil
	})
}

// GetInvite selects an invite by ID.
func (r *InviteRepo) GetInvite(ctx context.Context, id uuid.UUID) (*model.Invite, error) {
	q := `SELECT ` + inviteCols + ` FROM invites WHERE id=$1`
	var inv model.Invite
	err := r.db.do(ctx, func(ctx context.Context) error {
		return notFound(scanInvite(r.db.Pool.QueryRow(ctx, q, id), &inv), "invite", id.String())
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInviteByCode selects an invite through the code hash index.
func (r *InviteRepo) GetInviteByCode(ctx context.Context, codeHash []byte) (*model.Invite, error) {
	q := `SELECT ` + inviteCols + ` FROM invites WHERE code_hash=$1`
	var inv model.Invite
	err := r.db.do(ctx, func(ctx context.Context) error {
		return notFound(scanInvite(r.db.Pool.QueryRow(ctx, q, codeHash), &inv), "invite", hex.EncodeToString(codeHash[:min(4, len(codeHash))]))
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// RedeemInvite marks the invite used and upserts the redeemer's share in one transaction.
func (r *InviteRepo) RedeemInvite(ctx context.Context, inviteID, redeemer uuid.UUID, at time.Time) (model.Redemption, error) {
	use := `
UPDATE invites SET status='used', used_by=$2, used_at=$3
WHERE id=$1 AND status='pending' AND expires_at > $3
  AND EXISTS (SELECT 1 FROM profiles p WHERE p.id = invites.profile_id AND NOT p.deleted)
RETURNING ` + inviteCols
	upsert := `
INSERT INTO shares (profile_id, account_id, permissions, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (profile_id, account_id)
DO UPDATE SET permissions = shares.permissions | EXCLUDED.permissions, updated_at = EXCLUDED.updated_at
RETURNING ` + shareCols

	var red model.Redemption
	err := r.db.do(ctx, func(ctx context.Context) error {
		return r.db.inTx(ctx, func(tx pgx.Tx) error {
			err := scanInvite(tx.QueryRow(ctx, use, inviteID, redeemer, at), &red.Invite)
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrConditionFailed.With("invite_id", inviteID.String())
			}
			if err != nil {
				return err
			}
			perms := int16(red.Invite.Permissions.Normalize())
			return scanShare(tx.QueryRow(ctx, upsert, red.Invite.ProfileID, redeemer, perms, at), &red.Share)
		})
	})
	if err != nil {
		return model.Redemption{}, err
	}
	return red, nil
}

// ListInvitesByProfile returns every invite of a profile, newest first.
func (r *InviteRepo) ListInvitesByProfile(ctx context.Context, profileID uuid.UUID) ([]model.Invite, error) {
	q := `SELECT ` + inviteCols + ` FROM invites WHERE profile_id=$1 ORDER BY created_at DESC, id`
	var out []model.Invite
	err := r.db.do(ctx, func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Pool.Query(ctx, q, profileID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var inv model.Invite
			if err := scanInvite(rows, &inv); err != nil {
				return err
			}
			out = append(out, inv)
		}
		return rows.Err()
	})
	return out, err
}

// ExpireInvite moves a pending invite to expired.
func (r *InviteRepo) ExpireInvite(ctx context.Context, id uuid.UUID) error {
	const upd = `UPDATE invites SET status='expired' WHERE id=$1 AND status='pending'`
	const sel = `SELECT status FROM invites WHERE id=$1`
	return r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, upd, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
		var status string
		if err := r.db.Pool.QueryRow(ctx, sel, id).Scan(&status); err != nil {
			return notFound(err, "invite", id.String())
		}
		return errs.ErrConditionFailed.With("invite_id", id.String(), "status", status)
	})
}

// ExpireInvites moves one page of pending invites past expiry to expired.
func (r *InviteRepo) ExpireInvites(ctx context.Context, now time.Time, limit int) (int, error) {
	const q = `
UPDATE invites SET status='expired'
WHERE id IN (
  SELECT id FROM invites WHERE status='pending' AND expires_at <= $1 ORDER BY expires_at LIMIT $2
) AND status='pending'`
	var n int
	err := r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, now, limit)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

// DeleteInvitesByProfile removes one page of a profile's invites.
func (r *InviteRepo) DeleteInvitesByProfile(ctx context.Context, profileID uuid.UUID, limit int) (int, error) {
	const q = `
DELETE FROM invites WHERE id IN (
  SELECT id FROM invites WHERE profile_id=$1 LIMIT $2
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

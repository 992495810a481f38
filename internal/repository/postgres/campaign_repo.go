package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// CampaignRepo implements CampaignRepository using PostgreSQL.
type CampaignRepo struct{ db *DB }

// NewCampaignRepo constructs a campaign repository.
func NewCampaignRepo(db *DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignCols = `id, profile_id, catalog_id, name, starts_on, ends_on, origin_code, created_at`

func scanCampaign(row pgx.Row, c *model.Campaign) error {
	return row.Scan(&c.ID, &c.ProfileID, &c.CatalogID, &c.Name, &c.StartsOn, &c.EndsOn, &c.OriginCode, &c.CreatedAt)
}

// CreateCampaign inserts a campaign if, at write time, its profile is live and its catalog is not deleted.
func (r *CampaignRepo) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	const q = `
INSERT INTO campaigns (id, profile_id, catalog_id, name, starts_on, ends_on, origin_code, created_at)
SELECT $1, $2, $3, $4, $5::date, $6::date, $7, $8
WHERE EXISTS (SELECT 1 FROM profiles WHERE id=$2 AND NOT deleted)
  AND EXISTS (SELECT 1 FROM catalogs WHERE id=$3 AND NOT deleted)`
	return r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, c.ID, c.ProfileID, c.CatalogID, c.Name, c.StartsOn, c.EndsOn, c.OriginCode, c.CreatedAt)
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists.With("entity", "campaign", "campaign_id", c.ID.String())
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrConditionFailed.With("profile_id", c.ProfileID.String(), "catalog_id", c.CatalogID.String())
		}
		return nil
	})
}

// GetCampaign selects a campaign by ID.
func (r *CampaignRepo) GetCampaign(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	q := `SELECT ` + campaignCols + ` FROM campaigns WHERE id=$1`
	var c model.Campaign
	err := r.db.do(ctx, func(ctx context.Context) error {
		return notFound(scanCampaign(r.db.Pool.QueryRow(ctx, q, id), &c), "campaign", id.String())
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCampaignsByProfile returns up to limit campaigns of a profile, oldest first.
func (r *CampaignRepo) ListCampaignsByProfile(ctx context.Context, profileID uuid.UUID, limit int) ([]model.Campaign, error) {
	q := `SELECT ` + campaignCols + ` FROM campaigns WHERE profile_id=$1 ORDER BY created_at, id LIMIT $2`
	var out []model.Campaign
	err := r.db.do(ctx, func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Pool.Query(ctx, q, profileID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c model.Campaign
			if err := scanCampaign(rows, &c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

// DeleteCampaign removes a campaign that has no orders left.
func (r *CampaignRepo) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	const del = `
DELETE FROM campaigns WHERE id=$1
AND NOT EXISTS (SELECT 1 FROM orders WHERE campaign_id=$1)`
	const sel = `SELECT 1 FROM campaigns WHERE id=$1`
	return r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, del, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
		var one int
		err = r.db.Pool.QueryRow(ctx, sel, id).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		return errs.ErrConditionFailed.With("campaign_id", id.String(), "reason", "orders remain")
	})
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// OrderRepo implements OrderRepository using PostgreSQL.
type OrderRepo struct{ db *DB }

// NewOrderRepo constructs an order repository.
func NewOrderRepo(db *DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `id, campaign_id, profile_id, buyer::text, lines::text, total::text, created_by, created_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	var buyer, lines, total string
	if err := row.Scan(&o.ID, &o.CampaignID, &o.ProfileID, &buyer, &lines, &total, &o.CreatedBy, &o.CreatedAt); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(buyer), &o.Buyer); err != nil {
		return fmt.Errorf("order %s buyer: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(lines), &o.Lines); err != nil {
		return fmt.Errorf("order %s lines: %w", o.ID, err)
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return fmt.Errorf("order %s total: %w", o.ID, err)
	}
	o.Total = t
	return nil
}

// CreateOrder inserts an order only if, at write time, the campaign still belongs to the profile and
// references the catalog, the profile is live, and the live catalog contains every item id.
func (r *OrderRepo) CreateOrder(ctx context.Context, o *model.Order, catalogID uuid.UUID, itemIDs []string) error {
	const q = `
INSERT INTO orders (id, campaign_id, profile_id, buyer, lines, total, created_by, created_at)
SELECT $1, $2, $3, $4::jsonb, $5::jsonb, $6::numeric, $7, $8
WHERE EXISTS (SELECT 1 FROM campaigns WHERE id=$2 AND profile_id=$3 AND catalog_id=$9)
  AND EXISTS (SELECT 1 FROM profiles WHERE id=$3 AND NOT deleted)
  AND EXISTS (SELECT 1 FROM catalogs WHERE id=$9 AND NOT deleted AND item_ids @> $10::text[])`
	buyer, err := json.Marshal(o.Buyer)
	if err != nil {
		return err
	}
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return err
	}
	if itemIDs == nil {
		itemIDs = []string{}
	}
	return r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q,
			o.ID, o.CampaignID, o.ProfileID, string(buyer), string(lines), o.Total.StringFixed(2),
			o.CreatedBy, o.CreatedAt, catalogID, itemIDs)
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists.With("entity", "order", "order_id", o.ID.String())
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrConditionFailed.With("campaign_id", o.CampaignID.String(), "catalog_id", catalogID.String())
		}
		return nil
	})
}

// GetOrder selects an order by ID.
func (r *OrderRepo) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	var o model.Order
	err := r.db.do(ctx, func(ctx context.Context) error {
		return notFound(scanOrder(r.db.Pool.QueryRow(ctx, q, id), &o), "order", id.String())
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrdersByCampaign returns up to limit orders of a campaign, oldest first.
func (r *OrderRepo) ListOrdersByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]model.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE campaign_id=$1 ORDER BY created_at, id LIMIT $2`
	var out []model.Order
	err := r.db.do(ctx, func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Pool.Query(ctx, q, campaignID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var o model.Order
			if err := scanOrder(rows, &o); err != nil {
				return err
			}
			out = append(out, o)
		}
		return rows.Err()
	})
	return out, err
}

// DeleteOrder removes an order.
func (r *OrderRepo) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM orders WHERE id=$1`
	return r.db.do(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, q, id)
		return err
	})
}

// DeleteOrdersByCampaign removes one page of a campaign's orders.
func (r *OrderRepo) DeleteOrdersByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) (int, error) {
	const q = `
DELETE FROM orders WHERE id IN (
  SELECT id FROM orders WHERE campaign_id=$1 ORDER BY created_at, id LIMIT $2
)`
	var n int
	err := r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, campaignID, limit)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

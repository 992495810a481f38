package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// CatalogRepo implements CatalogRepository using PostgreSQL.
// Line items are kept as jsonb; item_ids mirrors their ids for containment checks.
type CatalogRepo struct{ db *DB }

// NewCatalogRepo constructs a catalog repository.
func NewCatalogRepo(db *DB) *CatalogRepo { return &CatalogRepo{db: db} }

const catalogCols = `id, COALESCE(owner_id, '00000000-0000-0000-0000-000000000000'::uuid), kind, name, public, line_items::text, deleted, ver, created_at, updated_at`

func scanCatalog(row pgx.Row, c *model.Catalog) error {
	var (
		kind  string
		items string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &kind, &c.Name, &c.Public, &items, &c.Deleted, &c.Ver, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	c.Kind = model.CatalogKind(kind)
	if err := json.Unmarshal([]byte(items), &c.LineItems); err != nil {
		return fmt.Errorf("catalog %s line items: %w", c.ID, err)
	}
	return nil
}

func encodeItems(items []model.LineItem) (string, []string, error) {
	if items == nil {
		items = []model.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", nil, err
	}
	ids := make([]string, 0, len(items))
	for _, li := range items {
		ids = append(ids, li.ID)
	}
	return string(b), ids, nil
}

// nullable maps uuid.Nil to SQL NULL.
func nullable(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

// CreateCatalog inserts a new catalog with ver=1.
func (r *CatalogRepo) CreateCatalog(ctx context.Context, c *model.Catalog) error {
	const q = `
INSERT INTO catalogs (id, owner_id, kind, name, public, line_items, item_ids, ver, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, 1, $8, $8)`
	items, ids, err := encodeItems(c.LineItems)
	if err != nil {
		return err
	}
	return r.db.do(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, q, c.ID, nullable(c.OwnerID), string(c.Kind), c.Name, c.Public, items, ids, c.CreatedAt)
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists.With("entity", "catalog", "catalog_id", c.ID.String())
		}
		if err == nil {
			c.Ver = 1
			c.UpdatedAt = c.CreatedAt
		}
		return err
	})
}

// GetCatalog selects a catalog by ID, soft-deleted or not.
func (r *CatalogRepo) GetCatalog(ctx context.Context, id uuid.UUID) (*model.Catalog, error) {
	q := `SELECT ` + catalogCols + ` FROM catalogs WHERE id=$1`
	var c model.Catalog
	err := r.db.do(ctx, func(ctx context.Context) error {
		return notFound(scanCatalog(r.db.Pool.QueryRow(ctx, q, id), &c), "catalog", id.String())
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCatalogs returns live catalogs the account can use: public, admin-managed or its own.
func (r *CatalogRepo) ListCatalogs(ctx context.Context, accountID uuid.UUID) ([]model.Catalog, error) {
	q := `SELECT ` + catalogCols + ` FROM catalogs
WHERE NOT deleted AND (public OR kind='admin' OR owner_id=$1)
ORDER BY name, id`
	var out []model.Catalog
	err := r.db.do(ctx, func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Pool.Query(ctx, q, accountID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c model.Catalog
			if err := scanCatalog(rows, &c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateCatalogItems replaces line items with optimistic concurrency and returns the new version.
func (r *CatalogRepo) UpdateCatalogItems(ctx context.Context, id uuid.UUID, baseVer int64, items []model.LineItem, at time.Time) (int64, error) {
	const upd = `
UPDATE catalogs SET line_items=$3::jsonb, item_ids=$4, ver=ver+1, updated_at=$5
WHERE id=$1 AND ver=$2 AND NOT deleted
RETURNING ver`
	js, ids, err := encodeItems(items)
	if err != nil {
		return 0, err
	}
	var ver int64
	err = r.db.do(ctx, func(ctx context.Context) error {
		err := r.db.Pool.QueryRow(ctx, upd, id, baseVer, js, ids, at).Scan(&ver)
		if errors.Is(err, pgx.ErrNoRows) {
			deleted, err := r.deleted(ctx, id)
			if err != nil {
				return err
			}
			if deleted {
				return errs.ErrNotFound.With("entity", "catalog", "catalog_id", id.String())
			}
			return errs.ErrVersionConflict.With("catalog_id", id.String())
		}
		return err
	})
	return ver, err
}

// DeleteCatalog soft-deletes a catalog with optimistic concurrency. Repeating it is a no-op.
func (r *CatalogRepo) DeleteCatalog(ctx context.Context, id uuid.UUID, baseVer int64) error {
	const upd = `
UPDATE catalogs SET deleted=true, ver=ver+1, updated_at=now()
WHERE id=$1 AND ver=$2 AND NOT deleted`
	return r.db.do(ctx, func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, upd, id, baseVer)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
		deleted, err := r.deleted(ctx, id)
		if err != nil || deleted {
			return err
		}
		return errs.ErrVersionConflict.With("catalog_id", id.String())
	})
}

func (r *CatalogRepo) deleted(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT deleted FROM catalogs WHERE id=$1`
	var deleted bool
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&deleted); err != nil {
		return false, notFound(err, "catalog", id.String())
	}
	return deleted, nil
}

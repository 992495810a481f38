package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// CatalogService manages admin-managed and user-created product catalogs.
type CatalogService interface {
	CreateCatalog(ctx context.Context, actor model.Identity, in CatalogInput) (*model.Catalog, error)
	GetCatalog(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Catalog, error)
	ListCatalogs(ctx context.Context, actor model.Identity) ([]model.Catalog, error)
	UpdateCatalogItems(ctx context.Context, actor model.Identity, id uuid.UUID, baseVer int64, items []model.LineItem) (int64, error)
	DeleteCatalog(ctx context.Context, actor model.Identity, id uuid.UUID, baseVer int64) error
}

// CatalogInput describes a new catalog.
type CatalogInput struct {
	Name      string
	Admin     bool // admin-managed; requires the admin claim
	Public    bool
	LineItems []model.LineItem
}

const maxLineItems = 200

type CatalogServiceImpl struct{ d Deps }

// NewCatalogService constructs CatalogService.
func NewCatalogService(d Deps) *CatalogServiceImpl { return &CatalogServiceImpl{d: d.withDefaults()} }

var _ CatalogService = (*CatalogServiceImpl)(nil)

func validateItems(items []model.LineItem) ([]model.LineItem, error) {
	if len(items) > maxLineItems {
		return nil, errs.Invalid("more than %d line items", maxLineItems)
	}
	seen := make(map[string]bool, len(items))
	out := make([]model.LineItem, 0, len(items))
	for _, li := range items {
		li.ID = strings.TrimSpace(li.ID)
		li.Label = strings.TrimSpace(li.Label)
		switch {
		case li.ID == "":
			return nil, errs.Invalid("line item without id")
		case seen[li.ID]:
			return nil, errs.Invalid("duplicate line item id %q", li.ID)
		case li.Label == "":
			return nil, errs.Invalid("line item %q has no label", li.ID)
		case li.Price.IsNegative():
			return nil, errs.Invalid("line item %q has a negative price", li.ID)
		case !li.Price.Equal(li.Price.Round(2)):
			return nil, errs.Invalid("line item %q price has more than two decimals", li.ID)
		}
		seen[li.ID] = true
		out = append(out, li)
	}
	return out, nil
}

func visible(actor model.Identity, c *model.Catalog) bool {
	return actor.Admin || c.Public || c.Kind == model.CatalogAdmin || c.OwnerID == actor.AccountID
}

// mutable reports whether actor may change c: admins for admin catalogs, the owner otherwise.
func mutable(actor model.Identity, c *model.Catalog) error {
	if c.Kind == model.CatalogAdmin {
		if !actor.Admin {
			return errs.ErrCatalogImmutable.With("catalog_id", c.ID.String())
		}
		return nil
	}
	if c.OwnerID != actor.AccountID {
		return errs.ErrForbidden.With("catalog_id", c.ID.String())
	}
	return nil
}

func (s *CatalogServiceImpl) CreateCatalog(ctx context.Context, actor model.Identity, in CatalogInput) (*model.Catalog, error) {
	if err := requireID("account id", actor.AccountID); err != nil {
		return nil, err
	}
	name, err := cleanName("catalog name", in.Name)
	if err != nil {
		return nil, err
	}
	items, err := validateItems(in.LineItems)
	if err != nil {
		return nil, err
	}
	c := &model.Catalog{
		ID:        s.d.NewID(),
		Kind:      model.CatalogUser,
		OwnerID:   actor.AccountID,
		Name:      name,
		Public:    in.Public,
		LineItems: items,
		CreatedAt: s.d.Now(),
	}
	if in.Admin {
		if !actor.Admin {
			return nil, errs.ErrForbidden.With("reason", "admin catalogs require the admin claim")
		}
		c.Kind = model.CatalogAdmin
		c.OwnerID = uuid.Nil
	}
	if err := s.d.Store.CreateCatalog(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// load returns a live catalog the actor can see.
func (s *CatalogServiceImpl) load(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Catalog, error) {
	if err := requireID("catalog id", id); err != nil {
		return nil, err
	}
	c, err := s.d.Store.GetCatalog(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Deleted {
		return nil, errs.ErrNotFound.With("entity", "catalog", "catalog_id", id.String())
	}
	if !visible(actor, c) {
		return nil, errs.ErrForbidden.With("catalog_id", id.String())
	}
	return c, nil
}

func (s *CatalogServiceImpl) GetCatalog(ctx context.Context, actor model.Identity, id uuid.UUID) (*model.Catalog, error) {
	return s.load(ctx, actor, id)
}

func (s *CatalogServiceImpl) ListCatalogs(ctx context.Context, actor model.Identity) ([]model.Catalog, error) {
	return s.d.Store.ListCatalogs(ctx, actor.AccountID)
}

// UpdateCatalogItems replaces the item list with optimistic concurrency on ver.
// Existing orders keep the unit prices they were created with.
func (s *CatalogServiceImpl) UpdateCatalogItems(ctx context.Context, actor model.Identity, id uuid.UUID, baseVer int64, items []model.LineItem) (int64, error) {
	if baseVer <= 0 {
		return 0, errs.Invalid("base version must be positive")
	}
	items, err := validateItems(items)
	if err != nil {
		return 0, err
	}
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return 0, err
	}
	if err := mutable(actor, c); err != nil {
		return 0, err
	}
	return s.d.Store.UpdateCatalogItems(ctx, id, baseVer, items, s.d.Now())
}

// DeleteCatalog soft-deletes a catalog. Campaigns referencing it can no longer take orders.
func (s *CatalogServiceImpl) DeleteCatalog(ctx context.Context, actor model.Identity, id uuid.UUID, baseVer int64) error {
	if baseVer <= 0 {
		return errs.Invalid("base version must be positive")
	}
	c, err := s.load(ctx, actor, id)
	if errors.Is(err, errs.ErrNotFound) {
		// already deleted or never existed
		return nil
	}
	if err != nil {
		return err
	}
	if err := mutable(actor, c); err != nil {
		return err
	}
	return s.d.Store.DeleteCatalog(ctx, id, baseVer)
}

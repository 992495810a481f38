package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// OrderService records buyer orders against campaigns.
type OrderService interface {
	// CreateOrder validates the lines against the campaign's catalog and stores the order.
	CreateOrder(ctx context.Context, actor uuid.UUID, in OrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, actor, orderID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, actor, campaignID uuid.UUID, limit int) ([]model.Order, error)
	DeleteOrder(ctx context.Context, actor, orderID uuid.UUID) error
}

// LineInput is a requested quantity of one catalog line item.
type LineInput struct {
	ItemID   string
	Quantity int
}

// OrderInput is an unvalidated order as submitted by a seller.
type OrderInput struct {
	CampaignID uuid.UUID
	Buyer      model.Buyer
	Lines      []LineInput
}

// preparedOrder is an order that passed validation against a catalog snapshot and
// is ready for the guarded insert.
type preparedOrder struct {
	order     model.Order
	catalogID uuid.UUID
	itemIDs   []string
}

type OrderServiceImpl struct{ d Deps }

// NewOrderService constructs OrderService.
func NewOrderService(d Deps) *OrderServiceImpl { return &OrderServiceImpl{d: d.withDefaults()} }

var _ OrderService = (*OrderServiceImpl)(nil)

func (s *OrderServiceImpl) CreateOrder(ctx context.Context, actor uuid.UUID, in OrderInput) (o *model.Order, err error) {
	ctx, span := tracer.Start(ctx, "order.create", trace.WithAttributes(
		attribute.String("campaign_id", in.CampaignID.String()),
		attribute.Int("lines", len(in.Lines)),
	))
	defer func() { endSpan(span, err) }()

	prep, err := s.prepareOrder(ctx, actor, in)
	if err != nil {
		return nil, err
	}
	return s.commitOrder(ctx, prep)
}

func catalogUnavailable(id uuid.UUID) error {
	return errs.ErrCatalogUnavailable.With("catalog_id", id.String())
}

// prepareOrder checks permission, resolves unit prices from the catalog and computes the total.
func (s *OrderServiceImpl) prepareOrder(ctx context.Context, actor uuid.UUID, in OrderInput) (*preparedOrder, error) {
	if err := requireID("campaign id", in.CampaignID); err != nil {
		return nil, err
	}
	buyer := in.Buyer
	buyer.Name = strings.TrimSpace(buyer.Name)
	if buyer.Name == "" {
		return nil, errs.Invalid("empty buyer name")
	}
	if len(in.Lines) == 0 {
		return nil, errs.Invalid("order has no lines")
	}
	camp, _, err := s.d.Authz.RequireCampaign(ctx, actor, in.CampaignID, model.PermWrite)
	if err != nil {
		return nil, err
	}
	cat, err := s.d.Store.GetCatalog(ctx, camp.CatalogID)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && cat.Deleted) {
		return nil, catalogUnavailable(camp.CatalogID)
	}
	if err != nil {
		return nil, err
	}

	// repeated item ids are folded into one line
	qty := make(map[string]int, len(in.Lines))
	var order []string
	for _, l := range in.Lines {
		if l.Quantity < 0 {
			return nil, errs.Invalid("negative quantity for item %q", l.ItemID)
		}
		if _, ok := qty[l.ItemID]; !ok {
			order = append(order, l.ItemID)
		}
		qty[l.ItemID] += l.Quantity
	}

	lines := make([]model.OrderLine, 0, len(order))
	total := decimal.Zero
	for _, id := range order {
		li, ok := cat.Item(id)
		if !ok {
			return nil, errs.ErrInvalidLineItem.With("item_id", id, "catalog_id", cat.ID.String())
		}
		q := qty[id]
		lines = append(lines, model.OrderLine{ItemID: id, Quantity: q, UnitPrice: li.Price})
		total = total.Add(li.Price.Mul(decimal.NewFromInt(int64(q))))
	}
	if !total.IsPositive() {
		return nil, errs.Invalid("order total must be positive")
	}

	return &preparedOrder{
		order: model.Order{
			ID:         s.d.NewID(),
			CampaignID: camp.ID,
			ProfileID:  camp.ProfileID,
			Buyer:      buyer,
			Lines:      lines,
			Total:      total,
			CreatedBy:  actor,
			CreatedAt:  s.d.Now(),
		},
		catalogID: cat.ID,
		itemIDs:   order,
	}, nil
}

// commitOrder inserts the order only if the catalog still holds every referenced item.
func (s *OrderServiceImpl) commitOrder(ctx context.Context, prep *preparedOrder) (*model.Order, error) {
	o := prep.order
	err := s.d.Store.CreateOrder(ctx, &o, prep.catalogID, prep.itemIDs)
	if errors.Is(err, errs.ErrConditionFailed) {
		return nil, s.classifyRejected(ctx, prep)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// classifyRejected explains why the guarded insert did not apply.
func (s *OrderServiceImpl) classifyRejected(ctx context.Context, prep *preparedOrder) error {
	cat, err := s.d.Store.GetCatalog(ctx, prep.catalogID)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && cat.Deleted) {
		return catalogUnavailable(prep.catalogID)
	}
	if err != nil {
		return err
	}
	for _, id := range prep.itemIDs {
		if _, ok := cat.Item(id); !ok {
			return errs.ErrInvalidLineItem.With("item_id", id, "catalog_id", cat.ID.String())
		}
	}
	// catalog is fine, so the campaign or its profile went away
	return errs.ErrNotFound.With("entity", "campaign", "campaign_id", prep.order.CampaignID.String())
}

// orderFor loads an order and checks required on its profile.
func (s *OrderServiceImpl) orderFor(ctx context.Context, actor, orderID uuid.UUID, required model.Permission) (*model.Order, error) {
	if err := requireID("order id", orderID); err != nil {
		return nil, err
	}
	o, err := s.d.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errs.ErrForbidden.With("order_id", orderID.String(), "required", required.String()).Wrap(err)
	}
	if _, _, err := s.d.Authz.Require(ctx, actor, o.ProfileID, required); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, actor, orderID uuid.UUID) (*model.Order, error) {
	return s.orderFor(ctx, actor, orderID, model.PermRead)
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, actor, campaignID uuid.UUID, limit int) ([]model.Order, error) {
	if err := requireID("campaign id", campaignID); err != nil {
		return nil, err
	}
	if _, _, err := s.d.Authz.RequireCampaign(ctx, actor, campaignID, model.PermRead); err != nil {
		return nil, err
	}
	return s.d.Store.ListOrdersByCampaign(ctx, campaignID, clampLimit(limit))
}

func (s *OrderServiceImpl) DeleteOrder(ctx context.Context, actor, orderID uuid.UUID) error {
	o, err := s.orderFor(ctx, actor, orderID, model.PermWrite)
	if err != nil {
		return err
	}
	return s.d.Store.DeleteOrder(ctx, o.ID)
}

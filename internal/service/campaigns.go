package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// CampaignService manages a profile's sales campaigns.
type CampaignService interface {
	CreateCampaign(ctx context.Context, actor model.Identity, in CampaignInput) (*model.Campaign, error)
	GetCampaign(ctx context.Context, actor, campaignID uuid.UUID) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, actor, profileID uuid.UUID, limit int) ([]model.Campaign, error)
}

// CampaignInput describes a new campaign. Dates are calendar days; the time part is dropped.
type CampaignInput struct {
	ProfileID  uuid.UUID
	CatalogID  uuid.UUID
	Name       string
	StartsOn   time.Time
	EndsOn     time.Time
	OriginCode string
}

type CampaignServiceImpl struct{ d Deps }

// NewCampaignService constructs CampaignService.
func NewCampaignService(d Deps) *CampaignServiceImpl { return &CampaignServiceImpl{d: d.withDefaults()} }

var _ CampaignService = (*CampaignServiceImpl)(nil)

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *CampaignServiceImpl) CreateCampaign(ctx context.Context, actor model.Identity, in CampaignInput) (*model.Campaign, error) {
	if err := requireID("profile id", in.ProfileID); err != nil {
		return nil, err
	}
	if err := requireID("catalog id", in.CatalogID); err != nil {
		return nil, err
	}
	name, err := cleanName("campaign name", in.Name)
	if err != nil {
		return nil, err
	}
	if in.StartsOn.IsZero() || in.EndsOn.IsZero() {
		return nil, errs.Invalid("campaign dates are required")
	}
	start, end := day(in.StartsOn), day(in.EndsOn)
	if start.After(end) {
		return nil, errs.ErrInvalidDateRange.With("starts_on", start.Format(time.DateOnly), "ends_on", end.Format(time.DateOnly))
	}
	if _, _, err := s.d.Authz.Require(ctx, actor.AccountID, in.ProfileID, model.PermWrite); err != nil {
		return nil, err
	}
	cat, err := s.d.Store.GetCatalog(ctx, in.CatalogID)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && (cat.Deleted || !visible(actor, cat))) {
		return nil, catalogUnavailable(in.CatalogID)
	}
	if err != nil {
		return nil, err
	}

	c := &model.Campaign{
		ID:         s.d.NewID(),
		ProfileID:  in.ProfileID,
		CatalogID:  in.CatalogID,
		Name:       name,
		StartsOn:   start,
		EndsOn:     end,
		OriginCode: strings.TrimSpace(in.OriginCode),
		CreatedAt:  s.d.Now(),
	}
	err = s.d.Store.CreateCampaign(ctx, c)
	if errors.Is(err, errs.ErrConditionFailed) {
		// the catalog or the profile was deleted after the checks above
		if cur, gerr := s.d.Store.GetCatalog(ctx, in.CatalogID); gerr != nil || cur.Deleted {
			return nil, catalogUnavailable(in.CatalogID)
		}
		return nil, errs.ErrNotFound.With("entity", "profile", "profile_id", in.ProfileID.String())
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignServiceImpl) GetCampaign(ctx context.Context, actor, campaignID uuid.UUID) (*model.Campaign, error) {
	if err := requireID("campaign id", campaignID); err != nil {
		return nil, err
	}
	c, _, err := s.d.Authz.RequireCampaign(ctx, actor, campaignID, model.PermRead)
	return c, err
}

func (s *CampaignServiceImpl) ListCampaigns(ctx context.Context, actor, profileID uuid.UUID, limit int) ([]model.Campaign, error) {
	if _, _, err := s.d.Authz.Require(ctx, actor, profileID, model.PermRead); err != nil {
		return nil, err
	}
	return s.d.Store.ListCampaignsByProfile(ctx, profileID, clampLimit(limit))
}

// Package access decides whether an account may act on a profile.
//
// Decisions are fail-closed: a missing or soft-deleted profile, a missing share,
// or any storage error while looking them up denies the request.
package access

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
	"github.com/and161185/scoutfund/internal/repository"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	// Profile is set whenever the profile could be loaded and is live.
	Profile *model.Profile
	// Effective is the actor's grant on the profile; PermOwner for the owner.
	Effective model.Permission
	// Err is the lookup failure that forced a deny, if any.
	Err error
}

// Authorizer evaluates profile permissions from owner and share records.
type Authorizer struct {
	profiles  repository.ProfileRepository
	shares    repository.ShareRepository
	campaigns repository.CampaignRepository
}

// New constructs an Authorizer.
func New(profiles repository.ProfileRepository, shares repository.ShareRepository, campaigns repository.CampaignRepository) *Authorizer {
	return &Authorizer{profiles: profiles, shares: shares, campaigns: campaigns}
}

// Authorize reports whether actor holds required on profileID. It has no side effects.
func (a *Authorizer) Authorize(ctx context.Context, actor, profileID uuid.UUID, required model.Permission) Decision {
	p, err := a.profiles.GetProfile(ctx, profileID)
	if err != nil {
		return Decision{Err: err}
	}
	if p.Deleted {
		return Decision{}
	}
	if p.OwnerID == actor {
		return Decision{Allowed: true, Profile: p, Effective: model.PermOwner}
	}
	if required&model.PermOwner != 0 {
		return Decision{Profile: p}
	}
	sh, err := a.shares.GetShare(ctx, profileID, actor)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			err = nil
		}
		return Decision{Profile: p, Err: err}
	}
	perms := sh.Permissions.Normalize()
	return Decision{Allowed: perms.Covers(required), Profile: p, Effective: perms}
}

// Require returns the live profile if actor holds required on it, otherwise a Forbidden error.
func (a *Authorizer) Require(ctx context.Context, actor, profileID uuid.UUID, required model.Permission) (*model.Profile, model.Permission, error) {
	d := a.Authorize(ctx, actor, profileID, required)
	if !d.Allowed {
		e := errs.ErrForbidden.With("profile_id", profileID.String(), "required", required.String())
		if d.Err != nil {
			e = e.Wrap(d.Err)
		}
		return nil, 0, e
	}
	return d.Profile, d.Effective, nil
}

// RequireOwner returns the live profile if actor owns it, otherwise NotOwner.
func (a *Authorizer) RequireOwner(ctx context.Context, actor, profileID uuid.UUID) (*model.Profile, error) {
	d := a.Authorize(ctx, actor, profileID, model.PermOwner)
	if !d.Allowed {
		e := errs.ErrNotOwner.With("profile_id", profileID.String())
		if d.Err != nil {
			e = e.Wrap(d.Err)
		}
		return nil, e
	}
	return d.Profile, nil
}

// RequireCampaign resolves a campaign to its profile and checks required on that profile.
func (a *Authorizer) RequireCampaign(ctx context.Context, actor, campaignID uuid.UUID, required model.Permission) (*model.Campaign, *model.Profile, error) {
	c, err := a.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		e := errs.ErrForbidden.With("campaign_id", campaignID.String(), "required", required.String())
		return nil, nil, e.Wrap(err)
	}
	p, _, err := a.Require(ctx, actor, c.ProfileID, required)
	if err != nil {
		return nil, nil, err
	}
	return c, p, nil
}

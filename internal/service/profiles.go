package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// ProfileService manages accounts and the profiles they own or share.
type ProfileService interface {
	// EnsureAccount provisions the caller's account and a default profile on first use.
	EnsureAccount(ctx context.Context, id model.Identity) (*model.Account, error)
	// CreateProfile adds a profile owned by actor.
	CreateProfile(ctx context.Context, actor uuid.UUID, name string) (*model.Profile, error)
	// GetProfile returns a profile the actor can read, with the actor's grant.
	GetProfile(ctx context.Context, actor, profileID uuid.UUID) (*model.SharedProfile, error)
	// ListProfiles returns live profiles the actor owns or has a share on.
	ListProfiles(ctx context.Context, actor uuid.UUID) ([]model.SharedProfile, error)
	// RenameProfile changes the display name with optimistic concurrency.
	RenameProfile(ctx context.Context, actor, profileID uuid.UUID, baseVer int64, name string) (int64, error)
}

type ProfileServiceImpl struct{ d Deps }

// NewProfileService constructs ProfileService.
func NewProfileService(d Deps) *ProfileServiceImpl { return &ProfileServiceImpl{d: d.withDefaults()} }

var _ ProfileService = (*ProfileServiceImpl)(nil)

// EnsureAccount returns the caller's account, creating it together with a default
// profile the first time the identity is seen.
func (s *ProfileServiceImpl) EnsureAccount(ctx context.Context, id model.Identity) (*model.Account, error) {
	if err := requireID("account id", id.AccountID); err != nil {
		return nil, err
	}
	a, err := s.d.Store.GetAccount(ctx, id.AccountID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.Invalid("identity carries no usable email")
	}
	local := email[:strings.Index(email, "@")]
	a = &model.Account{ID: id.AccountID, Email: email, DisplayName: local, CreatedAt: s.d.Now()}
	p := &model.Profile{ID: s.d.NewID(), OwnerID: a.ID, DisplayName: local, CreatedAt: a.CreatedAt}
	if err := s.d.Store.CreateAccount(ctx, a, p); err != nil {
		if !errors.Is(err, errs.ErrAlreadyExists) {
			return nil, err
		}
		// lost a race with a concurrent first call, or the email belongs to another account
		existing, gerr := s.d.Store.GetAccount(ctx, id.AccountID)
		if gerr != nil {
			return nil, err
		}
		return existing, nil
	}
	s.d.Log.Info("account provisioned", zap.String("account_id", a.ID.String()), zap.String("profile_id", p.ID.String()))
	return a, nil
}

// CreateProfile validates the name and inserts a profile owned by actor.
func (s *ProfileServiceImpl) CreateProfile(ctx context.Context, actor uuid.UUID, name string) (*model.Profile, error) {
	if err := requireID("actor", actor); err != nil {
		return nil, err
	}
	name, err := cleanName("display name", name)
	if err != nil {
		return nil, err
	}
	p := &model.Profile{ID: s.d.NewID(), OwnerID: actor, DisplayName: name, CreatedAt: s.d.Now()}
	if err := s.d.Store.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProfile requires read permission.
func (s *ProfileServiceImpl) GetProfile(ctx context.Context, actor, profileID uuid.UUID) (*model.SharedProfile, error) {
	p, perms, err := s.d.Authz.Require(ctx, actor, profileID, model.PermRead)
	if err != nil {
		return nil, err
	}
	return &model.SharedProfile{Profile: *p, Permissions: perms, Owned: p.OwnerID == actor}, nil
}

// ListProfiles merges owned profiles with shared ones; soft-deleted profiles are skipped.
func (s *ProfileServiceImpl) ListProfiles(ctx context.Context, actor uuid.UUID) ([]model.SharedProfile, error) {
	if err := requireID("actor", actor); err != nil {
		return nil, err
	}
	owned, err := s.d.Store.ListProfilesByOwner(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := make([]model.SharedProfile, 0, len(owned))
	for _, p := range owned {
		out = append(out, model.SharedProfile{Profile: p, Permissions: model.PermOwner, Owned: true})
	}
	shares, err := s.d.Store.ListSharesByAccount(ctx, actor)
	if err != nil {
		return nil, err
	}
	for _, sh := range shares {
		p, err := s.d.Store.GetProfile(ctx, sh.ProfileID)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.Deleted || p.OwnerID == actor {
			continue
		}
		out = append(out, model.SharedProfile{Profile: *p, Permissions: sh.Permissions.Normalize()})
	}
	return out, nil
}

// RenameProfile requires write permission and the caller's last seen version.
func (s *ProfileServiceImpl) RenameProfile(ctx context.Context, actor, profileID uuid.UUID, baseVer int64, name string) (int64, error) {
	name, err := cleanName("display name", name)
	if err != nil {
		return 0, err
	}
	if baseVer <= 0 {
		return 0, errs.Invalid("base_ver must be positive")
	}
	if _, _, err := s.d.Authz.Require(ctx, actor, profileID, model.PermWrite); err != nil {
		return 0, err
	}
	return s.d.Store.RenameProfile(ctx, profileID, baseVer, name, s.d.Now())
}

package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/scoutfund/internal/crypto"
	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/limiter"
	"github.com/and161185/scoutfund/internal/model"
)

// SharingService grants other accounts access to a profile, directly or through invite codes.
type SharingService interface {
	// CreateDirectShare shares a profile with the account registered under recipientEmail.
	CreateDirectShare(ctx context.Context, owner, profileID uuid.UUID, recipientEmail string, perms model.Permission) (*model.Share, error)
	// CreateInviteCode issues a single-use code; the plaintext code is only returned here.
	CreateInviteCode(ctx context.Context, owner, profileID uuid.UUID, perms model.Permission, ttl time.Duration) (*model.IssuedInvite, error)
	// RedeemInvite consumes a code and grants its permissions to redeemer.
	RedeemInvite(ctx context.Context, redeemer uuid.UUID, code, clientIP string) (*model.Redemption, error)
	// RevokeShare removes an account's share.
	RevokeShare(ctx context.Context, owner, profileID, accountID uuid.UUID) error
	// ListShares lists a profile's shares; read permission is enough.
	ListShares(ctx context.Context, actor, profileID uuid.UUID) ([]model.Share, error)
	// ListInvites lists every invite of a profile, newest first.
	ListInvites(ctx context.Context, owner, profileID uuid.UUID) ([]model.Invite, error)
	// RevokeInvite expires a pending invite.
	RevokeInvite(ctx context.Context, owner, inviteID uuid.UUID) error
}

// SharingConfig tunes invite issuance.
type SharingConfig struct {
	InviteTTL    time.Duration // default lifetime of a code
	MaxInviteTTL time.Duration // upper bound a caller may request
	CodeAttempts int           // collision retries before giving up
}

func (c SharingConfig) withDefaults() SharingConfig {
	if c.InviteTTL <= 0 {
		c.InviteTTL = 24 * time.Hour
	}
	if c.MaxInviteTTL <= 0 {
		c.MaxInviteTTL = 30 * 24 * time.Hour
	}
	if c.CodeAttempts <= 0 {
		c.CodeAttempts = 5
	}
	return c
}

type SharingServiceImpl struct {
	d       Deps
	cfg     SharingConfig
	hasher  *crypto.CodeHasher
	newCode func() (string, error)
	lim     limiter.Limiter
}

// NewSharingService constructs SharingService. lim may be nil to disable redemption throttling.
func NewSharingService(d Deps, cfg SharingConfig, hasher *crypto.CodeHasher, newCode func() (string, error), lim limiter.Limiter) *SharingServiceImpl {
	if newCode == nil {
		newCode = crypto.CodeGenerator(crypto.DefaultCodeLength)
	}
	return &SharingServiceImpl{d: d.withDefaults(), cfg: cfg.withDefaults(), hasher: hasher, newCode: newCode, lim: lim}
}

var _ SharingService = (*SharingServiceImpl)(nil)

func checkPerms(perms model.Permission) (model.Permission, error) {
	if perms&^(model.PermShareable|model.PermOwner) != 0 {
		return 0, errs.Invalid("unknown permission bits %d", perms)
	}
	if perms&model.PermOwner != 0 {
		return 0, errs.Invalid("owner permission cannot be shared")
	}
	perms = perms.Normalize()
	if perms == 0 {
		return 0, errs.Invalid("empty permission set")
	}
	return perms, nil
}

// CreateDirectShare inserts a share, or merges permissions into the one that already exists.
func (s *SharingServiceImpl) CreateDirectShare(ctx context.Context, owner, profileID uuid.UUID, recipientEmail string, perms model.Permission) (*model.Share, error) {
	perms, err := checkPerms(perms)
	if err != nil {
		return nil, err
	}
	recipientEmail = strings.ToLower(strings.TrimSpace(recipientEmail))
	if recipientEmail == "" {
		return nil, errs.Invalid("empty recipient email")
	}
	p, err := s.d.Authz.RequireOwner(ctx, owner, profileID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.d.Store.GetAccountByEmail(ctx, recipientEmail)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrRecipientNotFound.With("email", recipientEmail)
	}
	if err != nil {
		return nil, err
	}
	if recipient.ID == p.OwnerID {
		return nil, errs.ErrSelfShareNotAllowed.With("profile_id", profileID.String())
	}

	// insert-or-merge; a concurrent revoke between the two steps sends us round again
	for attempt := 0; attempt < 3; attempt++ {
		sh := &model.Share{ProfileID: profileID, AccountID: recipient.ID, Permissions: perms, CreatedAt: s.d.Now()}
		err := s.d.Store.PutShare(ctx, sh)
		if err == nil {
			return sh, nil
		}
		if !errors.Is(err, errs.ErrConditionFailed) {
			return nil, err
		}
		merged, err := s.d.Store.MergeShare(ctx, profileID, recipient.ID, perms, s.d.Now())
		if err == nil {
			return merged, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		if err := s.requireLive(ctx, profileID); err != nil {
			return nil, err
		}
	}
	return nil, errs.ErrConflict.With("profile_id", profileID.String(), "account_id", recipient.ID.String())
}

// requireLive tells a vanished share apart from a profile removed since the owner check.
func (s *SharingServiceImpl) requireLive(ctx context.Context, profileID uuid.UUID) error {
	p, err := s.d.Store.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if p.Deleted {
		return errs.ErrNotFound.With("entity", "profile", "profile_id", profileID.String())
	}
	return nil
}

// CreateInviteCode stores the hash of a fresh code, retrying on hash collisions.
func (s *SharingServiceImpl) CreateInviteCode(ctx context.Context, owner, profileID uuid.UUID, perms model.Permission, ttl time.Duration) (*model.IssuedInvite, error) {
	perms, err := checkPerms(perms)
	if err != nil {
		return nil, err
	}
	switch {
	case ttl < 0:
		return nil, errs.Invalid("negative ttl")
	case ttl == 0:
		ttl = s.cfg.InviteTTL
	case ttl > s.cfg.MaxInviteTTL:
		return nil, errs.Invalid("ttl exceeds %s", s.cfg.MaxInviteTTL)
	}
	if _, err := s.d.Authz.RequireOwner(ctx, owner, profileID); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.cfg.CodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		code = crypto.NormalizeCode(code)
		now := s.d.Now()
		inv := &model.Invite{
			ID:          s.d.NewID(),
			CodeHash:    s.hasher.Hash(code),
			ProfileID:   profileID,
			Permissions: perms,
			Status:      model.InvitePending,
			CreatedBy:   owner,
			ExpiresAt:   now.Add(ttl),
			CreatedAt:   now,
		}
		err = s.d.Store.PutInvite(ctx, inv)
		if err == nil {
			return &model.IssuedInvite{Invite: *inv, Code: code}, nil
		}
		if !errors.Is(err, errs.ErrConditionFailed) {
			return nil, err
		}
		s.d.Log.Warn("invite code collision", zap.Int("attempt", attempt))
	}
	return nil, errs.ErrCodeGenerationExhausted.With("profile_id", profileID.String(), "attempts", strconv.Itoa(s.cfg.CodeAttempts))
}

// inviteState maps a non-redeemable invite to the error the caller should see, or nil if redeemable.
func inviteState(inv *model.Invite, now time.Time) error {
	switch {
	case inv.Status == model.InviteUsed:
		return errs.ErrInviteAlreadyUsed.With("invite_id", inv.ID.String())
	case inv.Status == model.InviteExpired || inv.ExpiredAt(now):
		return errs.ErrInviteExpired.With("invite_id", inv.ID.String(), "expired_at", inv.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// RedeemInvite looks the code up, checks it and atomically consumes it into a share.
func (s *SharingServiceImpl) RedeemInvite(ctx context.Context, redeemer uuid.UUID, code, clientIP string) (*model.Redemption, error) {
	if err := requireID("redeemer", redeemer); err != nil {
		return nil, err
	}
	code = crypto.NormalizeCode(code)
	if code == "" {
		return nil, errs.Invalid("empty invite code")
	}
	ipHash := limiter.HashIP(clientIP)
	if s.lim != nil {
		ok, retryAfter, err := s.lim.Allow(ctx, redeemer, ipHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.ErrRateLimited.With("retry_after", retryAfter.Round(time.Second).String())
		}
	}

	inv, err := s.d.Store.GetInviteByCode(ctx, s.hasher.Hash(code))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, s.failed(ctx, redeemer, ipHash, errs.ErrInviteNotFound)
	}
	if err != nil {
		return nil, err
	}
	now := s.d.Now()
	if err := inviteState(inv, now); err != nil {
		return nil, err
	}
	p, err := s.d.Store.GetProfile(ctx, inv.ProfileID)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && p.Deleted) {
		return nil, errs.ErrInviteNotFound.With("invite_id", inv.ID.String(), "reason", "profile deleted")
	}
	if err != nil {
		return nil, err
	}
	if p.OwnerID == redeemer {
		return nil, errs.ErrSelfShareNotAllowed.With("profile_id", p.ID.String())
	}

	red, err := s.d.Store.RedeemInvite(ctx, inv.ID, redeemer, now)
	if errors.Is(err, errs.ErrConditionFailed) {
		return nil, s.classifyLostRedeem(ctx, inv.ID, now)
	}
	if err != nil {
		return nil, err
	}
	if s.lim != nil {
		if err := s.lim.Success(ctx, redeemer, ipHash); err != nil {
			s.d.Log.Warn("limiter reset failed", zap.Error(err))
		}
	}
	s.d.Log.Info("invite redeemed",
		zap.String("invite_id", inv.ID.String()),
		zap.String("profile_id", inv.ProfileID.String()),
		zap.String("account_id", redeemer.String()),
		zap.String("perms", red.Share.Permissions.String()),
	)
	return &red, nil
}

// failed records a failed redemption and upgrades the error once the caller gets blocked.
func (s *SharingServiceImpl) failed(ctx context.Context, redeemer uuid.UUID, ipHash []byte, cause *errs.Error) error {
	if s.lim == nil {
		return cause
	}
	blocked, blockFor, err := s.lim.Failure(ctx, redeemer, ipHash)
	if err != nil {
		s.d.Log.Warn("limiter failure record failed", zap.Error(err))
		return cause
	}
	if blocked {
		return errs.ErrRateLimited.With("retry_after", blockFor.String())
	}
	return cause
}

// classifyLostRedeem re-reads an invite whose guarded redemption did not apply.
func (s *SharingServiceImpl) classifyLostRedeem(ctx context.Context, inviteID uuid.UUID, now time.Time) error {
	inv, err := s.d.Store.GetInvite(ctx, inviteID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrInviteNotFound.With("invite_id", inviteID.String())
	}
	if err != nil {
		return err
	}
	if err := inviteState(inv, now); err != nil {
		return err
	}
	// still pending and unexpired, so the profile went away underneath us
	return errs.ErrInviteNotFound.With("invite_id", inviteID.String(), "reason", "profile deleted")
}

// RevokeShare is owner-only; revoking an absent share is a no-op.
func (s *SharingServiceImpl) RevokeShare(ctx context.Context, owner, profileID, accountID uuid.UUID) error {
	if err := requireID("account id", accountID); err != nil {
		return err
	}
	if _, err := s.d.Authz.RequireOwner(ctx, owner, profileID); err != nil {
		return err
	}
	return s.d.Store.DeleteShare(ctx, profileID, accountID)
}

func (s *SharingServiceImpl) ListShares(ctx context.Context, actor, profileID uuid.UUID) ([]model.Share, error) {
	if _, _, err := s.d.Authz.Require(ctx, actor, profileID, model.PermRead); err != nil {
		return nil, err
	}
	return s.d.Store.ListSharesByProfile(ctx, profileID)
}

func (s *SharingServiceImpl) ListInvites(ctx context.Context, owner, profileID uuid.UUID) ([]model.Invite, error) {
	if _, err := s.d.Authz.RequireOwner(ctx, owner, profileID); err != nil {
		return nil, err
	}
	return s.d.Store.ListInvitesByProfile(ctx, profileID)
}

// RevokeInvite expires a pending invite; revoking an expired one again is a no-op.
func (s *SharingServiceImpl) RevokeInvite(ctx context.Context, owner, inviteID uuid.UUID) error {
	if err := requireID("invite id", inviteID); err != nil {
		return err
	}
	inv, err := s.d.Store.GetInvite(ctx, inviteID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrInviteNotFound.With("invite_id", inviteID.String())
	}
	if err != nil {
		return err
	}
	if _, err := s.d.Authz.RequireOwner(ctx, owner, inv.ProfileID); err != nil {
		return err
	}
	err = s.d.Store.ExpireInvite(ctx, inviteID)
	if !errors.Is(err, errs.ErrConditionFailed) {
		return err
	}
	cur, gerr := s.d.Store.GetInvite(ctx, inviteID)
	if gerr != nil {
		return gerr
	}
	if cur.Status == model.InviteUsed {
		return errs.ErrInviteAlreadyUsed.With("invite_id", inviteID.String())
	}
	return nil
}

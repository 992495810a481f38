// Package repository defines storage interfaces implemented by concrete backends.
//
// Every mutating method is either idempotent or guarded by a precondition.
// A precondition that does not hold is reported as errs.ErrConditionFailed
// (or errs.ErrVersionConflict for version-guarded writes); throttling and
// timeouts are reported as errs.ErrTransient after the backend's own retries.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/scoutfund/internal/model"
)

// AccountRepository provides access to accounts and the email index.
type AccountRepository interface {
	// CreateAccount inserts a new account; a duplicate id or email yields errs.ErrAlreadyExists.
	// A non-nil first profile is inserted in the same transaction, so neither exists without the other.
	CreateAccount(ctx context.Context, a *model.Account, first *model.Profile) error
	// GetAccount loads an account by ID.
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetAccountByEmail resolves an account through the email index.
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
}

// ProfileRepository provides guarded access to profiles.
type ProfileRepository interface {
	// CreateProfile inserts a new profile with ver=1.
	CreateProfile(ctx context.Context, p *model.Profile) error
	// GetProfile loads a profile, including soft-deleted ones.
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	// ListProfilesByOwner returns live profiles owned by the account.
	ListProfilesByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Profile, error)
	// RenameProfile changes the display name if the stored version equals baseVer.
	RenameProfile(ctx context.Context, id uuid.UUID, baseVer int64, name string, at time.Time) (int64, error)
	// TransferOwner swaps the owner if the stored owner still equals expectedOwner,
	// removing any share the new owner held, in one transaction.
	TransferOwner(ctx context.Context, id, expectedOwner, newOwner uuid.UUID, at time.Time) (*model.Profile, error)
	// MarkProfileDeleted sets the soft-delete flag if the profile is owned by ownerID.
	// Re-marking an already soft-deleted profile is a no-op.
	MarkProfileDeleted(ctx context.Context, id, ownerID uuid.UUID, at time.Time) error
	// PurgeProfile hard-deletes a soft-deleted profile. Absent profiles are a no-op.
	PurgeProfile(ctx context.Context, id uuid.UUID) error
	// ListDeletedProfiles returns soft-deleted profiles ordered by (deleted_at, id),
	// starting strictly after the cursor. The zero cursor starts at the oldest deletion.
	ListDeletedProfiles(ctx context.Context, after DeletedCursor, limit int) ([]model.Profile, error)
}

// DeletedCursor is a keyset position in the soft-deleted profile listing.
type DeletedCursor struct {
	DeletedAt time.Time
	ID        uuid.UUID
}

// CursorAfter returns the position just past p, which must be soft-deleted.
func CursorAfter(p model.Profile) DeletedCursor {
	c := DeletedCursor{ID: p.ID}
	if p.DeletedAt != nil {
		c.DeletedAt = *p.DeletedAt
	}
	return c
}

// CatalogRepository provides versioned access to catalogs.
type CatalogRepository interface {
	// CreateCatalog inserts a new catalog with ver=1.
	CreateCatalog(ctx context.Context, c *model.Catalog) error
	// GetCatalog loads a catalog, including soft-deleted ones.
	GetCatalog(ctx context.Context, id uuid.UUID) (*model.Catalog, error)
	// ListCatalogs returns live catalogs visible to the account: public, admin-managed or owned.
	ListCatalogs(ctx context.Context, accountID uuid.UUID) ([]model.Catalog, error)
	// UpdateCatalogItems replaces the line items if the stored version equals baseVer.
	UpdateCatalogItems(ctx context.Context, id uuid.UUID, baseVer int64, items []model.LineItem, at time.Time) (int64, error)
	// DeleteCatalog soft-deletes the catalog if the stored version equals baseVer.
	DeleteCatalog(ctx context.Context, id uuid.UUID, baseVer int64) error
}

// CampaignRepository provides access to campaigns.
type CampaignRepository interface {
	// CreateCampaign inserts a campaign only if its profile is live and its catalog exists and is not deleted.
	CreateCampaign(ctx context.Context, c *model.Campaign) error
	// GetCampaign loads a campaign by ID.
	GetCampaign(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	// ListCampaignsByProfile returns up to limit campaigns of a profile, oldest first.
	ListCampaignsByProfile(ctx context.Context, profileID uuid.UUID, limit int) ([]model.Campaign, error)
	// DeleteCampaign removes a campaign that has no orders left. Absent campaigns are a no-op;
	// a campaign that still has orders yields errs.ErrConditionFailed.
	DeleteCampaign(ctx context.Context, id uuid.UUID) error
}

// OrderRepository provides access to orders.
type OrderRepository interface {
	// CreateOrder inserts the order only if, at write time, the campaign exists, its profile is live,
	// and the catalog is not deleted and contains every itemID.
	CreateOrder(ctx context.Context, o *model.Order, catalogID uuid.UUID, itemIDs []string) error
	// GetOrder loads an order by ID.
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// ListOrdersByCampaign returns up to limit orders of a campaign, oldest first.
	ListOrdersByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]model.Order, error)
	// DeleteOrder removes an order. Absent orders are a no-op.
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	// DeleteOrdersByCampaign removes up to limit orders of a campaign and reports how many went.
	DeleteOrdersByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) (int, error)
}

// ShareRepository provides access to profile shares keyed by (profile, account).
type ShareRepository interface {
	// GetShare loads the share for the pair.
	GetShare(ctx context.Context, profileID, accountID uuid.UUID) (*model.Share, error)
	// PutShare inserts a share; an existing share for the pair yields errs.ErrConditionFailed
	// and a profile that is missing or soft-deleted yields errs.ErrNotFound.
	PutShare(ctx context.Context, s *model.Share) error
	// MergeShare unions perms into the existing share for the pair. A missing share or
	// a profile that is no longer live yields errs.ErrNotFound.
	MergeShare(ctx context.Context, profileID, accountID uuid.UUID, perms model.Permission, at time.Time) (*model.Share, error)
	// ListSharesByProfile returns all shares of a profile.
	ListSharesByProfile(ctx context.Context, profileID uuid.UUID) ([]model.Share, error)
	// ListSharesByAccount returns all shares granted to an account.
	ListSharesByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Share, error)
	// DeleteShare revokes a share. Absent shares are a no-op.
	DeleteShare(ctx context.Context, profileID, accountID uuid.UUID) error
	// DeleteSharesByProfile removes up to limit shares of a profile and reports how many went.
	DeleteSharesByProfile(ctx context.Context, profileID uuid.UUID, limit int) (int, error)
}

// InviteRepository provides access to invites indexed by code hash.
type InviteRepository interface {
	// PutInvite inserts an invite; a code hash collision yields errs.ErrConditionFailed.
	PutInvite(ctx context.Context, inv *model.Invite) error
	// GetInvite loads an invite by ID.
	GetInvite(ctx context.Context, id uuid.UUID) (*model.Invite, error)
	// GetInviteByCode loads an invite through the code hash index.
	GetInviteByCode(ctx context.Context, codeHash []byte) (*model.Invite, error)
	// RedeemInvite atomically marks a pending, unexpired invite used and upserts the redeemer's share
	// (permissions unioned). If the invite is no longer pending and unexpired at write time, or its
	// profile is gone, nothing is written and errs.ErrConditionFailed is returned.
	RedeemInvite(ctx context.Context, inviteID, redeemer uuid.UUID, at time.Time) (model.Redemption, error)
	// ListInvitesByProfile returns all invites of a profile, newest first.
	ListInvitesByProfile(ctx context.Context, profileID uuid.UUID) ([]model.Invite, error)
	// ExpireInvite transitions a pending invite to expired; non-pending invites yield errs.ErrConditionFailed.
	ExpireInvite(ctx context.Context, id uuid.UUID) error
	// ExpireInvites transitions up to limit pending invites past expiry to expired.
	ExpireInvites(ctx context.Context, now time.Time, limit int) (int, error)
	// DeleteInvitesByProfile removes up to limit invites of a profile and reports how many went.
	DeleteInvitesByProfile(ctx context.Context, profileID uuid.UUID, limit int) (int, error)
}

// Store bundles every repository; it is the storage adapter services depend on.
type Store interface {
	AccountRepository
	ProfileRepository
	CatalogRepository
	CampaignRepository
	OrderRepository
	ShareRepository
	InviteRepository
}

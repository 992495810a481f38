// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Identity is the authenticated actor supplied by the identity provider.
type Identity struct {
	AccountID uuid.UUID
	Email     string
	Admin     bool
}

// Account is a user of the system. Email is unique (lower-cased).
type Account struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Profile is a fundraising seller owned by exactly one account.
type Profile struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	DisplayName string
	Deleted     bool       // soft-delete flag; set before the cascade starts
	DeletedAt   *time.Time // nil unless Deleted
	Ver         int64      // bumped on every owner/name change
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SharedProfile is a profile visible to an actor together with the actor's effective permissions.
type SharedProfile struct {
	Profile     Profile
	Permissions Permission
	Owned       bool
}

// CatalogKind distinguishes admin-managed catalogs from user-created ones.
type CatalogKind string

const (
	CatalogAdmin CatalogKind = "admin"
	CatalogUser  CatalogKind = "user"
)

// LineItem is a sellable product addressed by a stable id.
type LineItem struct {
	ID    string          `json:"id"`
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

// Catalog is a product list referenced by campaigns.
type Catalog struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID // uuid.Nil for admin-managed catalogs
	Kind      CatalogKind
	Name      string
	Public    bool
	LineItems []LineItem
	Deleted   bool
	Ver       int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item looks up a line item by id.
func (c *Catalog) Item(id string) (LineItem, bool) {
	for _, li := range c.LineItems {
		if li.ID == id {
			return li, true
		}
	}
	return LineItem{}, false
}

// ItemIDs returns line item ids in catalog order.
func (c *Catalog) ItemIDs() []string {
	out := make([]string, 0, len(c.LineItems))
	for _, li := range c.LineItems {
		out = append(out, li.ID)
	}
	return out
}

// Campaign is a time-boxed sale run by a profile against one catalog.
type Campaign struct {
	ID         uuid.UUID
	ProfileID  uuid.UUID
	CatalogID  uuid.UUID
	Name       string
	StartsOn   time.Time
	EndsOn     time.Time
	OriginCode string // optional shared-campaign code the campaign was created from
	CreatedAt  time.Time
}

// Buyer is the customer an order is recorded for.
type Buyer struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// OrderLine is a quantity of one catalog line item with the price resolved at creation.
type OrderLine struct {
	ItemID    string          `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order belongs to a campaign. ProfileID is denormalised so a cascade can find orders without joins.
type Order struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	ProfileID  uuid.UUID
	Buyer      Buyer
	Lines      []OrderLine
	Total      decimal.Decimal
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}

// Share grants a non-owner account permissions on a profile.
type Share struct {
	ProfileID   uuid.UUID
	AccountID   uuid.UUID
	Permissions Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InviteStatus is the lifecycle state of an invite.
type InviteStatus string

const (
	InvitePending InviteStatus = "pending"
	InviteUsed    InviteStatus = "used"
	InviteExpired InviteStatus = "expired"
)

// Invite is a single-use, expiring code that produces a Share when redeemed.
// Only the keyed hash of the code is persisted.
type Invite struct {
	ID          uuid.UUID
	CodeHash    []byte
	ProfileID   uuid.UUID
	Permissions Permission
	Status      InviteStatus
	CreatedBy   uuid.UUID
	UsedBy      uuid.UUID // uuid.Nil until used
	UsedAt      *time.Time
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// ExpiredAt reports whether the invite is past its expiry at now.
func (i *Invite) ExpiredAt(now time.Time) bool { return !now.Before(i.ExpiresAt) }

// IssuedInvite is returned once on creation; Code is never stored.
type IssuedInvite struct {
	Invite Invite
	Code   string
}

// Redemption is the result of a successful invite redemption.
type Redemption struct {
	Invite Invite
	Share  Share
}

// ProfileSnapshot is a read-only export of a profile and its dependents.
type ProfileSnapshot struct {
	Profile   Profile
	Campaigns []Campaign
	Orders    []Order
	TakenAt   time.Time
	Truncated bool // a listing hit the export cap
}

// Package fundraiserv1 holds the wire messages, service descriptor and client of
// the scoutfund.v1.Fundraiser gRPC service. Messages travel as JSON.
package fundraiserv1

import (
	"time"

	"github.com/shopspring/decimal"
)

// Empty is returned by operations without a payload.
type Empty struct{}

// --- shared shapes ---

type Profile struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	DisplayName string    `json:"display_name"`
	Ver         int64     `json:"ver"`
	Permissions []string  `json:"permissions,omitempty"`
	Owned       bool      `json:"owned"`
	CreatedAt   time.Time `json:"created_at"`
}

type Share struct {
	ProfileID   string    `json:"profile_id"`
	AccountID   string    `json:"account_id"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Invite struct {
	ID          string     `json:"id"`
	ProfileID   string     `json:"profile_id"`
	Permissions []string   `json:"permissions"`
	Status      string     `json:"status"`
	CreatedBy   string     `json:"created_by"`
	UsedBy      string     `json:"used_by,omitempty"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type LineItem struct {
	ID    string          `json:"id" validate:"required,max=64"`
	Label string          `json:"label" validate:"required,max=120"`
	Price decimal.Decimal `json:"price"`
}

type Catalog struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id,omitempty"`
	Kind      string     `json:"kind"`
	Name      string     `json:"name"`
	Public    bool       `json:"public"`
	LineItems []LineItem `json:"line_items"`
	Ver       int64      `json:"ver"`
	CreatedAt time.Time  `json:"created_at"`
}

// Campaign dates are calendar days formatted as 2006-01-02.
type Campaign struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profile_id"`
	CatalogID  string    `json:"catalog_id"`
	Name       string    `json:"name"`
	StartsOn   string    `json:"starts_on"`
	EndsOn     string    `json:"ends_on"`
	OriginCode string    `json:"origin_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Buyer struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"max=32"`
	Address string `json:"address,omitempty" validate:"max=240"`
}

type OrderLine struct {
	ItemID    string          `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Order struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaign_id"`
	ProfileID  string          `json:"profile_id"`
	Buyer      Buyer           `json:"buyer"`
	Lines      []OrderLine     `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// --- identity and profiles ---

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	AccountID   string `json:"account_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Admin       bool   `json:"admin"`
}

type CreateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=120"`
}

type GetProfileRequest struct {
	ProfileID string `json:"profile_id" validate:"required,uuid"`
}

type ProfileResponse struct {
	Profile Profile `json:"profile"`
}

type ListProfilesRequest struct{}

type ListProfilesResponse struct {
	Profiles []Profile `json:"profiles"`
}

type RenameProfileRequest struct {
	ProfileID   string `json:"profile_id" validate:"required,uuid"`
	BaseVer     int64  `json:"base_ver" validate:"gt=0"`
	DisplayName string `json:"display_name" validate:"required,max=120"`
}

type VersionResponse struct {
	Ver int64 `json:"ver"`
}

// --- sharing and invites ---

type CreateDirectShareRequest struct {
	ProfileID      string   `json:"profile_id" validate:"required,uuid"`
	RecipientEmail string   `json:"recipient_email" validate:"required,email"`
	Permissions    []string `json:"permissions" validate:"required,min=1,dive,oneof=read write"`
}

type ShareResponse struct {
	Share Share `json:"share"`
}

type CreateInviteCodeRequest struct {
	ProfileID   string   `json:"profile_id" validate:"required,uuid"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,oneof=read write"`
	// TTLSeconds of zero selects the server default.
	TTLSeconds int64 `json:"ttl_seconds,omitempty" validate:"gte=0"`
}

type CreateInviteCodeResponse struct {
	Code   string `json:"code"`
	Invite Invite `json:"invite"`
}

type RedeemInviteRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type RedeemInviteResponse struct {
	Share  Share  `json:"share"`
	Invite Invite `json:"invite"`
}

type ListSharesRequest struct {
	ProfileID string `json:"profile_id" validate:"required,uuid"`
}

type ListSharesResponse struct {
	Shares []Share `json:"shares"`
}

type RevokeShareRequest struct {
	ProfileID string `json:"profile_id" validate:"required,uuid"`
	AccountID string `json:"account_id" validate:"required,uuid"`
}

type ListInvitesRequest struct {
	ProfileID string `json:"profile_id" validate:"required,uuid"`
}

type ListInvitesResponse struct {
	Invites []Invite `json:"invites"`
}

type RevokeInviteRequest struct {
	InviteID string `json:"invite_id" validate:"required,uuid"`
}

// --- ownership and deletion ---

type TransferOwnershipRequest struct {
	ProfileID  string `json:"profile_id" validate:"required,uuid"`
	NewOwnerID string `json:"new_owner_id" validate:"required,uuid"`
}

type DeleteProfileCascadeRequest struct {
	ProfileID string `json:"profile_id" validate:"required,uuid"`
}

type DeleteProfileCascadeResponse struct {
	Campaigns   int  `json:"campaigns"`
	Orders      int  `json:"orders"`
	Shares      int  `json:"shares"`
	Invites     int  `json:"invites"`
	AlreadyGone bool `json:"already_gone,omitempty"`
	Resumed     bool `json:"resumed,omitempty"`
}

// --- catalogs ---

type CreateCatalogRequest struct {
	Name      string     `json:"name" validate:"required,max=120"`
	Admin     bool       `json:"admin,omitempty"`
	Public    bool       `json:"public,omitempty"`
	LineItems []LineItem `json:"line_items" validate:"max=200,dive"`
}

type GetCatalogRequest struct {
	CatalogID string `json:"catalog_id" validate:"required,uuid"`
}

type CatalogResponse struct {
	Catalog Catalog `json:"catalog"`
}

type ListCatalogsRequest struct{}

type ListCatalogsResponse struct {
	Catalogs []Catalog `json:"catalogs"`
}

type UpdateCatalogItemsRequest struct {
	CatalogID string     `json:"catalog_id" validate:"required,uuid"`
	BaseVer   int64      `json:"base_ver" validate:"gt=0"`
	LineItems []LineItem `json:"line_items" validate:"max=200,dive"`
}

type DeleteCatalogRequest struct {
	CatalogID string `json:"catalog_id" validate:"required,uuid"`
	BaseVer   int64  `json:"base_ver" validate:"gt=0"`
}

// --- campaigns ---

type CreateCampaignRequest struct {
	ProfileID  string `json:"profile_id" validate:"required,uuid"`
	CatalogID  string `json:"catalog_id" validate:"required,uuid"`
	Name       string `json:"name" validate:"required,max=120"`
	StartsOn   string `json:"starts_on" validate:"required,datetime=2006-01-02"`
	EndsOn     string `json:"ends_on" validate:"required,datetime=2006-01-02"`
	OriginCode string `json:"origin_code,omitempty" validate:"max=64"`
}

type CampaignResponse struct {
	Campaign Campaign `json:"campaign"`
}

type ListCampaignsRequest struct {
	ProfileID string `json:"profile_id" validate:"required,uuid"`
	Limit     int    `json:"limit,omitempty" validate:"gte=0,lte=500"`
}

type ListCampaignsResponse struct {
	Campaigns []Campaign `json:"campaigns"`
}

// --- orders ---

type OrderLineInput struct {
	ItemID   string `json:"item_id" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

type CreateOrderRequest struct {
	CampaignID string           `json:"campaign_id" validate:"required,uuid"`
	Buyer      Buyer            `json:"buyer"`
	Lines      []OrderLineInput `json:"lines" validate:"required,min=1,max=200,dive"`
}

type OrderResponse struct {
	Order Order `json:"order"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

type DeleteOrderRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

type ListOrdersRequest struct {
	CampaignID string `json:"campaign_id" validate:"required,uuid"`
	Limit      int    `json:"limit,omitempty" validate:"gte=0,lte=500"`
}

type ListOrdersResponse struct {
	Orders []Order `json:"orders"`
}

// --- exports ---

type ExportProfileRequest struct {
	ProfileID string `json:"profile_id" validate:"required,uuid"`
}

type ExportProfileResponse struct {
	Location string `json:"location"`
}

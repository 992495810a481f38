// Package convert maps between wire messages and domain structs.
package convert

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	pb "github.com/and161185/scoutfund/api/fundraiser/v1"
	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// DayLayout is the wire format of campaign dates.
const DayLayout = "2006-01-02"

// --- helpers ---

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// ParseID parses a textual uuid; field names the request field for the error.
func ParseID(field, s string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.Invalid("bad %s %q", field, s).With("field", field)
	}
	return id, nil
}

// ParsePermissions parses permission names into a grant.
func ParsePermissions(names []string) (model.Permission, error) {
	p, err := model.ParsePermissions(names)
	if err != nil {
		return 0, errs.Invalid("%v", err).With("field", "permissions")
	}
	return p, nil
}

// ParseDay parses a calendar day as UTC midnight.
func ParseDay(field, s string) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, errs.Invalid("bad %s %q", field, s).With("field", field)
	}
	return d, nil
}

// --- profiles ---

// ToProfile converts a profile seen by its owner.
func ToProfile(p model.Profile) pb.Profile {
	return pb.Profile{
		ID:          p.ID.String(),
		OwnerID:     p.OwnerID.String(),
		DisplayName: p.DisplayName,
		Ver:         p.Ver,
		Permissions: []string{model.PermOwner.String()},
		Owned:       true,
		CreatedAt:   p.CreatedAt,
	}
}

// ToSharedProfile converts a profile together with the caller's effective grant.
func ToSharedProfile(sp model.SharedProfile) pb.Profile {
	out := ToProfile(sp.Profile)
	out.Owned = sp.Owned
	if !sp.Owned {
		out.Permissions = sp.Permissions.Names()
	}
	return out
}

// ToSharedProfiles converts a listing.
func ToSharedProfiles(in []model.SharedProfile) []pb.Profile {
	out := make([]pb.Profile, 0, len(in))
	for _, sp := range in {
		out = append(out, ToSharedProfile(sp))
	}
	return out
}

// --- shares and invites ---

// ToShare converts a share.
func ToShare(s model.Share) pb.Share {
	return pb.Share{
		ProfileID:   s.ProfileID.String(),
		AccountID:   s.AccountID.String(),
		Permissions: s.Permissions.Names(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// ToShares converts a slice of shares.
func ToShares(in []model.Share) []pb.Share {
	out := make([]pb.Share, 0, len(in))
	for _, s := range in {
		out = append(out, ToShare(s))
	}
	return out
}

// ToInvite converts an invite. The code hash never leaves the server.
func ToInvite(i model.Invite) pb.Invite {
	return pb.Invite{
		ID:          i.ID.String(),
		ProfileID:   i.ProfileID.String(),
		Permissions: i.Permissions.Names(),
		Status:      string(i.Status),
		CreatedBy:   idString(i.CreatedBy),
		UsedBy:      idString(i.UsedBy),
		UsedAt:      i.UsedAt,
		ExpiresAt:   i.ExpiresAt,
		CreatedAt:   i.CreatedAt,
	}
}

// ToInvites converts a slice of invites.
func ToInvites(in []model.Invite) []pb.Invite {
	out := make([]pb.Invite, 0, len(in))
	for _, i := range in {
		out = append(out, ToInvite(i))
	}
	return out
}

// --- catalogs ---

// FromLineItems converts wire line items to domain ones.
func FromLineItems(in []pb.LineItem) []model.LineItem {
	out := make([]model.LineItem, 0, len(in))
	for _, li := range in {
		out = append(out, model.LineItem{ID: strings.TrimSpace(li.ID), Label: strings.TrimSpace(li.Label), Price: li.Price})
	}
	return out
}

// ToCatalog converts a catalog.
func ToCatalog(c model.Catalog) pb.Catalog {
	items := make([]pb.LineItem, 0, len(c.LineItems))
	for _, li := range c.LineItems {
		items = append(items, pb.LineItem{ID: li.ID, Label: li.Label, Price: li.Price})
	}
	return pb.Catalog{
		ID:        c.ID.String(),
		OwnerID:   idString(c.OwnerID),
		Kind:      string(c.Kind),
		Name:      c.Name,
		Public:    c.Public,
		LineItems: items,
		Ver:       c.Ver,
		CreatedAt: c.CreatedAt,
	}
}

// ToCatalogs converts a slice of catalogs.
func ToCatalogs(in []model.Catalog) []pb.Catalog {
	out := make([]pb.Catalog, 0, len(in))
	for _, c := range in {
		out = append(out, ToCatalog(c))
	}
	return out
}

// --- campaigns ---

// ToCampaign converts a campaign.
func ToCampaign(c model.Campaign) pb.Campaign {
	return pb.Campaign{
		ID:         c.ID.String(),
		ProfileID:  c.ProfileID.String(),
		CatalogID:  c.CatalogID.String(),
		Name:       c.Name,
		StartsOn:   c.StartsOn.UTC().Format(DayLayout),
		EndsOn:     c.EndsOn.UTC().Format(DayLayout),
		OriginCode: c.OriginCode,
		CreatedAt:  c.CreatedAt,
	}
}

// ToCampaigns converts a slice of campaigns.
func ToCampaigns(in []model.Campaign) []pb.Campaign {
	out := make([]pb.Campaign, 0, len(in))
	for _, c := range in {
		out = append(out, ToCampaign(c))
	}
	return out
}

// --- orders ---

// FromBuyer converts the wire buyer.
func FromBuyer(b pb.Buyer) model.Buyer {
	return model.Buyer{
		Name:    strings.TrimSpace(b.Name),
		Email:   strings.TrimSpace(b.Email),
		Phone:   strings.TrimSpace(b.Phone),
		Address: strings.TrimSpace(b.Address),
	}
}

// ToOrder converts an order.
func ToOrder(o model.Order) pb.Order {
	lines := make([]pb.OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, pb.OrderLine{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return pb.Order{
		ID:         o.ID.String(),
		CampaignID: o.CampaignID.String(),
		ProfileID:  o.ProfileID.String(),
		Buyer:      pb.Buyer(o.Buyer),
		Lines:      lines,
		Total:      o.Total,
		CreatedBy:  idString(o.CreatedBy),
		CreatedAt:  o.CreatedAt,
	}
}

// ToOrders converts a slice of orders.
func ToOrders(in []model.Order) []pb.Order {
	out := make([]pb.Order, 0, len(in))
	for _, o := range in {
		out = append(out, ToOrder(o))
	}
	return out
}

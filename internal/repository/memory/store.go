// Package memory is an in-process repository.Store with the same conditional-write
// semantics as the PostgreSQL adapter. Services and transports test against it.
package memory

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
	"github.com/and161185/scoutfund/internal/repository"
)

type shareKey struct{ profile, account uuid.UUID }

type seqCampaign struct {
	model.Campaign
	seq uint64
}

type seqOrder struct {
	model.Order
	seq uint64
}

// Store keeps every entity in maps guarded by one mutex.
type Store struct {
	mu  sync.Mutex
	seq uint64

	accounts  map[uuid.UUID]model.Account
	emails    map[string]uuid.UUID
	profiles  map[uuid.UUID]model.Profile
	catalogs  map[uuid.UUID]model.Catalog
	campaigns map[uuid.UUID]seqCampaign
	orders    map[uuid.UUID]seqOrder
	shares    map[shareKey]model.Share
	invites   map[uuid.UUID]model.Invite

	// Fault, when set, is consulted before every write; a non-nil result is returned
	// instead of performing the write.
	Fault func(op string) error
}

var _ repository.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:  map[uuid.UUID]model.Account{},
		emails:    map[string]uuid.UUID{},
		profiles:  map[uuid.UUID]model.Profile{},
		catalogs:  map[uuid.UUID]model.Catalog{},
		campaigns: map[uuid.UUID]seqCampaign{},
		orders:    map[uuid.UUID]seqOrder{},
		shares:    map[shareKey]model.Share{},
		invites:   map[uuid.UUID]model.Invite{},
	}
}

func (s *Store) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Fault != nil {
		if err := s.Fault(op); err != nil {
			return err
		}
	}
	s.mu.Lock()
	return nil
}

func (s *Store) read(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	return nil
}

func notFound(entity string, id uuid.UUID) error {
	return errs.ErrNotFound.With("entity", entity, entity+"_id", id.String())
}

// Accounts

func (s *Store) CreateAccount(ctx context.Context, a *model.Account, first *model.Profile) error {
	if err := s.begin(ctx, "CreateAccount"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	email := strings.ToLower(a.Email)
	if _, ok := s.accounts[a.ID]; ok {
		return errs.ErrAlreadyExists.With("entity", "account", "account_id", a.ID.String())
	}
	if _, ok := s.emails[email]; ok {
		return errs.ErrAlreadyExists.With("entity", "account", "email", a.Email)
	}
	if first != nil {
		if _, ok := s.profiles[first.ID]; ok {
			return errs.ErrAlreadyExists.With("entity", "profile", "profile_id", first.ID.String())
		}
		first.Ver = 1
		first.UpdatedAt = first.CreatedAt
		s.profiles[first.ID] = *first
	}
	cp := *a
	cp.Email = email
	s.accounts[a.ID] = cp
	s.emails[email] = a.ID
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, notFound("account", id)
	}
	return &a, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, errs.ErrNotFound.With("entity", "account", "email", email)
	}
	a := s.accounts[id]
	return &a, nil
}

// Profiles

func (s *Store) CreateProfile(ctx context.Context, p *model.Profile) error {
	if err := s.begin(ctx, "CreateProfile"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return errs.ErrAlreadyExists.With("entity", "profile", "profile_id", p.ID.String())
	}
	p.Ver = 1
	p.UpdatedAt = p.CreatedAt
	s.profiles[p.ID] = *p
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, notFound("profile", id)
	}
	return &p, nil
}

func (s *Store) ListProfilesByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Profile, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []model.Profile
	for _, p := range s.profiles {
		if p.OwnerID == ownerID && !p.Deleted {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func deletedBefore(a, b repository.DeletedCursor) bool {
	if !a.DeletedAt.Equal(b.DeletedAt) {
		return a.DeletedAt.Before(b.DeletedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

func (s *Store) ListDeletedProfiles(ctx context.Context, after repository.DeletedCursor, limit int) ([]model.Profile, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []model.Profile
	for _, p := range s.profiles {
		if p.Deleted && deletedBefore(after, repository.CursorAfter(p)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return deletedBefore(repository.CursorAfter(out[i]), repository.CursorAfter(out[j]))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RenameProfile(ctx context.Context, id uuid.UUID, baseVer int64, name string, at time.Time) (int64, error) {
	if err := s.begin(ctx, "RenameProfile"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok || p.Deleted {
		return 0, notFound("profile", id)
	}
	if p.Ver != baseVer {
		return 0, errs.ErrVersionConflict.With("profile_id", id.String())
	}
	p.DisplayName = name
	p.Ver++
	p.UpdatedAt = at
	s.profiles[id] = p
	return p.Ver, nil
}

func (s *Store) TransferOwner(ctx context.Context, id, expectedOwner, newOwner uuid.UUID, at time.Time) (*model.Profile, error) {
	if err := s.begin(ctx, "TransferOwner"); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok || p.Deleted || p.OwnerID != expectedOwner {
		return nil, errs.ErrConditionFailed.With("profile_id", id.String(), "expected_owner", expectedOwner.String())
	}
	p.OwnerID = newOwner
	p.Ver++
	p.UpdatedAt = at
	s.profiles[id] = p
	delete(s.shares, shareKey{id, newOwner})
	return &p, nil
}

func (s *Store) MarkProfileDeleted(ctx context.Context, id, ownerID uuid.UUID, at time.Time) error {
	if err := s.begin(ctx, "MarkProfileDeleted"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return notFound("profile", id)
	}
	if p.OwnerID != ownerID {
		return errs.ErrConditionFailed.With("profile_id", id.String(), "expected_owner", ownerID.String())
	}
	if p.Deleted {
		return nil
	}
	p.Deleted = true
	p.DeletedAt = &at
	p.Ver++
	p.UpdatedAt = at
	s.profiles[id] = p
	return nil
}

func (s *Store) PurgeProfile(ctx context.Context, id uuid.UUID) error {
	if err := s.begin(ctx, "PurgeProfile"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok && p.Deleted {
		delete(s.profiles, id)
	}
	return nil
}

// Catalogs

func cloneCatalog(c model.Catalog) model.Catalog {
	c.LineItems = slices.Clone(c.LineItems)
	return c
}

func (s *Store) CreateCatalog(ctx context.Context, c *model.Catalog) error {
	if err := s.begin(ctx, "CreateCatalog"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.catalogs[c.ID]; ok {
		return errs.ErrAlreadyExists.With("entity", "catalog", "catalog_id", c.ID.String())
	}
	c.Ver = 1
	c.UpdatedAt = c.CreatedAt
	s.catalogs[c.ID] = cloneCatalog(*c)
	return nil
}

func (s *Store) GetCatalog(ctx context.Context, id uuid.UUID) (*model.Catalog, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	c, ok := s.catalogs[id]
	if !ok {
		return nil, notFound("catalog", id)
	}
	c = cloneCatalog(c)
	return &c, nil
}

func (s *Store) ListCatalogs(ctx context.Context, accountID uuid.UUID) ([]model.Catalog, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []model.Catalog
	for _, c := range s.catalogs {
		if c.Deleted {
			continue
		}
		if c.Public || c.Kind == model.CatalogAdmin || c.OwnerID == accountID {
			out = append(out, cloneCatalog(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) UpdateCatalogItems(ctx context.Context, id uuid.UUID, baseVer int64, items []model.LineItem, at time.Time) (int64, error) {
	if err := s.begin(ctx, "UpdateCatalogItems"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	c, ok := s.catalogs[id]
	if !ok || c.Deleted {
		return 0, notFound("catalog", id)
	}
	if c.Ver != baseVer {
		return 0, errs.ErrVersionConflict.With("catalog_id", id.String())
	}
	c.LineItems = slices.Clone(items)
	c.Ver++
	c.UpdatedAt = at
	s.catalogs[id] = c
	return c.Ver, nil
}

func (s *Store) DeleteCatalog(ctx context.Context, id uuid.UUID, baseVer int64) error {
	if err := s.begin(ctx, "DeleteCatalog"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	c, ok := s.catalogs[id]
	if !ok {
		return notFound("catalog", id)
	}
	if c.Deleted {
		return nil
	}
	if c.Ver != baseVer {
		return errs.ErrVersionConflict.With("catalog_id", id.String())
	}
	c.Deleted = true
	c.Ver++
	s.catalogs[id] = c
	return nil
}

// Campaigns

func (s *Store) liveProfile(id uuid.UUID) bool {
	p, ok := s.profiles[id]
	return ok && !p.Deleted
}

func (s *Store) liveCatalog(id uuid.UUID) (model.Catalog, bool) {
	c, ok := s.catalogs[id]
	return c, ok && !c.Deleted
}

func (s *Store) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	if err := s.begin(ctx, "CreateCampaign"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.campaigns[c.ID]; ok {
		return errs.ErrAlreadyExists.With("entity", "campaign", "campaign_id", c.ID.String())
	}
	if _, ok := s.liveCatalog(c.CatalogID); !ok || !s.liveProfile(c.ProfileID) {
		return errs.ErrConditionFailed.With("profile_id", c.ProfileID.String(), "catalog_id", c.CatalogID.String())
	}
	s.seq++
	s.campaigns[c.ID] = seqCampaign{Campaign: *c, seq: s.seq}
	return nil
}

func (s *Store) GetCampaign(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, notFound("campaign", id)
	}
	return &c.Campaign, nil
}

func (s *Store) ListCampaignsByProfile(ctx context.Context, profileID uuid.UUID, limit int) ([]model.Campaign, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var rows []seqCampaign
	for _, c := range s.campaigns {
		if c.ProfileID == profileID {
			rows = append(rows, c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]model.Campaign, 0, min(limit, len(rows)))
	for i := 0; i < len(rows) && i < limit; i++ {
		out = append(out, rows[i].Campaign)
	}
	return out, nil
}

func (s *Store) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	if err := s.begin(ctx, "DeleteCampaign"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.campaigns[id]; !ok {
		return nil
	}
	for _, o := range s.orders {
		if o.CampaignID == id {
			return errs.ErrConditionFailed.With("campaign_id", id.String(), "reason", "orders remain")
		}
	}
	delete(s.campaigns, id)
	return nil
}

// Orders

func cloneOrder(o model.Order) model.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}

func (s *Store) CreateOrder(ctx context.Context, o *model.Order, catalogID uuid.UUID, itemIDs []string) error {
	if err := s.begin(ctx, "CreateOrder"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return errs.ErrAlreadyExists.With("entity", "order", "order_id", o.ID.String())
	}
	failed := errs.ErrConditionFailed.With("campaign_id", o.CampaignID.String(), "catalog_id", catalogID.String())
	camp, ok := s.campaigns[o.CampaignID]
	if !ok || camp.ProfileID != o.ProfileID || camp.CatalogID != catalogID || !s.liveProfile(o.ProfileID) {
		return failed
	}
	cat, ok := s.liveCatalog(catalogID)
	if !ok {
		return failed
	}
	for _, id := range itemIDs {
		if _, ok := cat.Item(id); !ok {
			return failed
		}
	}
	s.seq++
	s.orders[o.ID] = seqOrder{Order: cloneOrder(*o), seq: s.seq}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	cp := cloneOrder(o.Order)
	return &cp, nil
}

func (s *Store) campaignOrders(campaignID uuid.UUID) []seqOrder {
	var rows []seqOrder
	for _, o := range s.orders {
		if o.CampaignID == campaignID {
			rows = append(rows, o)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	return rows
}

func (s *Store) ListOrdersByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]model.Order, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rows := s.campaignOrders(campaignID)
	out := make([]model.Order, 0, min(limit, len(rows)))
	for i := 0; i < len(rows) && i < limit; i++ {
		out = append(out, cloneOrder(rows[i].Order))
	}
	return out, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.begin(ctx, "DeleteOrder"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	delete(s.orders, id)
	return nil
}

func (s *Store) DeleteOrdersByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) (int, error) {
	if err := s.begin(ctx, "DeleteOrdersByCampaign"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	rows := s.campaignOrders(campaignID)
	n := 0
	for ; n < len(rows) && n < limit; n++ {
		delete(s.orders, rows[n].ID)
	}
	return n, nil
}

// Shares

func (s *Store) GetShare(ctx context.Context, profileID, accountID uuid.UUID) (*model.Share, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	sh, ok := s.shares[shareKey{profileID, accountID}]
	if !ok {
		return nil, errs.ErrNotFound.With("entity", "share", "profile_id", profileID.String(), "account_id", accountID.String())
	}
	return &sh, nil
}

func (s *Store) PutShare(ctx context.Context, sh *model.Share) error {
	if err := s.begin(ctx, "PutShare"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if !s.liveProfile(sh.ProfileID) {
		return notFound("profile", sh.ProfileID)
	}
	k := shareKey{sh.ProfileID, sh.AccountID}
	if _, ok := s.shares[k]; ok {
		return errs.ErrConditionFailed.With("profile_id", sh.ProfileID.String(), "account_id", sh.AccountID.String())
	}
	sh.Permissions = sh.Permissions.Normalize()
	sh.UpdatedAt = sh.CreatedAt
	s.shares[k] = *sh
	return nil
}

func (s *Store) MergeShare(ctx context.Context, profileID, accountID uuid.UUID, perms model.Permission, at time.Time) (*model.Share, error) {
	if err := s.begin(ctx, "MergeShare"); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	k := shareKey{profileID, accountID}
	sh, ok := s.shares[k]
	if !ok || !s.liveProfile(profileID) {
		return nil, errs.ErrNotFound.With("entity", "share", "profile_id", profileID.String(), "account_id", accountID.String())
	}
	sh.Permissions = sh.Permissions.Union(perms)
	sh.UpdatedAt = at
	s.shares[k] = sh
	return &sh, nil
}

func (s *Store) listShares(match func(model.Share) bool) []model.Share {
	var out []model.Share
	for _, sh := range s.shares {
		if match(sh) {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].ProfileID != out[j].ProfileID {
			return out[i].ProfileID.String() < out[j].ProfileID.String()
		}
		return out[i].AccountID.String() < out[j].AccountID.String()
	})
	return out
}

func (s *Store) ListSharesByProfile(ctx context.Context, profileID uuid.UUID) ([]model.Share, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.listShares(func(sh model.Share) bool { return sh.ProfileID == profileID }), nil
}

func (s *Store) ListSharesByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Share, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.listShares(func(sh model.Share) bool { return sh.AccountID == accountID }), nil
}

func (s *Store) DeleteShare(ctx context.Context, profileID, accountID uuid.UUID) error {
	if err := s.begin(ctx, "DeleteShare"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	delete(s.shares, shareKey{profileID, accountID})
	return nil
}

func (s *Store) DeleteSharesByProfile(ctx context.Context, profileID uuid.UUID, limit int) (int, error) {
	if err := s.begin(ctx, "DeleteSharesByProfile"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	n := 0
	for k := range s.shares {
		if n >= limit {
			break
		}
		if k.profile == profileID {
			delete(s.shares, k)
			n++
		}
	}
	return n, nil
}

// Invites

func cloneInvite(inv model.Invite) model.Invite {
	inv.CodeHash = bytes.Clone(inv.CodeHash)
	return inv
}

func (s *Store) PutInvite(ctx context.Context, inv *model.Invite) error {
	if err := s.begin(ctx, "PutInvite"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if !s.liveProfile(inv.ProfileID) {
		return notFound("profile", inv.ProfileID)
	}
	if _, ok := s.invites[inv.ID]; ok {
		return errs.ErrAlreadyExists.With("entity", "invite", "invite_id", inv.ID.String())
	}
	for _, other := range s.invites {
		if bytes.Equal(other.CodeHash, inv.CodeHash) {
			return errs.ErrConditionFailed.With("entity", "invite", "reason", "code collision")
		}
	}
	inv.Status = model.InvitePending
	inv.Permissions = inv.Permissions.Normalize()
	s.invites[inv.ID] = cloneInvite(*inv)
	return nil
}

func (s *Store) GetInvite(ctx context.Context, id uuid.UUID) (*model.Invite, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return nil, notFound("invite", id)
	}
	inv = cloneInvite(inv)
	return &inv, nil
}

func (s *Store) GetInviteByCode(ctx context.Context, codeHash []byte) (*model.Invite, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if bytes.Equal(inv.CodeHash, codeHash) {
			inv = cloneInvite(inv)
			return &inv, nil
		}
	}
	return nil, errs.ErrNotFound.With("entity", "invite")
}

func (s *Store) RedeemInvite(ctx context.Context, inviteID, redeemer uuid.UUID, at time.Time) (model.Redemption, error) {
	if err := s.begin(ctx, "RedeemInvite"); err != nil {
		return model.Redemption{}, err
	}
	defer s.mu.Unlock()
	inv, ok := s.invites[inviteID]
	if !ok || inv.Status != model.InvitePending || inv.ExpiredAt(at) || !s.liveProfile(inv.ProfileID) {
		return model.Redemption{}, errs.ErrConditionFailed.With("invite_id", inviteID.String())
	}
	inv.Status = model.InviteUsed
	inv.UsedBy = redeemer
	inv.UsedAt = &at
	s.invites[inviteID] = inv

	k := shareKey{inv.ProfileID, redeemer}
	sh, ok := s.shares[k]
	if ok {
		sh.Permissions = sh.Permissions.Union(inv.Permissions)
		sh.UpdatedAt = at
	} else {
		sh = model.Share{ProfileID: inv.ProfileID, AccountID: redeemer, Permissions: inv.Permissions.Normalize(), CreatedAt: at, UpdatedAt: at}
	}
	s.shares[k] = sh
	return model.Redemption{Invite: cloneInvite(inv), Share: sh}, nil
}

func (s *Store) ListInvitesByProfile(ctx context.Context, profileID uuid.UUID) ([]model.Invite, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []model.Invite
	for _, inv := range s.invites {
		if inv.ProfileID == profileID {
			out = append(out, cloneInvite(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ExpireInvite(ctx context.Context, id uuid.UUID) error {
	if err := s.begin(ctx, "ExpireInvite"); err != nil {
		return err
	}
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return notFound("invite", id)
	}
	if inv.Status != model.InvitePending {
		return errs.ErrConditionFailed.With("invite_id", id.String(), "status", string(inv.Status))
	}
	inv.Status = model.InviteExpired
	s.invites[id] = inv
	return nil
}

func (s *Store) ExpireInvites(ctx context.Context, now time.Time, limit int) (int, error) {
	if err := s.begin(ctx, "ExpireInvites"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	n := 0
	for id, inv := range s.invites {
		if n >= limit {
			break
		}
		if inv.Status == model.InvitePending && inv.ExpiredAt(now) {
			inv.Status = model.InviteExpired
			s.invites[id] = inv
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteInvitesByProfile(ctx context.Context, profileID uuid.UUID, limit int) (int, error) {
	if err := s.begin(ctx, "DeleteInvitesByProfile"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	n := 0
	for id, inv := range s.invites {
		if n >= limit {
			break
		}
		if inv.ProfileID == profileID {
			delete(s.invites, id)
			n++
		}
	}
	return n, nil
}

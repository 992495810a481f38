package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func seed(t *testing.T, s *Store) (model.Profile, model.Catalog, model.Campaign) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	p := model.Profile{ID: newID(), OwnerID: newID(), DisplayName: "Scout", CreatedAt: now}
	require.NoError(t, s.CreateProfile(ctx, &p))
	c := model.Catalog{ID: newID(), Kind: model.CatalogAdmin, Name: "Fall", CreatedAt: now,
		LineItems: []model.LineItem{{ID: "L1", Label: "Caramel", Price: decimal.RequireFromString("20")}}}
	require.NoError(t, s.CreateCatalog(ctx, &c))
	camp := model.Campaign{ID: newID(), ProfileID: p.ID, CatalogID: c.ID, Name: "Fall", StartsOn: now, EndsOn: now, CreatedAt: now}
	require.NoError(t, s.CreateCampaign(ctx, &camp))
	return p, c, camp
}

func TestStore_CreateOrder_Guards(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, c, camp := seed(t, s)
	o := model.Order{ID: newID(), CampaignID: camp.ID, ProfileID: p.ID, CreatedAt: time.Now()}

	require.ErrorIs(t, s.CreateOrder(ctx, &o, c.ID, []string{"L3"}), errs.ErrConditionFailed)
	require.NoError(t, s.CreateOrder(ctx, &o, c.ID, []string{"L1"}))
	require.ErrorIs(t, s.CreateOrder(ctx, &o, c.ID, []string{"L1"}), errs.ErrAlreadyExists)

	require.ErrorIs(t, s.DeleteCampaign(ctx, camp.ID), errs.ErrConditionFailed)
	n, err := s.DeleteOrdersByCampaign(ctx, camp.ID, 10)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, s.DeleteCampaign(ctx, camp.ID))
	require.NoError(t, s.DeleteCampaign(ctx, camp.ID))
}

func TestStore_RedeemInvite_SingleUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, _, _ := seed(t, s)
	now := time.Now().UTC()
	inv := model.Invite{ID: newID(), CodeHash: []byte("h"), ProfileID: p.ID, Permissions: model.PermWrite,
		CreatedBy: p.OwnerID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, s.PutInvite(ctx, &inv))
	dup := inv
	dup.ID = newID()
	require.ErrorIs(t, s.PutInvite(ctx, &dup), errs.ErrConditionFailed)

	b := newID()
	red, err := s.RedeemInvite(ctx, inv.ID, b, now)
	require.NoError(t, err)
	require.Equal(t, model.PermRead|model.PermWrite, red.Share.Permissions)

	_, err = s.RedeemInvite(ctx, inv.ID, newID(), now)
	require.ErrorIs(t, err, errs.ErrConditionFailed)
}

func TestStore_TransferOwner_DropsShare(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, _, _ := seed(t, s)
	b := newID()
	require.NoError(t, s.PutShare(ctx, &model.Share{ProfileID: p.ID, AccountID: b, Permissions: model.PermRead}))

	_, err := s.TransferOwner(ctx, p.ID, newID(), b, time.Now())
	require.ErrorIs(t, err, errs.ErrConditionFailed)

	got, err := s.TransferOwner(ctx, p.ID, p.OwnerID, b, time.Now())
	require.NoError(t, err)
	require.Equal(t, b, got.OwnerID)
	_, err = s.GetShare(ctx, p.ID, b)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_SharesAndInvites_RequireLiveProfile(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, _, _ := seed(t, s)
	now := time.Now().UTC()
	b := newID()
	require.NoError(t, s.PutShare(ctx, &model.Share{ProfileID: p.ID, AccountID: b, Permissions: model.PermRead, CreatedAt: now}))
	require.NoError(t, s.MarkProfileDeleted(ctx, p.ID, p.OwnerID, now))

	err := s.PutShare(ctx, &model.Share{ProfileID: p.ID, AccountID: newID(), Permissions: model.PermRead, CreatedAt: now})
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = s.MergeShare(ctx, p.ID, b, model.PermWrite, now)
	require.ErrorIs(t, err, errs.ErrNotFound)
	err = s.PutInvite(ctx, &model.Invite{ID: newID(), CodeHash: []byte("x"), ProfileID: p.ID, Permissions: model.PermRead,
		CreatedBy: p.OwnerID, ExpiresAt: now.Add(time.Hour), CreatedAt: now})
	require.ErrorIs(t, err, errs.ErrNotFound)

	err = s.PutShare(ctx, &model.Share{ProfileID: newID(), AccountID: b, Permissions: model.PermRead, CreatedAt: now})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_StampsCallerClock(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, c, _ := seed(t, s)
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := s.RenameProfile(ctx, p.ID, p.Ver, "Renamed", at)
	require.NoError(t, err)
	got, err := s.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, at, got.UpdatedAt)

	_, err = s.UpdateCatalogItems(ctx, c.ID, c.Ver, c.LineItems, at)
	require.NoError(t, err)
	cat, err := s.GetCatalog(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, at, cat.UpdatedAt)

	b := newID()
	require.NoError(t, s.PutShare(ctx, &model.Share{ProfileID: p.ID, AccountID: b, Permissions: model.PermRead, CreatedAt: at}))
	later := at.Add(time.Hour)
	sh, err := s.MergeShare(ctx, p.ID, b, model.PermWrite, later)
	require.NoError(t, err)
	require.Equal(t, later, sh.UpdatedAt)

	moved, err := s.TransferOwner(ctx, p.ID, p.OwnerID, newID(), later)
	require.NoError(t, err)
	require.Equal(t, later, moved.UpdatedAt)
}

func TestStore_Fault(t *testing.T) {
	s := New()
	s.Fault = func(op string) error {
		if op == "CreateProfile" {
			return errs.ErrTransient
		}
		return nil
	}
	err := s.CreateProfile(context.Background(), &model.Profile{ID: newID()})
	require.ErrorIs(t, err, errs.ErrTransient)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

func TestEnsureAccount_Idempotent(t *testing.T) {
	e := newEnv(t)
	s := NewProfileService(e.d)
	id := model.Identity{AccountID: newID(), Email: "Ann@Example.org"}

	a, err := s.EnsureAccount(e.ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ann@example.org", a.Email)

	again, err := s.EnsureAccount(e.ctx, id)
	require.NoError(t, err)
	require.Equal(t, a.ID, again.ID)

	ps, err := s.ListProfiles(e.ctx, id.AccountID)
	require.NoError(t, err)
	require.Len(t, ps, 1, "default profile is created once")
	require.Equal(t, "ann", ps[0].Profile.DisplayName)
	require.True(t, ps[0].Owned)
}

func TestEnsureAccount_FailedProvisionLeavesNothing(t *testing.T) {
	e := newEnv(t)
	s := NewProfileService(e.d)
	id := model.Identity{AccountID: newID(), Email: "ann@example.org"}

	e.store.Fault = func(op string) error {
		if op == "CreateAccount" {
			return errs.ErrTransient
		}
		return nil
	}
	_, err := s.EnsureAccount(e.ctx, id)
	require.ErrorIs(t, err, errs.ErrTransient)
	_, err = e.store.GetAccount(e.ctx, id.AccountID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	e.store.Fault = nil
	_, err = s.EnsureAccount(e.ctx, id)
	require.NoError(t, err)
	ps, err := s.ListProfiles(e.ctx, id.AccountID)
	require.NoError(t, err)
	require.Len(t, ps, 1, "the retry provisions the default profile")
}

func TestEnsureAccount_Validation(t *testing.T) {
	e := newEnv(t)
	s := NewProfileService(e.d)
	if _, err := s.EnsureAccount(e.ctx, model.Identity{}); err == nil {
		t.Fatalf("want error for empty account id")
	}
	if _, err := s.EnsureAccount(e.ctx, model.Identity{AccountID: newID(), Email: "nope"}); err == nil {
		t.Fatalf("want error for email without @")
	}
}

func TestListProfiles_SharedAndDeleted(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "Troop 12")
	gone := e.profile(a.ID, "Old troop")

	sharing := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)
	_, err := sharing.CreateDirectShare(e.ctx, a.ID, p.ID, b.Email, model.PermWrite)
	require.NoError(t, err)
	_, err = sharing.CreateDirectShare(e.ctx, a.ID, gone.ID, b.Email, model.PermRead)
	require.NoError(t, err)
	require.NoError(t, e.store.MarkProfileDeleted(e.ctx, gone.ID, a.ID, e.clock()))

	ps, err := NewProfileService(e.d).ListProfiles(e.ctx, b.ID)
	require.NoError(t, err)
	var shared []model.SharedProfile
	for _, sp := range ps {
		if !sp.Owned {
			shared = append(shared, sp)
		}
	}
	require.Len(t, shared, 1)
	require.Equal(t, p.ID, shared[0].Profile.ID)
	require.Equal(t, model.PermRead|model.PermWrite, shared[0].Permissions)
}

func TestRenameProfile(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "Troop 12")
	s := NewProfileService(e.d)

	ver, err := s.RenameProfile(e.ctx, a.ID, p.ID, p.Ver, "Troop 12 North")
	require.NoError(t, err)
	require.Equal(t, p.Ver+1, ver)

	_, err = s.RenameProfile(e.ctx, a.ID, p.ID, p.Ver, "stale")
	require.ErrorIs(t, err, errs.ErrVersionConflict)

	_, err = s.RenameProfile(e.ctx, b.ID, p.ID, ver, "hijack")
	require.ErrorIs(t, err, errs.ErrForbidden)

	got, err := s.GetProfile(e.ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Troop 12 North", got.Profile.DisplayName)
}

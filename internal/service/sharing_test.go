package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/scoutfund/internal/crypto"
	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

func hasher(t *testing.T) *crypto.CodeHasher {
	t.Helper()
	h, err := crypto.NewCodeHasher([]byte("test-pepper"))
	require.NoError(t, err)
	return h
}

func fixedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

type fakeLimiter struct {
	mu       sync.Mutex
	blocked  bool
	fails    int
	max      int
	success  int
	allowErr error
}

func (f *fakeLimiter) Allow(context.Context, uuid.UUID, []byte) (bool, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allowErr != nil {
		return false, 0, f.allowErr
	}
	if f.blocked {
		return false, time.Minute, nil
	}
	return true, 0, nil
}

func (f *fakeLimiter) Success(context.Context, uuid.UUID, []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.success++
	f.fails = 0
	return nil
}

func (f *fakeLimiter) Failure(context.Context, uuid.UUID, []byte) (bool, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails++
	if f.max > 0 && f.fails >= f.max {
		f.blocked = true
		return true, time.Minute, nil
	}
	return false, 0, nil
}

func TestInviteScenario_ABC123(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	c := e.account("c@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), fixedCodes("ABC123"), nil)

	issued, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, "ABC123", issued.Code)
	require.Equal(t, e.clock().Add(24*time.Hour), issued.Invite.ExpiresAt)

	red, err := s.RedeemInvite(e.ctx, b.ID, "abc-123", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, model.PermRead, red.Share.Permissions)
	require.Equal(t, model.InviteUsed, red.Invite.Status)

	sh, err := e.store.GetShare(e.ctx, p.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.PermRead, sh.Permissions, "read-only share")

	_, err = s.RedeemInvite(e.ctx, c.ID, "ABC123", "10.0.0.2")
	require.ErrorIs(t, err, errs.ErrInviteAlreadyUsed)
	_, err = e.store.GetShare(e.ctx, p.ID, c.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	invites, err := s.ListInvites(e.ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, invites, 1)
	require.Equal(t, b.ID, invites[0].UsedBy)
}

func TestRedeemInvite_ConcurrentSingleUse(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)
	issued, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermWrite, 0)
	require.NoError(t, err)

	const n = 8
	redeemers := make([]model.Account, n)
	for i := range redeemers {
		redeemers[i] = e.account(newID().String() + "@example.org")
	}
	results := make([]error, n)
	var g errgroup.Group
	for i := range redeemers {
		i := i
		g.Go(func() error {
			_, results[i] = s.RedeemInvite(e.ctx, redeemers[i].ID, issued.Code, "")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, errs.ErrInviteAlreadyUsed)
	}
	require.Equal(t, 1, ok)

	shares, err := s.ListShares(e.ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, shares, 1)
}

func TestRedeemInvite_Errors(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)

	_, err := s.RedeemInvite(e.ctx, b.ID, "NOPE2345", "")
	require.ErrorIs(t, err, errs.ErrInviteNotFound)

	_, err = s.RedeemInvite(e.ctx, b.ID, "  ", "")
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	issued, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, time.Hour)
	require.NoError(t, err)

	_, err = s.RedeemInvite(e.ctx, a.ID, issued.Code, "")
	require.ErrorIs(t, err, errs.ErrSelfShareNotAllowed)

	e.advance(time.Hour)
	_, err = s.RedeemInvite(e.ctx, b.ID, issued.Code, "")
	require.ErrorIs(t, err, errs.ErrInviteExpired)
	require.Equal(t, issued.Invite.ID.String(), errs.Meta(err)["invite_id"])
}

func TestRedeemInvite_ProfileDeleted(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)
	issued, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.NoError(t, err)

	require.NoError(t, e.store.MarkProfileDeleted(e.ctx, p.ID, a.ID, e.clock()))
	_, err = s.RedeemInvite(e.ctx, b.ID, issued.Code, "")
	require.ErrorIs(t, err, errs.ErrInviteNotFound)
}

func TestRedeemInvite_MergesExistingShare(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)

	_, err := s.CreateDirectShare(e.ctx, a.ID, p.ID, b.Email, model.PermRead)
	require.NoError(t, err)
	issued, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermWrite, 0)
	require.NoError(t, err)
	red, err := s.RedeemInvite(e.ctx, b.ID, issued.Code, "")
	require.NoError(t, err)
	require.Equal(t, model.PermRead|model.PermWrite, red.Share.Permissions)
}

func TestRedeemInvite_RateLimited(t *testing.T) {
	e := newEnv(t)
	b := e.account("b@example.org")
	lim := &fakeLimiter{max: 2}
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, lim)

	_, err := s.RedeemInvite(e.ctx, b.ID, "WRONG234", "10.0.0.9")
	require.ErrorIs(t, err, errs.ErrInviteNotFound)
	_, err = s.RedeemInvite(e.ctx, b.ID, "WRONG234", "10.0.0.9")
	require.ErrorIs(t, err, errs.ErrRateLimited, "the failure that trips the block reports it")
	_, err = s.RedeemInvite(e.ctx, b.ID, "WRONG234", "10.0.0.9")
	require.ErrorIs(t, err, errs.ErrRateLimited)
	require.Equal(t, "1m0s", errs.Meta(err)["retry_after"])

	lim.allowErr = errors.New("db down")
	_, err = s.RedeemInvite(e.ctx, b.ID, "WRONG234", "10.0.0.9")
	require.ErrorContains(t, err, "db down")
}

func TestRedeemInvite_SuccessResetsLimiter(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	lim := &fakeLimiter{max: 5}
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, lim)
	issued, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.NoError(t, err)

	_, err = s.RedeemInvite(e.ctx, b.ID, "WRONG234", "")
	require.Error(t, err)
	_, err = s.RedeemInvite(e.ctx, b.ID, issued.Code, "")
	require.NoError(t, err)
	require.Equal(t, 1, lim.success)
	require.Zero(t, lim.fails)
}

func TestCreateInviteCode_CollisionsExhaust(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{CodeAttempts: 3}, hasher(t), fixedCodes("SAME2345"), nil)

	_, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.NoError(t, err)
	_, err = s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.ErrorIs(t, err, errs.ErrCodeGenerationExhausted)
	require.Equal(t, "3", errs.Meta(err)["attempts"])
}

func TestCreateInviteCode_RetriesPastCollision(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), fixedCodes("SAME2345", "SAME2345", "OTHER234"), nil)

	first, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.NoError(t, err)
	second, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.NoError(t, err)
	require.NotEqual(t, first.Code, second.Code)
	require.Equal(t, "OTHER234", second.Code)
}

func TestCreateInviteCode_Validation(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{MaxInviteTTL: 48 * time.Hour}, hasher(t), nil, nil)

	_, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 72*time.Hour)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermOwner, 0)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = s.CreateInviteCode(e.ctx, a.ID, p.ID, 0, 0)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = s.CreateInviteCode(e.ctx, b.ID, p.ID, model.PermRead, 0)
	require.ErrorIs(t, err, errs.ErrNotOwner)
}

func TestCreateDirectShare(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)

	_, err := s.CreateDirectShare(e.ctx, a.ID, p.ID, "nobody@example.org", model.PermRead)
	require.ErrorIs(t, err, errs.ErrRecipientNotFound)
	_, err = s.CreateDirectShare(e.ctx, a.ID, p.ID, "A@example.org", model.PermRead)
	require.ErrorIs(t, err, errs.ErrSelfShareNotAllowed)
	_, err = s.CreateDirectShare(e.ctx, b.ID, p.ID, a.Email, model.PermRead)
	require.ErrorIs(t, err, errs.ErrNotOwner)

	sh, err := s.CreateDirectShare(e.ctx, a.ID, p.ID, "B@Example.org", model.PermRead)
	require.NoError(t, err)
	require.Equal(t, model.PermRead, sh.Permissions)

	// re-invoking merges instead of failing
	sh, err = s.CreateDirectShare(e.ctx, a.ID, p.ID, b.Email, model.PermWrite)
	require.NoError(t, err)
	require.Equal(t, model.PermRead|model.PermWrite, sh.Permissions)

	shares, err := s.ListShares(e.ctx, b.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, shares, 1)

	require.NoError(t, s.RevokeShare(e.ctx, a.ID, p.ID, b.ID))
	require.NoError(t, s.RevokeShare(e.ctx, a.ID, p.ID, b.ID), "revoking twice is a no-op")
	_, err = s.ListShares(e.ctx, b.ID, p.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)
}

// cascadeOn deletes the profile the first time op is about to be written.
func cascadeOn(t *testing.T, e *testEnv, op string, owner, profileID uuid.UUID) {
	t.Helper()
	cascade := NewCascadeService(e.d, CascadeConfig{BackoffBase: time.Millisecond})
	e.store.Fault = func(got string) error {
		if got == op {
			e.store.Fault = nil
			_, err := cascade.DeleteProfileCascade(e.ctx, owner, profileID)
			require.NoError(t, err)
		}
		return nil
	}
}

func TestCreateDirectShare_ProfileDeletedMidway(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)

	cascadeOn(t, e, "PutShare", a.ID, p.ID)
	_, err := s.CreateDirectShare(e.ctx, a.ID, p.ID, b.Email, model.PermRead)
	require.ErrorIs(t, err, errs.ErrNotFound)

	shares, err := e.store.ListSharesByProfile(e.ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, shares)
}

func TestCreateDirectShare_ProfileDeletedBeforeMerge(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)
	_, err := s.CreateDirectShare(e.ctx, a.ID, p.ID, b.Email, model.PermRead)
	require.NoError(t, err)

	cascadeOn(t, e, "MergeShare", a.ID, p.ID)
	_, err = s.CreateDirectShare(e.ctx, a.ID, p.ID, b.Email, model.PermWrite)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NotErrorIs(t, err, errs.ErrConflict)

	shares, err := e.store.ListSharesByProfile(e.ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, shares)
}

func TestCreateInviteCode_ProfileDeletedMidway(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)

	cascadeOn(t, e, "PutInvite", a.ID, p.ID)
	_, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.ErrorIs(t, err, errs.ErrNotFound)

	invites, err := e.store.ListInvitesByProfile(e.ctx, p.ID)
	require.NoError(t, err)
	require.Empty(t, invites)
}

func TestCreateDirectShare_MergeUsesServiceClock(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)
	_, err := s.CreateDirectShare(e.ctx, a.ID, p.ID, b.Email, model.PermRead)
	require.NoError(t, err)

	e.advance(time.Hour)
	sh, err := s.CreateDirectShare(e.ctx, a.ID, p.ID, b.Email, model.PermWrite)
	require.NoError(t, err)
	require.Equal(t, e.clock(), sh.UpdatedAt)
}

func TestRevokeInvite(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	b := e.account("b@example.org")
	p := e.profile(a.ID, "P")
	s := NewSharingService(e.d, SharingConfig{}, hasher(t), nil, nil)

	issued, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.NoError(t, err)
	require.ErrorIs(t, s.RevokeInvite(e.ctx, b.ID, issued.Invite.ID), errs.ErrNotOwner)
	require.NoError(t, s.RevokeInvite(e.ctx, a.ID, issued.Invite.ID))
	require.NoError(t, s.RevokeInvite(e.ctx, a.ID, issued.Invite.ID))

	_, err = s.RedeemInvite(e.ctx, b.ID, issued.Code, "")
	require.ErrorIs(t, err, errs.ErrInviteExpired)

	used, err := s.CreateInviteCode(e.ctx, a.ID, p.ID, model.PermRead, 0)
	require.NoError(t, err)
	_, err = s.RedeemInvite(e.ctx, b.ID, used.Code, "")
	require.NoError(t, err)
	require.ErrorIs(t, s.RevokeInvite(e.ctx, a.ID, used.Invite.ID), errs.ErrInviteAlreadyUsed)

	require.ErrorIs(t, s.RevokeInvite(e.ctx, a.ID, newID()), errs.ErrInviteNotFound)
}

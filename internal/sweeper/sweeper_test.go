package sweeper

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
	"github.com/and161185/scoutfund/internal/repository/memory"
	"github.com/and161185/scoutfund/internal/service"
)

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func TestLocalLease(t *testing.T) {
	l := NewLocalLease()
	ctx := context.Background()
	release, ok, err := l.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, _ = l.Acquire(ctx, "other", time.Minute)
	require.True(t, ok)

	release()
	_, ok, _ = l.Acquire(ctx, "job", time.Minute)
	require.True(t, ok)
}

func TestExpireInvites_Batches(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	p := model.Profile{ID: newID(), OwnerID: newID(), DisplayName: "P", CreatedAt: now}
	require.NoError(t, st.CreateProfile(ctx, &p))
	pid := p.ID
	for i := 0; i < 5; i++ {
		exp := now.Add(-time.Minute)
		if i == 4 {
			exp = now.Add(time.Hour)
		}
		require.NoError(t, st.PutInvite(ctx, &model.Invite{
			ID: newID(), CodeHash: []byte{byte(i)}, ProfileID: pid, Permissions: model.PermRead,
			CreatedBy: newID(), ExpiresAt: exp, CreatedAt: now.Add(-time.Hour),
		}))
	}
	s := New(Config{Batch: 2}, st, nil, nil, zaptest.NewLogger(t))
	s.now = func() time.Time { return now }

	n, err := s.ExpireInvites(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	invites, err := st.ListInvitesByProfile(ctx, pid)
	require.NoError(t, err)
	pending := 0
	for _, inv := range invites {
		if inv.Status == model.InvitePending {
			pending++
		}
	}
	require.Equal(t, 1, pending)
}

func TestResumeCascades(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	owner := newID()
	now := time.Now().UTC()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		p := model.Profile{ID: newID(), OwnerID: owner, DisplayName: "P", CreatedAt: now}
		require.NoError(t, st.CreateProfile(ctx, &p))
		require.NoError(t, st.PutShare(ctx, &model.Share{ProfileID: p.ID, AccountID: newID(), Permissions: model.PermRead}))
		require.NoError(t, st.MarkProfileDeleted(ctx, p.ID, owner, now.Add(time.Duration(i)*time.Second)))
		ids = append(ids, p.ID)
	}
	live := model.Profile{ID: newID(), OwnerID: owner, DisplayName: "live", CreatedAt: now}
	require.NoError(t, st.CreateProfile(ctx, &live))

	cascade := service.NewCascadeService(service.Deps{Store: st}, service.CascadeConfig{BackoffBase: time.Millisecond})
	s := New(Config{Batch: 10}, st, cascade, nil, zaptest.NewLogger(t))

	n, err := s.ResumeCascades(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for _, id := range ids {
		_, err := st.GetProfile(ctx, id)
		require.ErrorIs(t, err, errs.ErrNotFound)
	}
	_, err = st.GetProfile(ctx, live.ID)
	require.NoError(t, err)

	n, err = s.ResumeCascades(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

type stubResumer struct{ err error }

func (r stubResumer) Resume(context.Context, uuid.UUID) (*service.CascadeReport, error) {
	return nil, r.err
}

func TestResumeCascades_IncompleteIsSkipped(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	owner := newID()
	p := model.Profile{ID: newID(), OwnerID: owner, CreatedAt: time.Now()}
	require.NoError(t, st.CreateProfile(ctx, &p))
	require.NoError(t, st.MarkProfileDeleted(ctx, p.ID, owner, time.Now()))

	s := New(Config{}, st, stubResumer{err: errs.ErrCascadeIncomplete}, nil, zaptest.NewLogger(t))
	n, err := s.ResumeCascades(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	boom := errors.New("boom")
	s = New(Config{}, st, stubResumer{err: boom}, nil, zaptest.NewLogger(t))
	_, err = s.ResumeCascades(ctx)
	require.ErrorIs(t, err, boom)
}

// stuckResumer purges every profile except the stuck ones, which stay incomplete.
type stuckResumer struct {
	st      *memory.Store
	stuck   map[uuid.UUID]bool
	visited []uuid.UUID
}

func (r *stuckResumer) Resume(ctx context.Context, id uuid.UUID) (*service.CascadeReport, error) {
	r.visited = append(r.visited, id)
	if r.stuck[id] {
		return nil, errs.ErrCascadeIncomplete
	}
	return &service.CascadeReport{}, r.st.PurgeProfile(ctx, id)
}

func TestResumeCascades_StuckProfilesDoNotStarveNewer(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	owner := newID()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		p := model.Profile{ID: newID(), OwnerID: owner, DisplayName: "P", CreatedAt: base}
		require.NoError(t, st.CreateProfile(ctx, &p))
		require.NoError(t, st.MarkProfileDeleted(ctx, p.ID, owner, base.Add(time.Duration(i)*time.Minute)))
		ids = append(ids, p.ID)
	}
	// the two oldest deletions never finish
	r := &stuckResumer{st: st, stuck: map[uuid.UUID]bool{ids[0]: true, ids[1]: true}}
	s := New(Config{Batch: 2}, st, r, nil, zaptest.NewLogger(t))

	n, err := s.ResumeCascades(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	n, err = s.ResumeCascades(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, ids, r.visited)

	for _, id := range ids[2:] {
		_, err := st.GetProfile(ctx, id)
		require.ErrorIs(t, err, errs.ErrNotFound)
	}

	// the pass wraps around to the stuck ones
	_, err = s.ResumeCascades(ctx)
	require.NoError(t, err)
	require.Equal(t, ids[:2], r.visited[4:])
}

type deniedLease struct{}

func (deniedLease) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

func TestTick_SkipsWithoutLease(t *testing.T) {
	s := New(Config{}, memory.New(), nil, deniedLease{}, zaptest.NewLogger(t))
	ran := false
	s.tick("job", func(context.Context) (int, error) { ran = true; return 0, nil })
	require.False(t, ran)

	s = New(Config{}, memory.New(), nil, nil, zaptest.NewLogger(t))
	s.tick("job", func(context.Context) (int, error) { ran = true; return 1, nil })
	require.True(t, ran)
}

func TestStartStop(t *testing.T) {
	s := New(Config{InvitesSpec: "@every 1h", CascadesSpec: ""}, memory.New(), nil, nil, zaptest.NewLogger(t))
	require.NoError(t, s.Start())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	bad := New(Config{InvitesSpec: "every now and then"}, memory.New(), nil, nil, zaptest.NewLogger(t))
	require.Error(t, bad.Start())
}

func TestRedisLease(t *testing.T) {
	url := os.Getenv("SF_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SF_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := OpenRedis(ctx, url)
	require.NoError(t, err)
	defer rdb.Close()

	l := NewRedisLease(rdb, "scoutfund:test:"+newID().String()+":")
	release, ok, err := l.Acquire(ctx, "job", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = l.Acquire(ctx, "job", 5*time.Second)
	require.NoError(t, err)
	require.False(t, ok)
	release()
	release2, ok, err := l.Acquire(ctx, "job", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	release2()
}

// Package sweeper runs the periodic maintenance jobs: expiring stale invites
// and resuming cascades of soft-deleted profiles.
package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
	"github.com/and161185/scoutfund/internal/repository"
	"github.com/and161185/scoutfund/internal/service"
)

// Store is the storage the sweeper reads and writes.
type Store interface {
	ExpireInvites(ctx context.Context, now time.Time, limit int) (int, error)
	ListDeletedProfiles(ctx context.Context, after repository.DeletedCursor, limit int) ([]model.Profile, error)
}

// Resumer finishes interrupted cascades.
type Resumer interface {
	Resume(ctx context.Context, profileID uuid.UUID) (*service.CascadeReport, error)
}

// Config holds schedules in cron syntax ("@every 5m" works too).
type Config struct {
	InvitesSpec  string
	CascadesSpec string
	Batch        int
	LeaseTTL     time.Duration
}

// Sweeper schedules jobs on a cron and guards each run with a lease.
type Sweeper struct {
	cfg     Config
	store   Store
	cascade Resumer
	lease   Lease
	log     *zap.Logger
	now     func() time.Time
	cron    *cron.Cron

	mu     sync.Mutex
	cursor repository.DeletedCursor // where the next cascade batch starts
}

// New constructs a Sweeper. A nil lease means a LocalLease.
func New(cfg Config, store Store, cascade Resumer, lease Lease, log *zap.Logger) *Sweeper {
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 2 * time.Minute
	}
	if lease == nil {
		lease = NewLocalLease()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sweeper{
		cfg:     cfg,
		store:   store,
		cascade: cascade,
		lease:   lease,
		log:     log.Named("sweeper"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.cron = cron.New(cron.WithLogger(cronLogger{s.log.Sugar()}), cron.WithChain(cron.Recover(cronLogger{s.log.Sugar()})))
	return s
}

// Start registers the jobs and starts the scheduler. Empty specs disable a job.
func (s *Sweeper) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context) (int, error)
	}{
		{s.cfg.InvitesSpec, "expire-invites", s.ExpireInvites},
		{s.cfg.CascadesSpec, "resume-cascades", s.ResumeCascades},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, func() { s.tick(j.name, j.run) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.log.Info("started", zap.String("invites", s.cfg.InvitesSpec), zap.String("cascades", s.cfg.CascadesSpec))
	return nil
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// tick runs one job under the lease. Errors are logged, never fatal.
func (s *Sweeper) tick(name string, run func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LeaseTTL)
	defer cancel()
	release, ok, err := s.lease.Acquire(ctx, name, s.cfg.LeaseTTL)
	if err != nil {
		s.log.Warn("lease failed", zap.String("job", name), zap.Error(err))
		return
	}
	if !ok {
		s.log.Debug("lease held elsewhere", zap.String("job", name))
		return
	}
	defer release()
	start := time.Now()
	n, err := run(ctx)
	if err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Int("done", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("job done", zap.String("job", name), zap.Int("done", n), zap.Duration("dur", time.Since(start)))
	}
}

// ExpireInvites marks pending invites past expiry as expired, one batch at a time.
func (s *Sweeper) ExpireInvites(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := s.store.ExpireInvites(ctx, s.now(), s.cfg.Batch)
		total += n
		if err != nil || n < s.cfg.Batch {
			return total, err
		}
	}
}

// ResumeCascades finishes one batch of soft-deleted profiles, oldest deletion first.
// Each tick continues after the previous batch and wraps around at the end, so a
// profile whose cascade stays incomplete is retried on the next pass without
// holding back newer deletions.
func (s *Sweeper) ResumeCascades(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles, err := s.store.ListDeletedProfiles(ctx, s.cursor, s.cfg.Batch)
	if err == nil && len(profiles) == 0 && s.cursor != (repository.DeletedCursor{}) {
		s.cursor = repository.DeletedCursor{}
		profiles, err = s.store.ListDeletedProfiles(ctx, s.cursor, s.cfg.Batch)
	}
	if err != nil {
		return 0, err
	}
	if len(profiles) < s.cfg.Batch {
		s.cursor = repository.DeletedCursor{}
	} else {
		s.cursor = repository.CursorAfter(profiles[len(profiles)-1])
	}
	done := 0
	var failed []error
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		rep, err := s.cascade.Resume(ctx, p.ID)
		if err != nil {
			if errors.Is(err, errs.ErrCascadeIncomplete) {
				s.log.Warn("cascade still incomplete", zap.String("profile_id", p.ID.String()), zap.Error(err))
				continue
			}
			failed = append(failed, err)
			continue
		}
		done++
		s.log.Info("cascade resumed",
			zap.String("profile_id", p.ID.String()),
			zap.Int("campaigns", rep.Campaigns),
			zap.Int("orders", rep.Orders),
		)
	}
	return done, errors.Join(failed...)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...any) { l.s.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}

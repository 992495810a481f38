package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// CascadeService deletes a profile together with everything that hangs off it.
type CascadeService interface {
	// DeleteProfileCascade soft-deletes the profile and then removes its campaigns, orders,
	// shares and invites before purging the profile itself. Re-running it resumes.
	DeleteProfileCascade(ctx context.Context, owner, profileID uuid.UUID) (*CascadeReport, error)
	// Resume finishes the cascade of an already soft-deleted profile.
	Resume(ctx context.Context, profileID uuid.UUID) (*CascadeReport, error)
}

// CascadeConfig bounds the work done per step.
type CascadeConfig struct {
	PageSize     int           // rows deleted per page
	PageAttempts uint64        // attempts per page before giving up
	Parallelism  int           // campaigns purged concurrently
	BackoffBase  time.Duration // first retry delay
}

func (c CascadeConfig) withDefaults() CascadeConfig {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageAttempts == 0 {
		c.PageAttempts = 5
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 50 * time.Millisecond
	}
	return c
}

// CascadeReport counts what a single run removed.
type CascadeReport struct {
	ProfileID   uuid.UUID
	Campaigns   int
	Orders      int
	Shares      int
	Invites     int
	AlreadyGone bool // the profile did not exist when the run started
	Resumed     bool // the profile was already soft-deleted
}

// Cascade stages, in the order the walker drains them.
const (
	stageMark      = "mark"
	stageCampaigns = "campaigns"
	stageShares    = "shares"
	stageInvites   = "invites"
	stagePurge     = "purge"
	stageDone      = "done"
)

// step is the next unit of work derived from what still exists.
type step struct {
	stage     string
	campaigns []model.Campaign
}

type CascadeServiceImpl struct {
	d   Deps
	cfg CascadeConfig
}

// NewCascadeService constructs CascadeService.
func NewCascadeService(d Deps, cfg CascadeConfig) *CascadeServiceImpl {
	return &CascadeServiceImpl{d: d.withDefaults(), cfg: cfg.withDefaults()}
}

var _ CascadeService = (*CascadeServiceImpl)(nil)

func (s *CascadeServiceImpl) DeleteProfileCascade(ctx context.Context, owner, profileID uuid.UUID) (*CascadeReport, error) {
	if err := requireID("profile id", profileID); err != nil {
		return nil, err
	}
	rep := &CascadeReport{ProfileID: profileID}
	p, err := s.d.Store.GetProfile(ctx, profileID)
	if errors.Is(err, errs.ErrNotFound) {
		rep.AlreadyGone = true
		return rep, nil
	}
	if err != nil {
		return nil, err
	}
	if p.OwnerID != owner {
		return nil, errs.ErrNotOwner.With("profile_id", profileID.String())
	}
	if p.Deleted {
		rep.Resumed = true
	} else {
		err := s.page(ctx, profileID, stageMark, func(ctx context.Context) error {
			return s.d.Store.MarkProfileDeleted(ctx, profileID, owner, s.d.Now())
		})
		if errors.Is(err, errs.ErrConditionFailed) {
			return nil, errs.ErrOwnerChanged.With("profile_id", profileID.String(), "expected_owner", owner.String())
		}
		if errors.Is(err, errs.ErrNotFound) {
			rep.AlreadyGone = true
			return rep, nil
		}
		if err != nil {
			return nil, err
		}
		s.d.Log.Info("profile soft-deleted", zap.String("profile_id", profileID.String()))
	}
	return rep, s.walk(ctx, rep)
}

func (s *CascadeServiceImpl) Resume(ctx context.Context, profileID uuid.UUID) (*CascadeReport, error) {
	rep := &CascadeReport{ProfileID: profileID, Resumed: true}
	p, err := s.d.Store.GetProfile(ctx, profileID)
	if errors.Is(err, errs.ErrNotFound) {
		rep.AlreadyGone = true
		return rep, nil
	}
	if err != nil {
		return nil, err
	}
	if !p.Deleted {
		return nil, errs.ErrConditionFailed.With("profile_id", profileID.String(), "reason", "profile not deleted")
	}
	return rep, s.walk(ctx, rep)
}

// walk drains the plan until nothing is left. Every step is idempotent, so an
// interrupted walk can be started again from scratch.
func (s *CascadeServiceImpl) walk(ctx context.Context, rep *CascadeReport) (err error) {
	ctx, span := tracer.Start(ctx, "cascade.walk", trace.WithAttributes(
		attribute.String("profile_id", rep.ProfileID.String()),
		attribute.Bool("resumed", rep.Resumed),
	))
	defer func() { endSpan(span, err) }()
	log := s.d.Log.With(zap.String("profile_id", rep.ProfileID.String()))
	for {
		var st step
		err := s.page(ctx, rep.ProfileID, "plan", func(ctx context.Context) error {
			var err error
			st, err = s.plan(ctx, rep.ProfileID)
			return err
		})
		if err != nil {
			log.Warn("cascade interrupted", zap.String("stage", "plan"), zap.Error(err))
			return err
		}
		if st.stage == stageDone {
			log.Info("cascade complete",
				zap.Int("campaigns", rep.Campaigns),
				zap.Int("orders", rep.Orders),
				zap.Int("shares", rep.Shares),
				zap.Int("invites", rep.Invites),
				zap.Bool("resumed", rep.Resumed),
			)
			return nil
		}
		if err := s.apply(ctx, rep, st); err != nil {
			log.Warn("cascade interrupted", zap.String("stage", st.stage), zap.Error(err))
			return err
		}
	}
}

// plan inspects what still exists and picks the next step.
func (s *CascadeServiceImpl) plan(ctx context.Context, profileID uuid.UUID) (step, error) {
	camps, err := s.d.Store.ListCampaignsByProfile(ctx, profileID, s.cfg.PageSize)
	if err != nil {
		return step{}, err
	}
	if len(camps) > 0 {
		return step{stage: stageCampaigns, campaigns: camps}, nil
	}
	shares, err := s.d.Store.ListSharesByProfile(ctx, profileID)
	if err != nil {
		return step{}, err
	}
	if len(shares) > 0 {
		return step{stage: stageShares}, nil
	}
	invites, err := s.d.Store.ListInvitesByProfile(ctx, profileID)
	if err != nil {
		return step{}, err
	}
	if len(invites) > 0 {
		return step{stage: stageInvites}, nil
	}
	if _, err := s.d.Store.GetProfile(ctx, profileID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return step{stage: stageDone}, nil
		}
		return step{}, err
	}
	return step{stage: stagePurge}, nil
}

func (s *CascadeServiceImpl) apply(ctx context.Context, rep *CascadeReport, st step) error {
	id := rep.ProfileID
	limit := s.cfg.PageSize
	switch st.stage {
	case stageCampaigns:
		return s.purgeCampaigns(ctx, rep, st.campaigns)
	case stageShares:
		return s.page(ctx, id, st.stage, func(ctx context.Context) error {
			n, err := s.d.Store.DeleteSharesByProfile(ctx, id, limit)
			rep.Shares += n
			return err
		})
	case stageInvites:
		return s.page(ctx, id, st.stage, func(ctx context.Context) error {
			n, err := s.d.Store.DeleteInvitesByProfile(ctx, id, limit)
			rep.Invites += n
			return err
		})
	case stagePurge:
		return s.page(ctx, id, st.stage, func(ctx context.Context) error {
			return s.d.Store.PurgeProfile(ctx, id)
		})
	}
	return nil
}

// purgeCampaigns empties and removes one page of campaigns, a few at a time.
func (s *CascadeServiceImpl) purgeCampaigns(ctx context.Context, rep *CascadeReport, camps []model.Campaign) error {
	var orders, removed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, c := range camps {
		c := c
		g.Go(func() error {
			for {
				var n int
				err := s.page(gctx, rep.ProfileID, stageCampaigns, func(ctx context.Context) error {
					var err error
					n, err = s.d.Store.DeleteOrdersByCampaign(ctx, c.ID, s.cfg.PageSize)
					return err
				})
				if err != nil {
					return err
				}
				orders.Add(int64(n))
				if n < s.cfg.PageSize {
					break
				}
			}
			err := s.page(gctx, rep.ProfileID, stageCampaigns, func(ctx context.Context) error {
				return s.d.Store.DeleteCampaign(ctx, c.ID)
			})
			if errors.Is(err, errs.ErrConditionFailed) {
				// an order slipped in before the soft delete landed; the next plan picks the campaign up again
				return nil
			}
			if err == nil {
				removed.Add(1)
			}
			return err
		})
	}
	err := g.Wait()
	rep.Orders += int(orders.Load())
	rep.Campaigns += int(removed.Load())
	return err
}

// page runs one unit of cascade work, retrying transient failures. Once the
// attempts are spent the error is reported as CascadeIncomplete; the profile
// stays soft-deleted so the cascade can be resumed.
func (s *CascadeServiceImpl) page(ctx context.Context, profileID uuid.UUID, stage string, fn func(ctx context.Context) error) error {
	b := retry.NewExponential(s.cfg.BackoffBase)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithMaxRetries(s.cfg.PageAttempts-1, b)
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && errs.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && errs.IsTransient(err) {
		return errs.ErrCascadeIncomplete.With("profile_id", profileID.String(), "stage", stage).Wrap(err)
	}
	return err
}

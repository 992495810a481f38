package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
	"github.com/and161185/scoutfund/internal/report"
)

// ExportService produces read-only snapshots of a profile.
type ExportService interface {
	// ExportProfile stores a snapshot and returns its location.
	ExportProfile(ctx context.Context, actor, profileID uuid.UUID) (string, error)
}

type ExportServiceImpl struct {
	d     Deps
	exp   report.Exporter
	limit int // per listing
}

// NewExportService constructs ExportService.
func NewExportService(d Deps, exp report.Exporter) *ExportServiceImpl {
	return &ExportServiceImpl{d: d.withDefaults(), exp: exp, limit: MaxPageSize}
}

var _ ExportService = (*ExportServiceImpl)(nil)

// Snapshot collects the profile, its campaigns and their orders, each listing capped at
// MaxPageSize. Truncated is set when any listing had more rows than the cap.
func (s *ExportServiceImpl) Snapshot(ctx context.Context, actor, profileID uuid.UUID) (*model.ProfileSnapshot, error) {
	p, _, err := s.d.Authz.Require(ctx, actor, profileID, model.PermRead)
	if err != nil {
		return nil, err
	}
	// one extra row tells a full page apart from a cut one
	camps, err := s.d.Store.ListCampaignsByProfile(ctx, profileID, s.limit+1)
	if err != nil {
		return nil, err
	}
	snap := &model.ProfileSnapshot{Profile: *p, TakenAt: s.d.Now()}
	if len(camps) > s.limit {
		camps, snap.Truncated = camps[:s.limit], true
	}
	snap.Campaigns = camps
	for _, c := range camps {
		orders, err := s.d.Store.ListOrdersByCampaign(ctx, c.ID, s.limit+1)
		if err != nil {
			return nil, err
		}
		if len(orders) > s.limit {
			orders, snap.Truncated = orders[:s.limit], true
		}
		snap.Orders = append(snap.Orders, orders...)
	}
	return snap, nil
}

func (s *ExportServiceImpl) ExportProfile(ctx context.Context, actor, profileID uuid.UUID) (string, error) {
	if s.exp == nil {
		return "", errors.New("export: no exporter configured")
	}
	snap, err := s.Snapshot(ctx, actor, profileID)
	if err != nil {
		return "", err
	}
	loc, err := s.exp.Export(ctx, *snap)
	if err != nil {
		s.d.Log.Error("export failed", zap.String("profile_id", profileID.String()), zap.Error(err))
		return "", errs.ErrTransient.With("profile_id", profileID.String()).Wrap(err)
	}
	s.d.Log.Info("profile exported",
		zap.String("profile_id", profileID.String()),
		zap.Int("campaigns", len(snap.Campaigns)),
		zap.Int("orders", len(snap.Orders)),
		zap.Bool("truncated", snap.Truncated),
	)
	return loc, nil
}

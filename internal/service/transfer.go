package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// TransferService hands a profile over to another account.
type TransferService interface {
	// TransferOwnership makes newOwner the owner of profileID. Only the current owner may call it.
	TransferOwnership(ctx context.Context, current, profileID, newOwner uuid.UUID) (*model.Profile, error)
}

type TransferServiceImpl struct{ d Deps }

// NewTransferService constructs TransferService.
func NewTransferService(d Deps) *TransferServiceImpl { return &TransferServiceImpl{d: d.withDefaults()} }

var _ TransferService = (*TransferServiceImpl)(nil)

// TransferOwnership swaps the owner with a write guarded on the owner read here.
// A concurrent transfer or delete in between yields OwnerChanged and leaves the profile untouched.
func (s *TransferServiceImpl) TransferOwnership(ctx context.Context, current, profileID, newOwner uuid.UUID) (*model.Profile, error) {
	if err := requireID("new owner", newOwner); err != nil {
		return nil, err
	}
	if _, err := s.d.Authz.RequireOwner(ctx, current, profileID); err != nil {
		return nil, err
	}
	if newOwner == current {
		return nil, errs.ErrTargetIsCurrentOwner.With("profile_id", profileID.String())
	}
	if _, err := s.d.Store.GetAccount(ctx, newOwner); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrNotFound.With("entity", "account", "account_id", newOwner.String())
		}
		return nil, err
	}

	p, err := s.d.Store.TransferOwner(ctx, profileID, current, newOwner, s.d.Now())
	if errors.Is(err, errs.ErrConditionFailed) {
		return nil, errs.ErrOwnerChanged.With("profile_id", profileID.String(), "expected_owner", current.String())
	}
	if err != nil {
		return nil, err
	}
	s.d.Log.Info("profile ownership transferred",
		zap.String("profile_id", profileID.String()),
		zap.String("from", current.String()),
		zap.String("to", newOwner.String()),
		zap.Int64("ver", p.Ver),
	)
	return p, nil
}

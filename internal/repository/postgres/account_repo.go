package postgres

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// CreateAccount inserts a new account row, and its first profile when one is given.
func (r *AccountRepo) CreateAccount(ctx context.Context, a *model.Account, first *model.Profile) error {
	const q = `
INSERT INTO accounts (id, email, display_name, created_at)
VALUES ($1, $2, $3, $4)`
	if first == nil {
		return r.db.do(ctx, func(ctx context.Context) error {
			_, err := r.db.Pool.Exec(ctx, q, a.ID, strings.ToLower(a.Email), a.DisplayName, a.CreatedAt)
			if isUniqueViolation(err) {
				return errs.ErrAlreadyExists.With("entity", "account", "email", a.Email)
			}
			return err
		})
	}
	return r.db.do(ctx, func(ctx context.Context) error {
		return r.db.inTx(ctx, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, q, a.ID, strings.ToLower(a.Email), a.DisplayName, a.CreatedAt)
			if isUniqueViolation(err) {
				return errs.ErrAlreadyExists.With("entity", "account", "email", a.Email)
			}
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, insertProfile, first.ID, first.OwnerID, first.DisplayName, first.CreatedAt)
			if isUniqueViolation(err) {
				return errs.ErrAlreadyExists.With("entity", "profile", "profile_id", first.ID.String())
			}
			if err != nil {
				return err
			}
			first.Ver = 1
			first.UpdatedAt = first.CreatedAt
			return nil
		})
	})
}

// GetAccount selects an account by ID.
func (r *AccountRepo) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const q = `
SELECT id, email, display_name, created_at
FROM accounts WHERE id=$1`
	var a model.Account
	err := r.db.do(ctx, func(ctx context.Context) error {
		err := r.db.Pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.Email, &a.DisplayName, &a.CreatedAt)
		return notFound(err, "account", id.String())
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByEmail selects an account by its lower-cased email.
func (r *AccountRepo) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	const q = `
SELECT id, email, display_name, created_at
FROM accounts WHERE lower(email)=$1`
	email = strings.ToLower(strings.TrimSpace(email))
	var a model.Account
	err := r.db.do(ctx, func(ctx context.Context) error {
		err := r.db.Pool.QueryRow(ctx, q, email).Scan(&a.ID, &a.Email, &a.DisplayName, &a.CreatedAt)
		return notFound(err, "account", email)
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
)

func TestAccountRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	a := &model.Account{ID: newID(), Email: "Parent@Example.com", DisplayName: "Parent", CreatedAt: time.Now().UTC()}

	mock.ExpectExec(q(`INSERT INTO accounts (id, email, display_name, created_at)`)).
		WithArgs(a.ID, "parent@example.com", a.DisplayName, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.CreateAccount(ctx, a, nil))

	mock.ExpectExec(q(`INSERT INTO accounts (id, email, display_name, created_at)`)).
		WithArgs(a.ID, "parent@example.com", a.DisplayName, a.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.CreateAccount(ctx, a, nil), errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_CreateWithFirstProfile(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	a := &model.Account{ID: newID(), Email: "ann@example.org", DisplayName: "ann", CreatedAt: now}
	p := &model.Profile{ID: newID(), OwnerID: a.ID, DisplayName: "ann", CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec(q(`INSERT INTO accounts (id, email, display_name, created_at)`)).
		WithArgs(a.ID, a.Email, a.DisplayName, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q(`INSERT INTO profiles (id, owner_id, display_name, ver, created_at, updated_at)`)).
		WithArgs(p.ID, a.ID, p.DisplayName, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	require.NoError(t, r.CreateAccount(ctx, a, p))
	require.Equal(t, int64(1), p.Ver)

	// the profile insert failing takes the account with it
	mock.ExpectBegin()
	mock.ExpectExec(q(`INSERT INTO accounts`)).
		WithArgs(a.ID, a.Email, a.DisplayName, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q(`INSERT INTO profiles`)).
		WithArgs(p.ID, a.ID, p.DisplayName, now).
		WillReturnError(&pgconn.PgError{Code: "23514"})
	mock.ExpectRollback()
	require.Error(t, r.CreateAccount(ctx, a, p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepo_GetAccountByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewAccountRepo(db)
	ctx := context.Background()
	id := newID()
	now := time.Now().UTC()

	mock.ExpectQuery(q(`FROM accounts WHERE lower(email)=$1`)).
		WithArgs("b@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "created_at"}).
			AddRow(id, "b@example.com", "B", now))
	a, err := r.GetAccountByEmail(ctx, " B@example.com ")
	require.NoError(t, err)
	require.Equal(t, id, a.ID)

	mock.ExpectQuery(q(`FROM accounts WHERE lower(email)=$1`)).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetAccountByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

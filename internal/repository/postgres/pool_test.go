package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/scoutfund/internal/errs"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock, Retry: RetryPolicy{Attempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond}}, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestClassify(t *testing.T) {
	require.NoError(t, classify(nil))

	for _, code := range []string{"40001", "40P01", "55P03", "53300", "08006"} {
		err := classify(&pgconn.PgError{Code: code})
		require.True(t, errs.IsTransient(err), code)
		require.Equal(t, code, errs.Meta(err)["sqlstate"])
	}

	uv := &pgconn.PgError{Code: "23505"}
	require.Same(t, error(uv), classify(uv))
	require.ErrorIs(t, classify(errs.ErrConditionFailed), errs.ErrConditionFailed)
	require.ErrorIs(t, classify(context.Canceled), context.Canceled)
	require.False(t, errs.IsTransient(classify(errors.New("boom"))))
}

func TestDB_Do_RetriesTransient(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOrderRepo(db)
	ctx := context.Background()

	mock.ExpectExec(q(`DELETE FROM orders WHERE id=$1`)).WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectExec(q(`DELETE FROM orders WHERE id=$1`)).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, r.DeleteOrder(ctx, newID()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_Do_GivesUpAfterAttempts(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOrderRepo(db)

	for i := 0; i < 3; i++ {
		mock.ExpectExec(q(`DELETE FROM orders WHERE id=$1`)).WillReturnError(&pgconn.PgError{Code: "40P01"})
	}
	err := r.DeleteOrder(context.Background(), newID())
	require.ErrorIs(t, err, errs.ErrTransient)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_Do_NoRetryOnPermanent(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewOrderRepo(db)

	mock.ExpectExec(q(`DELETE FROM orders WHERE id=$1`)).WillReturnError(errors.New("syntax"))
	err := r.DeleteOrder(context.Background(), newID())
	require.EqualError(t, err, "syntax")
	require.NoError(t, mock.ExpectationsWereMet())
}

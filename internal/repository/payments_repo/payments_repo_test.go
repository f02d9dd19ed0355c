package payments_repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
)

var paymentCols = []string{
	"id", "buyer_id", "recipient_id", "resource_id", "amount", "external_session",
	"payment_intent", "status", "created_at", "confirmed_at", "updated_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestTransitionTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository()
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tr := domain.Transition{
		PaymentID:     "p1",
		From:          domain.PaymentStatusPending,
		To:            domain.PaymentStatusConfirmed,
		At:            at,
		PaymentIntent: "pi_1",
	}

	mock.ExpectExec("UPDATE payments").
		WithArgs("CONFIRMED", at, "pi_1", "", "p1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	applied, err := repo.TransitionTx(context.Background(), db, tr)
	require.NoError(t, err)
	assert.True(t, applied)

	mock.ExpectExec("UPDATE payments").
		WithArgs("CONFIRMED", at, "pi_1", "", "p1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	applied, err = repo.TransitionTx(context.Background(), db, tr)
	require.NoError(t, err)
	assert.False(t, applied)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionTxStorageFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository()

	mock.ExpectExec("UPDATE payments").WillReturnError(sql.ErrConnDone)
	_, err := repo.TransitionTx(context.Background(), db, domain.Transition{
		PaymentID: "p1",
		From:      domain.PaymentStatusPending,
		To:        domain.PaymentStatusFailed,
	})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestAttachSessionTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository()
	ctx := context.Background()

	mock.ExpectExec("UPDATE payments").
		WithArgs("cs_1", sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AttachSessionTx(ctx, db, "p1", "cs_1"))

	mock.ExpectExec("UPDATE payments").
		WithArgs("cs_2", sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.AttachSessionTx(ctx, db, "p1", "cs_2"), domain.ErrInvalidTransition)

	mock.ExpectExec("UPDATE payments").
		WithArgs("cs_1", sqlmock.AnyArg(), "p2").
		WillReturnError(&pq.Error{Code: "23505"})
	assert.ErrorIs(t, repo.AttachSessionTx(ctx, db, "p2", "cs_1"), ErrDuplicateSession)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachSessionTxSameRefSucceeds(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository()

	// A webhook matched through the client reference may have stored the
	// session before the checkout call returns.
	mock.ExpectExec(`WHERE id = \$3 AND \(external_session IS NULL OR external_session = \$1\)`).
		WithArgs("cs_1", sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AttachSessionTx(context.Background(), db, "p1", "cs_1"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBySessionRefTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository()
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM payments p WHERE p.external_session").
		WithArgs("cs_1").
		WillReturnRows(sqlmock.NewRows(paymentCols).
			AddRow("p1", "b1", "s1", "r1", int64(500), "cs_1", nil, "PENDING", created, nil, created))

	p, err := repo.GetBySessionRefTx(context.Background(), db, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
	assert.Equal(t, "cs_1", p.ExternalSession)
	assert.Empty(t, p.PaymentIntent)
	assert.Nil(t, p.ConfirmedAt)

	mock.ExpectQuery("FROM payments p WHERE p.external_session").
		WithArgs("cs_missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetBySessionRefTx(context.Background(), db, "cs_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasConfirmedTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("b1", "r1", "CONFIRMED").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	owned, err := repo.HasConfirmedTx(context.Background(), db, "b1", "r1")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestListConfirmedByRecipientTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository()
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	confirmed := created.Add(time.Minute)

	cols := append(append([]string{}, paymentCols...), "name", "id", "username")
	mock.ExpectQuery("ORDER BY p.confirmed_at DESC").
		WithArgs("s1", "CONFIRMED", 5, 5).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p1", "b1", "s1", "r1", int64(500), "cs_1", "pi_1", "CONFIRMED", created, confirmed, confirmed, "Pack", "b1", "buyer"))

	list, err := repo.ListConfirmedByRecipientTx(context.Background(), db, "s1", 5, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pack", list[0].ResourceName)
	assert.Equal(t, domain.BuyerIdentity{ID: "b1", Username: "buyer"}, list[0].Buyer)
	require.NotNil(t, list[0].ConfirmedAt)
	assert.True(t, confirmed.Equal(*list[0].ConfirmedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package sellers_repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
)

func TestGetByUserTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	linked := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM seller_accounts").WithArgs("seller").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "payout_account", "created_at"}).AddRow("seller", "acct_1", linked))
	mock.ExpectQuery("FROM seller_accounts").WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "payout_account", "created_at"}))

	repo := NewSellerRepository()
	account, err := repo.GetByUserTx(context.Background(), db, "seller")
	require.NoError(t, err)
	assert.Equal(t, "acct_1", account.PayoutAccount)
	assert.Equal(t, linked, account.CreatedAt)

	_, err = repo.GetByUserTx(context.Background(), db, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	linked := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("ON CONFLICT \\(user_id\\) DO UPDATE").WithArgs("seller", "acct_2", linked).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewSellerRepository().UpsertTx(context.Background(), db, &domain.SellerAccount{
		UserID:        "seller",
		PayoutAccount: "acct_2",
		CreatedAt:     linked,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

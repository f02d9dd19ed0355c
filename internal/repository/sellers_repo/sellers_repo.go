package sellers_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/domain"
)

type sellerRepository struct{}

func NewSellerRepository() *sellerRepository {
	return &sellerRepository{}
}

func (r *sellerRepository) GetByUserTx(ctx context.Context, querier domain.Querier, userID string) (*domain.SellerAccount, error) {
	query := `
		SELECT user_id, payout_account, created_at
		FROM seller_accounts
		WHERE user_id = $1
	`
	account := &domain.SellerAccount{}
	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&account.UserID,
		&account.PayoutAccount,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get seller account for user %s: %w", userID, err)
	}
	return account, nil
}

// UpsertTx links or relinks a payout account. The original link time is kept.
func (r *sellerRepository) UpsertTx(ctx context.Context, querier domain.Querier, account *domain.SellerAccount) error {
	query := `
		INSERT INTO seller_accounts (user_id, payout_account, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET payout_account = EXCLUDED.payout_account
	`
	_, err := querier.ExecContext(ctx, query, account.UserID, account.PayoutAccount, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert seller account for user %s: %w", account.UserID, err)
	}
	return nil
}

package domain

import "time"

// SellerAccount links a principal to an external payout account.
type SellerAccount struct {
	UserID        string
	PayoutAccount string
	CreatedAt     time.Time
}

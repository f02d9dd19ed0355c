package payments_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"marketplace/internal/domain"
)

var ErrDuplicateSession = errors.New("session reference already attached to another payment")

const paymentColumns = `p.id, p.buyer_id, p.recipient_id, p.resource_id, p.amount, p.external_session,
		p.payment_intent, p.status, p.created_at, p.confirmed_at, p.updated_at`

type paymentRepository struct{}

func NewPaymentRepository() *paymentRepository {
	return &paymentRepository{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner, extra ...any) (*domain.Payment, error) {
	p := &domain.Payment{}
	var (
		session     sql.NullString
		intent      sql.NullString
		confirmedAt sql.NullTime
	)
	dest := []any{
		&p.ID,
		&p.BuyerID,
		&p.RecipientID,
		&p.ResourceID,
		&p.Amount,
		&session,
		&intent,
		&p.Status,
		&p.CreatedAt,
		&confirmedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.ExternalSession = session.String
	p.PaymentIntent = intent.String
	if confirmedAt.Valid {
		t := confirmedAt.Time
		p.ConfirmedAt = &t
	}
	return p, nil
}

func (r *paymentRepository) CreateTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, buyer_id, recipient_id, resource_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := querier.ExecContext(ctx, query,
		payment.ID,
		payment.BuyerID,
		payment.RecipientID,
		payment.ResourceID,
		payment.Amount,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment %s: %w", payment.ID, err)
	}
	return nil
}

func (r *paymentRepository) getOne(ctx context.Context, querier domain.Querier, where string, arg any) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE ` + where
	payment, err := scanPayment(querier.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.Payment, error) {
	payment, err := r.getOne(ctx, querier, "p.id = $1", id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get payment by id %s: %w", id, err)
	}
	return payment, err
}

func (r *paymentRepository) GetBySessionRefTx(ctx context.Context, querier domain.Querier, ref string) (*domain.Payment, error) {
	payment, err := r.getOne(ctx, querier, "p.external_session = $1", ref)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get payment by session %s: %w", ref, err)
	}
	return payment, err
}

func (r *paymentRepository) GetByPaymentIntentTx(ctx context.Context, querier domain.Querier, intentID string) (*domain.Payment, error) {
	payment, err := r.getOne(ctx, querier, "p.payment_intent = $1", intentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get payment by intent %s: %w", intentID, err)
	}
	return payment, err
}

func (r *paymentRepository) HasConfirmedTx(ctx context.Context, querier domain.Querier, buyerID, resourceID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE buyer_id = $1 AND resource_id = $2 AND status = $3
		)
	`
	var exists bool
	if err := querier.QueryRowContext(ctx, query, buyerID, resourceID, domain.PaymentStatusConfirmed).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ownership of resource %s by %s: %w", resourceID, buyerID, err)
	}
	return exists, nil
}

// AttachSessionTx writes the session reference once. Re-attaching the same
// reference is a no-op success; a payment that already carries a different
// reference is left untouched and reported as ErrInvalidTransition.
func (r *paymentRepository) AttachSessionTx(ctx context.Context, querier domain.Querier, id, ref string) error {
	query := `
		UPDATE payments
		SET external_session = $1, updated_at = $2
		WHERE id = $3 AND (external_session IS NULL OR external_session = $1)
	`
	res, err := querier.ExecContext(ctx, query, ref, time.Now().UTC(), id)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSession
		}
		return fmt.Errorf("failed to attach session to payment %s: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for session attach: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("payment %s already has a session reference: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

// TransitionTx applies tr only while the stored status still equals tr.From.
// It reports false when another writer got there first.
func (r *paymentRepository) TransitionTx(ctx context.Context, querier domain.Querier, tr domain.Transition) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1,
			confirmed_at = CASE WHEN $1 = 'CONFIRMED' AND confirmed_at IS NULL THEN $2 ELSE confirmed_at END,
			payment_intent = COALESCE(NULLIF($3, ''), payment_intent),
			external_session = COALESCE(external_session, NULLIF($4, '')),
			updated_at = $2
		WHERE id = $5 AND status = $6
	`
	res, err := querier.ExecContext(ctx, query,
		string(tr.To),
		tr.At,
		tr.PaymentIntent,
		tr.SessionRef,
		tr.PaymentID,
		string(tr.From),
	)
	if err != nil {
		return false, fmt.Errorf("failed to move payment %s from %s to %s: %w", tr.PaymentID, tr.From, tr.To, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for payment transition: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *paymentRepository) listSummaries(ctx context.Context, querier domain.Querier, query string, args ...any) ([]domain.PaymentSummary, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []domain.PaymentSummary{}
	for rows.Next() {
		var s domain.PaymentSummary
		p, err := scanPayment(rows, &s.ResourceName, &s.Buyer.ID, &s.Buyer.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment summary: %w", err)
		}
		s.Payment = *p
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment summaries: %w", err)
	}
	return summaries, nil
}

const summarySelect = `SELECT ` + paymentColumns + `, res.name, u.id, u.username
		FROM payments p
		JOIN resources res ON res.id = p.resource_id
		JOIN users u ON u.id = p.buyer_id`

func (r *paymentRepository) ListConfirmedByRecipientTx(ctx context.Context, querier domain.Querier, recipientID string, limit, offset int) ([]domain.PaymentSummary, error) {
	query := summarySelect + `
		WHERE p.recipient_id = $1 AND p.status = $2
		ORDER BY p.confirmed_at DESC
		LIMIT $3 OFFSET $4
	`
	summaries, err := r.listSummaries(ctx, querier, query, recipientID, domain.PaymentStatusConfirmed, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed payments for %s: %w", recipientID, err)
	}
	return summaries, nil
}

func (r *paymentRepository) ReportByRecipientTx(ctx context.Context, querier domain.Querier, filter domain.PaymentReportFilter) ([]domain.PaymentSummary, error) {
	query := summarySelect + `
		WHERE p.recipient_id = $1 AND p.status = $2
			AND p.confirmed_at BETWEEN $3 AND $4
			AND ($5 = '' OR p.resource_id = $5)
		ORDER BY p.confirmed_at DESC
	`
	summaries, err := r.listSummaries(ctx, querier, query,
		filter.RecipientID,
		domain.PaymentStatusConfirmed,
		filter.Start,
		filter.End,
		filter.ResourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment report for %s: %w", filter.RecipientID, err)
	}
	return summaries, nil
}

func (r *paymentRepository) ListByBuyerTx(ctx context.Context, querier domain.Querier, buyerID string, limit, offset int) ([]domain.PaymentSummary, error) {
	query := summarySelect + `
		WHERE p.buyer_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`
	summaries, err := r.listSummaries(ctx, querier, query, buyerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments of buyer %s: %w", buyerID, err)
	}
	return summaries, nil
}

func (r *paymentRepository) ListStalePendingTx(ctx context.Context, querier domain.Querier, createdBefore time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments p
		WHERE p.status = $1 AND p.created_at < $2
		ORDER BY p.created_at ASC
		LIMIT $3
	`
	rows, err := querier.QueryContext(ctx, query, domain.PaymentStatusPending, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending payments: %w", err)
	}
	return payments, nil
}

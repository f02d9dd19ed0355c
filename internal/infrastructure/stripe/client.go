// Package stripe wraps the three processor calls the marketplace makes:
// hosted checkout sessions, connected-account balances and dashboard login
// links.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"

	"marketplace/internal/domain"
)

const metadataPaymentID = "payment_id"

type Client struct {
	api     *client.API
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient builds a client with its own backend so the base URL and secret
// never leak into the SDK's package-level state.
func NewClient(baseURL, secretKey string, timeout time.Duration, logger *zap.Logger) *Client {
	cfg := &stripeapi.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		LeveledLogger:     logger.Sugar(),
		MaxNetworkRetries: stripeapi.Int64(0),
	}
	if baseURL != "" {
		cfg.URL = stripeapi.String(strings.TrimRight(baseURL, "/"))
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, cfg)

	api := &client.API{}
	api.Init(secretKey, &stripeapi.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return &Client{api: api, timeout: timeout, logger: logger}
}

type SessionParams struct {
	PaymentID     string
	ResourceName  string
	Amount        int64
	Currency      string
	FeeAmount     int64
	PayoutAccount string
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession opens a hosted payment page. The payment id travels
// as client_reference_id and as metadata on both the session and its payment
// intent so any later webhook can be matched back to the ledger.
func (c *Client) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	intent := &stripeapi.CheckoutSessionPaymentIntentDataParams{
		Metadata: map[string]string{metadataPaymentID: p.PaymentID},
	}
	if p.PayoutAccount != "" {
		intent.TransferData = &stripeapi.CheckoutSessionPaymentIntentDataTransferDataParams{
			Destination: stripeapi.String(p.PayoutAccount),
		}
	}
	if p.FeeAmount > 0 {
		intent.ApplicationFeeAmount = stripeapi.Int64(p.FeeAmount)
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		ClientReferenceID: stripeapi.String(p.PaymentID),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{{
			Quantity: stripeapi.Int64(1),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(p.Currency),
				UnitAmount: stripeapi.Int64(p.Amount),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(p.ResourceName),
				},
			},
		}},
		PaymentIntentData: intent,
	}
	if p.SuccessURL != "" {
		params.SuccessURL = stripeapi.String(p.SuccessURL)
	}
	if p.CancelURL != "" {
		params.CancelURL = stripeapi.String(p.CancelURL)
	}
	params.AddMetadata(metadataPaymentID, p.PaymentID)
	params.Context = ctx

	start := time.Now()
	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session for payment %s: %w", p.PaymentID, c.upstream("checkout.session.create", err))
	}
	c.logger.Debug("Processor request completed",
		zap.String("call", "checkout.session.create"),
		zap.Duration("took", time.Since(start)),
	)
	if s.ID == "" || s.URL == "" {
		return nil, fmt.Errorf("create checkout session for payment %s: empty session: %w", p.PaymentID, domain.ErrUpstreamFailure)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// Balance returns the connected account's balance document untouched.
func (c *Client) Balance(ctx context.Context, payoutAccount string) (json.RawMessage, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripeapi.BalanceParams{}
	params.SetStripeAccount(payoutAccount)
	params.Context = ctx

	b, err := c.api.Balance.Get(params)
	if err != nil {
		return nil, fmt.Errorf("get balance for %s: %w", payoutAccount, c.upstream("balance.get", err))
	}
	if b.LastResponse == nil || len(b.LastResponse.RawJSON) == 0 {
		return nil, fmt.Errorf("get balance for %s: empty response: %w", payoutAccount, domain.ErrUpstreamFailure)
	}
	return json.RawMessage(b.LastResponse.RawJSON), nil
}

func (c *Client) LoginLink(ctx context.Context, payoutAccount string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	params := &stripeapi.LoginLinkParams{Account: stripeapi.String(payoutAccount)}
	params.Context = ctx

	link, err := c.api.LoginLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("create login link for %s: %w", payoutAccount, c.upstream("login_link.create", err))
	}
	return link.URL, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// upstream folds every SDK failure into ErrUpstreamFailure, keeping the
// processor's own message when it sent one.
func (c *Client) upstream(call string, err error) error {
	c.logger.Warn("Processor request failed", zap.String("call", call), zap.Error(err))
	var apiErr *stripeapi.Error
	if errors.As(err, &apiErr) && apiErr.Msg != "" {
		return fmt.Errorf("%w: status %d: %s", domain.ErrUpstreamFailure, apiErr.HTTPStatusCode, apiErr.Msg)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
}

package marketplace_http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"marketplace/internal/app/checkout"
	"marketplace/internal/app/webhooks"
	"marketplace/internal/auth"
	"marketplace/internal/domain"
	"marketplace/internal/handler/http/httpx"
	"marketplace/internal/webhook"
)

const maxWebhookBody = 1 << 20

type CheckoutService interface {
	Initiate(ctx context.Context, buyer *domain.Principal, resourceID string) (*checkout.Initiated, error)
	Status(ctx context.Context, caller *domain.Principal, paymentID string) (*domain.Payment, error)
	History(ctx context.Context, buyer *domain.Principal, page int) ([]domain.PaymentSummary, error)
}

type PayoutService interface {
	ListConfirmed(ctx context.Context, caller *domain.Principal, sellerID string, page int) ([]domain.PaymentSummary, error)
	Report(ctx context.Context, caller *domain.Principal, sellerID string, start, end time.Time, resourceID string) ([]domain.PaymentSummary, error)
	Balance(ctx context.Context, caller *domain.Principal, sellerID string) (json.RawMessage, error)
	IsSeller(ctx context.Context, caller *domain.Principal) (bool, error)
	DashboardLink(ctx context.Context, caller *domain.Principal) (string, error)
}

type ResourceService interface {
	GetResource(ctx context.Context, id string) (*domain.Resource, error)
	Update(ctx context.Context, res *domain.Resource, update domain.ResourceUpdate) (*domain.Resource, error)
	Delete(ctx context.Context, id string) error
}

type SignatureVerifier interface {
	Verify(header string, body []byte) error
}

type WebhookDispatcher interface {
	Dispatch(ctx context.Context, evt *webhook.Event) (webhooks.Result, error)
}

type Handler struct {
	checkout   CheckoutService
	payouts    PayoutService
	resources  ResourceService
	verifier   SignatureVerifier
	dispatcher WebhookDispatcher
	logger     *zap.Logger
}

func NewHandler(svcs Services, l *zap.Logger) *Handler {
	return &Handler{
		checkout:   svcs.Checkout,
		payouts:    svcs.Payouts,
		resources:  svcs.Resources,
		verifier:   svcs.Verifier,
		dispatcher: svcs.Webhooks,
		logger:     l,
	}
}

// fail writes err through the shared status table. Server-side failures
// are logged, client errors are not.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := httpx.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	httpx.WriteError(w, status, message)
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := httpx.ReadJSON(r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, validationMessage(err))
	}
	return nil
}

func principal(r *http.Request) (*domain.Principal, error) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}

func pageParam(r *http.Request) (int, error) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: page must be a positive integer", domain.ErrInvalidInput)
	}
	return page, nil
}

// StripeWebhookHandler verifies the raw body before anything decodes it.
// Only a bad signature or a ledger that could not be reached is reported
// back to the processor; every other outcome is acknowledged with 200.
func (h *Handler) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := h.verifier.Verify(r.Header.Get(webhook.SignatureHeader), body); err != nil {
		h.logger.Warn("Rejected webhook with invalid signature", zap.Error(err))
		httpx.WriteDomainError(w, err)
		return
	}

	evt, err := webhook.ParseEvent(body)
	if err != nil {
		h.logger.Warn("Acknowledging undecodable webhook", zap.Error(err))
		httpx.WriteJSON(w, http.StatusOK, WebhookAck{Received: true, Outcome: string(webhooks.OutcomeMalformed)})
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), evt)
	if err != nil {
		h.logger.Error("Webhook could not be applied, asking for redelivery",
			zap.String("event_id", evt.ID),
			zap.Bool("retryable", errors.Is(err, webhooks.ErrRetryable)),
			zap.Error(err),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, WebhookAck{Received: true, Outcome: string(result.Outcome)})
}

func (h *Handler) InitiateCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	buyer, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req InitiateCheckoutRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	initiated, err := h.checkout.Initiate(r.Context(), buyer, req.ResourceID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, initiated)
}

func (h *Handler) PaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.checkout.Status(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	buyer, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.checkout.History(r.Context(), buyer, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSummaryResponses(list))
}

func (h *Handler) PurchasesHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.payouts.ListConfirmed(r.Context(), caller, r.URL.Query().Get("seller"), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSummaryResponses(list))
}

func (h *Handler) PurchaseChartHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req PurchaseChartRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.payouts.Report(r.Context(), caller, r.URL.Query().Get("seller"),
		time.UnixMilli(req.Start).UTC(), time.UnixMilli(req.End).UTC(), req.Resource)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSummaryResponses(list))
}

func (h *Handler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	balance, err := h.payouts.Balance(r.Context(), caller, r.URL.Query().Get("seller"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(balance)
}

func (h *Handler) DashboardLinkHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	link, err := h.payouts.DashboardLink(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, LinkResponse{URL: link})
}

func (h *Handler) IsSellerHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok, err := h.payouts.IsSeller(r.Context(), caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, SellerResponse{Seller: ok})
}

func (h *Handler) GetResourceHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.resources.GetResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResourceResponse(res))
}

// UpdateResourceHandler runs behind RequireResourceRole, which has already
// loaded the resource into the request context.
func (h *Handler) UpdateResourceHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := auth.ResourceFrom(r.Context())
	if !ok {
		h.fail(w, r, domain.ErrNotFound)
		return
	}
	var req UpdateResourceRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.resources.Update(r.Context(), res, req.toUpdate())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResourceResponse(updated))
}

func (h *Handler) DeleteResourceHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

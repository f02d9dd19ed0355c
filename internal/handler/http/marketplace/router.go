package marketplace_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"marketplace/internal/auth"
	"marketplace/internal/domain"
)

type Services struct {
	Checkout  CheckoutService
	Payouts   PayoutService
	Resources ResourceService
	Verifier  SignatureVerifier
	Webhooks  WebhookDispatcher
}

func NewRouter(svcs Services, guard *auth.Guard, allowedOrigins []string, l *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	RegisterRoutes(r, svcs, guard, l)
	return r
}

func RegisterRoutes(r chi.Router, svcs Services, guard *auth.Guard, l *zap.Logger) {
	handler := NewHandler(svcs, l.With(zap.String("component", "MarketplaceHTTPHandler")))

	r.Post("/webhooks/stripe", handler.StripeWebhookHandler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Marketplace service is healthy!"))
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Use(guard.Authenticate)
		r.Post("/", handler.InitiateCheckoutHandler)
		r.Get("/payments/{id}", handler.PaymentStatusHandler)
		r.Get("/history/{page}", handler.HistoryHandler)
		r.Get("/purchases/{page}", handler.PurchasesHandler)
		r.Post("/purchase-chart", handler.PurchaseChartHandler)
		r.Get("/balance", handler.BalanceHandler)
		r.Get("/link", handler.DashboardLinkHandler)
		r.Get("/seller", handler.IsSellerHandler)
	})

	r.Route("/resources/{id}", func(r chi.Router) {
		r.Get("/", handler.GetResourceHandler)
		r.With(guard.Authenticate, guard.RequireResourceRole("id", domain.RoleAdmin)).Patch("/", handler.UpdateResourceHandler)
		r.With(guard.Authenticate, guard.RequireRole(domain.RoleModerator)).Delete("/", handler.DeleteResourceHandler)
	})
}

package handler

import (
	"net/http"
	"time"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/infra/observability"
	"github.com/finance-tips/finance-tips-go/internal/port"
	"github.com/finance-tips/finance-tips-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services groups the service layer for router wiring.
type Services struct {
	Auth       *service.AuthService
	Profile    *service.ProfileService
	Receipt    *service.ReceiptService
	Calculator *service.CalculatorService
	Content    *service.ContentService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, store port.Store, metrics *observability.Metrics, corsOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Authentication
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", registerHandler(svcs.Auth, logger))
			r.Post("/login", loginHandler(svcs.Auth, logger))
			r.Post("/refresh", refreshHandler(svcs.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svcs.Auth))
				r.Put("/password", changePasswordHandler(svcs.Auth, logger))
			})
		})

		// =============================================
		// Profile (protected)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth))
			r.Get("/profile", getProfileHandler(svcs.Profile, logger))
			r.Put("/profile", updateProfileHandler(svcs.Profile, logger))
			r.Get("/me/stats", accountStatsHandler(svcs.Profile, logger))
			r.Delete("/account", deactivateAccountHandler(svcs.Auth, logger))
		})

		// =============================================
		// Receipts (protected)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth))
			r.Post("/receipts", issueReceiptHandler(svcs.Receipt, logger))
			r.Get("/receipts", listReceiptsHandler(svcs.Receipt, logger))
			r.Get("/receipts/{receiptID}", getReceiptHandler(svcs.Receipt, logger))
			r.Post("/receipts/{receiptID}/correction", correctReceiptHandler(svcs.Receipt, logger))
		})

		// =============================================
		// Calculators (anonymous allowed, history when authenticated)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(OptionalJWTAuthMiddleware(svcs.Auth))
			r.Get("/calculators/info", calculatorInfoHandler())
			r.Post("/calculators/savings-plan", savingsPlanHandler(svcs.Calculator, logger))
			r.Post("/calculators/loan-duration", loanDurationHandler(svcs.Calculator, logger))
			r.Post("/calculators/budget-simulation", budgetSimulationHandler(svcs.Calculator, logger))
			r.Post("/calculators/zakat", zakatHandler(svcs.Calculator, logger))
		})
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth))
			r.Get("/calculations", calculationHistoryHandler(svcs.Calculator, logger))
		})

		// =============================================
		// Tips & newsletter (public)
		// =============================================
		r.Get("/tips", listTipsHandler(svcs.Content, logger))
		r.Get("/tips/{slug}", getTipHandler(svcs.Content, logger))
		r.Post("/newsletter", subscribeNewsletterHandler(svcs.Content, logger))
		r.Delete("/newsletter/{email}", unsubscribeNewsletterHandler(svcs.Content, logger))

		// =============================================
		// Usage metrics
		// =============================================
		r.Get("/metrics/usage", usageMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Probes & metrics
// ============================================================

func healthzHandler(store port.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "finance-tips-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		start := time.Now()
		_, err := store.ListTips(r.Context(), "", 1)
		latency := time.Since(start).Milliseconds()
		status := "healthy"
		if err != nil {
			status = "degraded"
			logger.Warn("health probe against store failed", zap.Error(err))
		}
		services = append(services, domain.ServiceHealth{
			Name: "store", Status: status, LatencyMs: latency, LastChecked: now,
		})

		overall := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func usageMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetUsageSnapshot())
	}
}

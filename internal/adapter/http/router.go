package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/fundledger/internal/adapter/http/handler"
	"github.com/iho/fundledger/internal/adapter/http/middleware"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/auth"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
	"github.com/iho/fundledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	CapitalCallHandler  *handler.CapitalCallHandler
	DistributionHandler *handler.DistributionHandler
	ApprovalHandler     *handler.ApprovalHandler
	FundHandler         *handler.FundHandler
	AuthHandler         *handler.AuthHandler
	HealthHandler       *handler.HealthHandler
	JWTManager          *auth.JWTManager
	IdempotencyStore    usecase.IdempotencyStore
	RateLimiter         *middleware.RateLimiter
	Metrics             *metrics.Metrics
	Logger              *zerolog.Logger
	IdempotencyTTL      time.Duration
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(*cfg.Logger).Wrap)
	} else {
		r.Use(chimiddleware.Logger)
	}
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthHandler != nil {
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		r.Group(func(r chi.Router) {
			if cfg.JWTManager != nil {
				r.Use(middleware.AuthMiddleware(cfg.JWTManager, cfg.Metrics))
			}

			// Idempotency middleware for mutating requests
			if cfg.IdempotencyStore != nil {
				idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
				r.Use(idempotencyMiddleware.Wrap)
			}

			if cfg.AuthHandler != nil {
				r.Get("/auth/me", cfg.AuthHandler.GetCurrentUser)
			}

			// Capital calls
			r.Route("/capital-calls", func(r chi.Router) {
				r.Post("/", cfg.CapitalCallHandler.Create)
				r.Get("/", cfg.CapitalCallHandler.List)
				r.Post("/preview-fees", cfg.CapitalCallHandler.PreviewFees)
				r.Get("/{id}", cfg.CapitalCallHandler.Get)
				r.Get("/{id}/allocations", cfg.CapitalCallHandler.ListAllocations)
				r.Post("/{id}/allocations/{allocationID}/payments", cfg.CapitalCallHandler.RecordPayment)

				mountApprovalRoutes(r, cfg.ApprovalHandler, domain.EntityCapitalCall)
			})

			// Distributions
			r.Route("/distributions", func(r chi.Router) {
				r.Post("/", cfg.DistributionHandler.Create)
				r.Get("/", cfg.DistributionHandler.List)
				r.Get("/{id}", cfg.DistributionHandler.Get)
				r.Get("/{id}/allocations", cfg.DistributionHandler.ListAllocations)
				r.Post("/{id}/waterfall", cfg.DistributionHandler.ApplyWaterfall)
				r.Get("/{id}/waterfall/preview", cfg.DistributionHandler.PreviewWaterfall)

				mountApprovalRoutes(r, cfg.ApprovalHandler, domain.EntityDistribution)
			})

			// Funds
			r.Route("/funds/{id}", func(r chi.Router) {
				r.Get("/", cfg.FundHandler.Get)
				r.Get("/ownership", cfg.FundHandler.ListOwnership)
				r.Put("/investors/{investorID}/commitment", cfg.FundHandler.UpdateCommitment)
				r.Get("/performance", cfg.FundHandler.Performance)
			})

			// Cross-entity approval history
			r.Get("/history", cfg.ApprovalHandler.ListHistory)
		})
	})

	return r
}

// mountApprovalRoutes attaches the shared approval workflow routes for
// one entity type.
func mountApprovalRoutes(r chi.Router, h *handler.ApprovalHandler, entityType domain.EntityType) {
	r.Post("/{id}/submit", h.Submit(entityType))
	r.Post("/{id}/approve", h.Approve(entityType))
	r.Post("/{id}/cfo-approve", h.CFOApprove(entityType))
	r.Post("/{id}/reject", h.Reject(entityType))
	r.Post("/{id}/request-changes", h.RequestChanges(entityType))
	r.Get("/{id}/history", h.History(entityType))
	r.Get("/{id}/history/verify", h.Verify(entityType))
}

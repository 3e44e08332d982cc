// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/petverse/go-pets-backend/internal/battle"
	"github.com/petverse/go-pets-backend/internal/breeding"
	"github.com/petverse/go-pets-backend/internal/config"
	"github.com/petverse/go-pets-backend/internal/http/handlers"
	"github.com/petverse/go-pets-backend/internal/http/middleware"
	"github.com/petverse/go-pets-backend/internal/minting"
	"github.com/petverse/go-pets-backend/internal/oracle"
	"github.com/petverse/go-pets-backend/internal/repo"
)

// HeaderProviderKey authenticates the randomness provider's fulfill calls.
const HeaderProviderKey = "X-Provider-Key"

// HeaderAdminKey authenticates operator calls on the /admin surface.
const HeaderAdminKey = "X-API-Key"

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It constructs the oracle, breeding, battle, and minting services
// over the shared DB handle, registers the consumers on the oracle allow-list,
// configures observability (tracing, metrics), idempotency and rate limiting,
// CORS and security headers, health and metrics endpoints, and then mounts the
// versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter and gzip compression
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			HeaderAdminKey,
			HeaderProviderKey,
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← oracle ← db. The coordinator and the
	// battle and minting services are both the API surface and the oracle
	// consumers behind their requester names.
	osvc := oracle.NewService(db, oracle.DevProvider{})

	breedSvc := breeding.NewCoordinator(db, osvc)
	breedSvc.BaseMutationRate = cfg.Game.BaseMutationRate
	breedSvc.CancelEnabled = cfg.Game.CancelEnabled

	battleSvc := battle.NewService(db, osvc)
	mintSvc := minting.NewService(db, osvc)

	osvc.RegisterRequester(breedSvc.Requester, breedSvc)
	osvc.RegisterRequester(battleSvc.Requester, battleSvc)
	osvc.RegisterRequester(mintSvc.Requester, mintSvc)

	h := handlers.New(db, breedSvc, battleSvc, mintSvc, osvc)
	h.IdempotencyTTL = cfg.IdempotencyTTL

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Pets
		api.GET("/pets", h.ListPets)
		api.GET("/pets/:id", h.GetPet)
		api.GET("/pets/:id/profile", h.GetPetProfile)
		api.GET("/pets/:id/compatibility/:other_id", h.GetCompatibility)

		// Wallet
		api.GET("/wallet", h.GetWallet)

		// Breeding
		api.POST("/breeding", h.InitiateBreeding)
		api.GET("/breeding", h.ListBreedings)
		api.GET("/breeding/:id", h.GetBreeding)
		api.POST("/breeding/:id/complete", h.CompleteBreeding)
		api.POST("/breeding/:id/reprocess", h.ReprocessBreeding)
		api.POST("/breeding/:id/cancel", h.CancelBreeding)

		// Battles
		api.POST("/battles", h.Challenge)
		api.GET("/battles/:id", h.GetBattle)
		api.POST("/battles/:id/reprocess", h.ReprocessBattle)

		// Mystery boxes
		api.POST("/boxes", h.PurchaseBox)
		api.GET("/boxes/:id", h.GetBox)
		api.POST("/boxes/:id/reprocess", h.ReprocessBox)

		// Oracle provider surface
		api.GET("/oracle/requests/:id", h.GetOracleRequest)
		api.POST("/oracle/requests/:id/fulfill",
			requireKey(HeaderProviderKey, cfg.Oracle.ProviderKey), h.FulfillFromProvider)

		// Operator surface
		admin := api.Group("/admin", requireKey(HeaderAdminKey, cfg.Oracle.AdminKey))
		{
			admin.POST("/oracle/requests/:id/fulfill", h.ManualFulfill)
			admin.GET("/oracle/word-counts", h.GetWordCounts)
			admin.PUT("/oracle/word-counts", h.SetWordCount)
			admin.GET("/combinations", h.ListCombinations)
			admin.PUT("/combinations", h.UpsertCombination)
			admin.POST("/wallet/credit", h.CreditWallet)
			admin.GET("/stats", h.GetStats)
		}
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// requireKey guards a route with a shared-secret header. An unset secret
// disables the surface entirely rather than leaving it open.
func requireKey(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			handlers.Fail(c, http.StatusForbidden, handlers.ErrCodeForbidden, "endpoint disabled")
			return
		}
		got := c.GetHeader(header)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			handlers.Fail(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized, "invalid or missing key")
			return
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

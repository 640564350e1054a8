// Package httpapi wires the HTTP transport (Gin) to the feed services,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// idempotent replays, rate limiting, compression, CORS and security headers.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-feed-sync/docs" // registers the OpenAPI document

	"github.com/tbourn/go-feed-sync/internal/cache"
	"github.com/tbourn/go-feed-sync/internal/config"
	"github.com/tbourn/go-feed-sync/internal/http/handlers"
	"github.com/tbourn/go-feed-sync/internal/http/middleware"
	"github.com/tbourn/go-feed-sync/internal/search"
	"github.com/tbourn/go-feed-sync/internal/services"
)

// maxBodyBytes caps request bodies; the largest payload is a comment.
const maxBodyBytes = 64 << 10

// Deps are the long-lived components the routes are bound to.
type Deps struct {
	Cache     *cache.Cache
	Sync      *services.SyncService
	Mutations *services.MutationService
	Sessions  *services.SessionService
	// Replays records Idempotency-Key responses; nil keeps them in memory.
	Replays middleware.ReplayStore
	// StreamsDone, when closed, ends every open /events stream.
	StreamsDone <-chan struct{}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the feed API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Compression (outside the replay recorder, so replays are recorded
//     uncompressed and compressed on the way out)
//  8. CORS and security headers (replayed responses carry them too)
//  9. Idempotency replay (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per IP, bypass on replay)
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath
	eventsPath := joinPath(apiBase, "/events")

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LoggerOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The events stream is a hijacked connection; compressing it would break
	// the upgrade.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{eventsPath, "/metrics"})))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		NoStore:       true,
		NoStorePrefix: apiBase,
		EnablePolicy:  true,
	}))

	replays := deps.Replays
	if replays == nil {
		replays = middleware.NewMemoryReplayStore(cfg.IdempotencyTTL, 0)
	}
	r.Use(middleware.Idempotency(middleware.IdempotencyOptions{
		MaxLen: 200,
		Store:  replays,
	}))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/readiness
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "hydrated": deps.Sync.Hydrated()})
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	idx := search.NewLive(deps.Cache,
		search.WithStopwords(search.DefaultStopwords),
		search.WithMinScore(cfg.SearchMinScore),
	)
	h := handlers.New(deps.Cache, deps.Sync, deps.Mutations, deps.Sessions, idx).
		WithEventOptions(handlers.EventOptions{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Done:           deps.StreamsDone,
		})

	api := groupWithPrefix(r, apiBase)
	{
		api.GET("/state", h.GetState)
		api.GET("/events", h.Events)

		// Feed
		api.GET("/posts", h.ListPosts)
		api.POST("/posts/refresh", h.RefreshPosts)
		api.GET("/posts/:id", h.GetPost)
		api.POST("/posts/:id/select", h.SelectPost)
		api.GET("/selected", h.GetSelected)
		api.DELETE("/selected", h.ClearSelected)

		// Comments
		api.GET("/posts/:id/comments", h.ListComments)
		api.POST("/posts/:id/comments", h.AddComment)
		api.POST("/posts/:id/comments/refresh", h.RefreshComments)

		// Favourites
		api.GET("/favourites", h.ListFavourites)
		api.POST("/favourites/:id/toggle", h.ToggleFavourite)

		// Session
		api.GET("/session", h.GetSession)
		api.POST("/session", h.Login)
		api.DELETE("/session", h.Logout)
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted without credentials; otherwise allowed origins are echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Retry-After", middleware.HeaderIdempotentReplayed},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// Force ACAO: * even for requests without an Origin header.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body size using http.MaxBytesReader. Requests
// exceeding the cap fail when the handler reads the body.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
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

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}

// Package httpapi wires the status surface (Gin) to the reservation
// services: the HTML answer page, the JSON reservation view, and the answer
// callback, plus health, metrics and optional Swagger UI.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: request-scoped logger, access log with scrubbing
//  4. Recovery: capture panics after the logger is attached
//  5. Body size limiter
//  6. Metrics
//  7. gzip (except /metrics)
//  8. CORS and security headers
//
// Route-level: the callback runs token check, then idempotency, then rate
// limiting, so replays never consume tokens.
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

	"github.com/tbourn/go-inline-answer-bot/docs"
	"github.com/tbourn/go-inline-answer-bot/internal/config"
	"github.com/tbourn/go-inline-answer-bot/internal/http/handlers"
	"github.com/tbourn/go-inline-answer-bot/internal/http/middleware"
)

const maxBodyBytes = 1 << 20

// Deps are the services behind the status surface.
type Deps struct {
	Reader      handlers.ReservationReader
	Completer   handlers.Completer
	Idempotency middleware.IdempotencyStore // nil disables callback replay detection
}

// RegisterRoutes attaches middleware and endpoints to r:
//
//	GET  /health
//	GET  /metrics
//	GET  /swagger/*any                 (when SwaggerEnabled)
//	GET  /answer/:id                   HTML status page
//	GET  {APIBasePath}/reservation/:id JSON view
//	POST {APIBasePath}/ai-callback     external answer
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	r.SetHTMLTemplate(handlers.Templates())

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	useCORS(r, cfg.CORS.AllowedOrigins)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Reader, deps.Completer)
	limit := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP()).Handler()

	r.GET("/answer/:id", limit, middleware.ContentSecurityPolicy(middleware.StatusPagePolicy), h.AnswerPage)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/reservation/:id", limit, h.GetReservation)
		api.POST("/ai-callback",
			middleware.RequireToken(cfg.CallbackToken),
			middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, deps.Idempotency),
			limit,
			h.AICallback,
		)
	}
}

// useCORS allows every origin when none are configured, otherwise only the
// listed ones.
func useCORS(r *gin.Engine, origins []string) {
	base := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderIdempotencyKey, middleware.HeaderCallbackToken},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		// Force ACAO: * even without an Origin header, so plain clients see it too.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
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
	base.AllowOrigins = origins
	r.Use(cors.New(base))
}

// limitBody caps request bodies at maxBytes; larger reads fail downstream.
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

package http

import (
	"time"

	"mindcascade/internal/http/handlers"
	"mindcascade/internal/http/middleware"
	"mindcascade/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps is everything the routes need.
type Deps struct {
	Handler        *handlers.Handler
	Health         *handlers.HealthHandler
	Tokens         *service.TokenIssuer
	APIRateLimit   int
	APIRateWindow  time.Duration
	WriteRateLimit int
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := d.Handler

	apiRateLimit := d.APIRateLimit
	if apiRateLimit <= 0 {
		apiRateLimit = 120
	}
	apiRateWindow := d.APIRateWindow
	if apiRateWindow <= 0 {
		apiRateWindow = time.Minute
	}
	writeRateLimit := d.WriteRateLimit
	if writeRateLimit <= 0 {
		writeRateLimit = 60
	}

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(
		middleware.RedisRateLimit(apiRateLimit, apiRateWindow),
		middleware.SimpleRateLimit(apiRateLimit, apiRateWindow),
	)

	v1.GET("/games", h.Games)
	v1.POST("/session", h.OpenSession)

	auth := v1.Group("")
	auth.Use(middleware.JWT(d.Tokens))
	{
		auth.POST("/launch", h.Launch)
		auth.GET("/stats", h.Stats)
		auth.POST("/onboarding", h.CompleteOnboarding)
		auth.POST("/reset", h.ResetProgress)
	}

	// score writes are limited per session as well as per IP
	writes := auth.Group("")
	writes.Use(middleware.SessionRateLimit(writeRateLimit, apiRateWindow))
	{
		writes.POST("/scores", h.RecordScore)
		writes.POST("/levels", h.RecordLevel)
		writes.POST("/rewards", h.GrantReward)
	}

	r.GET("/ws", h.WS(d.Tokens))
}

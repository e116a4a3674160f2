package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindcascade/internal/cache"
	"mindcascade/internal/config"
	"mindcascade/internal/db"
	"mindcascade/internal/gate"
	httpServer "mindcascade/internal/http"
	"mindcascade/internal/http/handlers"
	"mindcascade/internal/http/middleware"
	"mindcascade/internal/logger"
	"mindcascade/internal/repository"
	"mindcascade/internal/service"
	"mindcascade/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	deps := map[string]handlers.Pinger{}
	hub := ws.NewHub()

	sessCfg := service.SessionServiceConfig{
		ProbeURL:  cfg.ProbeURL,
		Transport: gate.NewHTTPTransport(cfg.ProbeTimeout),
		Presence:  hub,
		IdleTTL:   cfg.SessionTTL,
	}

	dbPool := db.Connect(cfg.DatabaseURL)
	if dbPool != nil {
		defer dbPool.Close()
		sessCfg.Store = repository.NewProgressRepository(dbPool)
		deps["database"] = handlers.PingFunc(dbPool.Ping)
	}

	rdb := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
		deps["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	middleware.InitRedisRateLimiter(rdb)
	sessCfg.Decisions = repository.NewDecisionCache(rdb, cfg.SessionTTL)

	sessions := service.NewSessionService(sessCfg)
	sessions.StartCleanup(ctx)

	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)

	h := handlers.NewHandler(sessions, tokens, hub)
	h.AllowedOrigin = cfg.AllowedOrigin

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// CORS for the game frontend
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler:        h,
		Health:         handlers.NewHealthHandler(version, deps),
		Tokens:         tokens,
		APIRateLimit:   cfg.APIRateLimit,
		APIRateWindow:  cfg.APIRateWindow,
		WriteRateLimit: cfg.WriteRateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()
	hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

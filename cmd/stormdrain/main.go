package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/novarobotics/stormdrain/internal/api"
	"github.com/novarobotics/stormdrain/internal/cache"
	"github.com/novarobotics/stormdrain/internal/chat"
	"github.com/novarobotics/stormdrain/internal/config"
	"github.com/novarobotics/stormdrain/internal/drainage"
	internalgrpc "github.com/novarobotics/stormdrain/internal/grpc"
	"github.com/novarobotics/stormdrain/internal/ingestion"
	"github.com/novarobotics/stormdrain/internal/logging"
	"github.com/novarobotics/stormdrain/internal/repository"
	"github.com/novarobotics/stormdrain/internal/stream"
	"github.com/novarobotics/stormdrain/internal/vworld"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newCache(ctx, cfg.Cache)
	defer store.Close()

	drains := drainage.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	if !drains.Configured() {
		slog.Warn("BACKEND_API_URL not set, serving snapshot only")
	}

	var boundaries api.BoundarySource
	if cfg.VWorld.APIKey != "" {
		vw := vworld.NewClient(cfg.VWorld.URL, cfg.VWorld.APIKey, cfg.VWorld.Timeout)
		boundaries = vworld.NewService(vw, store, cfg.VWorld.CacheTTL, cfg.VWorld.MaxRingPoints)
	} else {
		slog.Warn("VWORLD_API_KEY not set, district boundaries disabled")
	}

	llm := chat.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, chat.Options{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		Timeout:     cfg.LLM.Timeout,
	})

	// Alerts fan out to SSE subscribers
	broadcaster := stream.NewBroadcaster()

	// gRPC health reflects the snapshot sync
	grpcServer := internalgrpc.NewServer()
	go func() {
		grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
		if err := grpcServer.Start(grpcAddr); err != nil {
			logging.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Start ingestion manager
	mgr := ingestion.NewManager(cfg, drains, db, broadcaster)
	mgr.OnSync(grpcServer.SyncObserver)
	mgr.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", api.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", api.RequestIDHeader, api.DataSourceHeader},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RequestID())
	router.Use(api.AccessLog())
	router.Use(api.RateLimitMiddleware(cfg.RateLimit.RPS))

	handler := api.NewHandler(api.Services{
		Repo:          db,
		Drains:        drains,
		Boundaries:    boundaries,
		Chat:          llm,
		Alerts:        broadcaster,
		Sync:          mgr,
		DefaultDomain: cfg.VWorld.Domain,
		AllowedHosts:  cfg.VWorld.AllowedHosts,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	mgr.Stop()
	broadcaster.Close() // Close all streams gracefully
	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}

// newCache prefers Redis and falls back to an in-process cache when Redis is
// unset or unreachable.
func newCache(ctx context.Context, cfg config.CacheConfig) cache.Cache {
	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		r, err := cache.NewRedis(pingCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			slog.Info("using redis cache", "addr", cfg.RedisAddr)
			return r
		}
		slog.Warn("redis unavailable, using memory cache", "addr", cfg.RedisAddr, "error", err)
	}
	return cache.NewMemory(cache.DefaultMemoryCapacity)
}

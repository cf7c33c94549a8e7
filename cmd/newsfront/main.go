package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nitesh/newsfront/internal/api"
	"github.com/nitesh/newsfront/internal/backend"
	"github.com/nitesh/newsfront/internal/cache"
	"github.com/nitesh/newsfront/internal/config"
	"github.com/nitesh/newsfront/internal/service"
	"github.com/nitesh/newsfront/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid display time zone")
	}

	cacheOpts := cache.Options{Logger: &logger, RevalidateTimeout: cfg.BackendTimeout}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed, shared cache tier may be unavailable")
		}
		cancel()
		cacheOpts.Shared = cache.NewRedisStore(rdb, "")
	}

	ledger, closeLedger := openLedger(ctx, cfg, &logger)
	defer closeLedger()

	client := backend.NewClient(backend.Config{
		BaseURL:       cfg.BackendURL,
		PublicBaseURL: cfg.PublicBackendURL,
		Timeout:       cfg.BackendTimeout,
	}, nil, &logger)

	svc := service.NewService(client, cache.New(cacheOpts), ledger, service.OptionsFromConfig(cfg), &logger)

	handler, err := api.NewHandler(svc, api.Options{
		Location:      loc,
		AdminToken:    cfg.AdminToken,
		RegenerateRPM: cfg.RegenerateRPM,
	}, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build handler")
	}

	if cfg.AppEnv != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(&logger))
	api.RegisterRoutes(router, handler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("backend", cfg.BackendURL).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// openLedger returns the Postgres ledger when POSTGRES_DSN is set and the
// in-memory one otherwise.
func openLedger(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (service.Ledger, func()) {
	if cfg.PostgresDSN == "" {
		logger.Info().Msg("POSTGRES_DSN not set, keeping regeneration ledger in memory")
		return store.NewMemoryStore(0), func() {}
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db open")
	}
	// simple ping + wait (db might be starting in docker)
	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("waiting for db")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("could not connect to db")
	}

	if err := store.RunMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	return store.NewPgStore(db), func() { _ = db.Close() }
}

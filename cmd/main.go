// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/cache"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/clock"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/config"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/database/migrations"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/handler"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/notify"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository/memory"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/service"
	"github.com/Shivanand-hulikatti/qr-ticketing/internal/ticketcode"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx := context.Background()

	// ── 1. Storage ───────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	clk := clock.NewSystem()
	opts := []service.Option{service.WithStoreTimeout(cfg.StoreTimeout)}

	var metricsHandler http.Handler
	if cfg.EnableMetrics {
		opts = append(opts, service.WithRecorder(metrics.New(prometheus.DefaultRegisterer)))
		metricsHandler = promhttp.Handler()
	}

	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, stats are computed on every request")
		} else {
			defer rdb.Close()
			opts = append(opts, service.WithStatsCache(cache.NewStatsCache(rdb, cfg.StatsCacheTTL)))
			logger.Info("stats cache enabled")
		}
	}

	if cfg.PubNubEnabled() {
		pn := notify.NewPubNub(cfg.PubNubPublishKey, cfg.PubNubSubscribeKey, cfg.PubNubSecretKey, cfg.PubNubUserID)
		opts = append(opts, service.WithNotifier(notify.NewPublisher(pn, logger)))
		logger.Info("scan feed enabled")
	} else {
		opts = append(opts, service.WithNotifier(notify.Nop{}))
	}

	eventSvc := service.NewEventService(store, clk, logger, opts...)
	ticketSvc := service.NewTicketService(store, ticketcode.New(clk), clk, logger, opts...)

	validate := validator.New()
	router := handler.NewRouter(handler.RouterConfig{
		Events:      handler.NewEventHandler(eventSvc, validate, logger),
		Tickets:     handler.NewTicketHandler(ticketSvc, validate, logger),
		Health:      store,
		Metrics:     metricsHandler,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore returns the configured store and a func that releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (service.Store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	logger.Info("connected to PostgreSQL")
	return repository.NewStore(pool), pool.Close, nil
}

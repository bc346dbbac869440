// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivanand-hulikatti/slot-booking/internal/config"
	"github.com/Shivanand-hulikatti/slot-booking/internal/database"
	"github.com/Shivanand-hulikatti/slot-booking/internal/handler"
	"github.com/Shivanand-hulikatti/slot-booking/internal/notify"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository"
	"github.com/Shivanand-hulikatti/slot-booking/internal/repository/memstore"
	"github.com/Shivanand-hulikatti/slot-booking/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── 1. Configuration and logging ──────────────────────────────────────
	v, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	cfg, err := config.ParseConfig(v)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if err := setupLogger(cfg.Log); err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	// ── 2. Storage ────────────────────────────────────────────────────────
	tx, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("store: %v", err)
	}
	defer closeStore()

	// ── 3. Event publishing ───────────────────────────────────────────────
	publisher, closePublisher := openPublisher(ctx, cfg)
	defer closePublisher()

	// ── 4. Wire up layers ────────────────────────────────────────────────
	opts := []service.Option{
		service.WithLogger(logrus.NewEntry(logrus.StandardLogger())),
		service.WithPublisher(publisher),
	}
	coordinator := service.NewCoordinator(tx, opts...)
	slots := service.NewSlotService(tx, opts...)

	var limiter *handler.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = handler.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		limiter.StartJanitor(ctx, cfg.RateLimit.CleanupEvery)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Slots:        handler.NewSlotHandler(slots),
		Reservations: handler.NewReservationHandler(coordinator),
		Limiter:      limiter,
		Metrics:      promhttp.Handler(),
	})

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Store.Backend,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
		return
	}
	logrus.Info("server stopped")
}

func setupLogger(cfg config.LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
	if cfg.Format == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// openStore returns the configured unit-of-work backend and its closer.
func openStore(ctx context.Context, cfg *config.Config) (repository.TxManager, func(), error) {
	if cfg.Store.Backend == config.StoreMemory {
		logrus.Warn("using in-memory store, state is lost on restart")
		return memstore.New(), func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logrus.WithField("db", cfg.Database.DBName).Info("connected to PostgreSQL")
	return repository.NewPostgresTxManager(pool), pool.Close, nil
}

// openPublisher connects to Redis when an address is configured. Booking
// continues without notifications if Redis is absent or unreachable.
func openPublisher(ctx context.Context, cfg *config.Config) (notify.Publisher, func()) {
	if cfg.Redis.Addr == "" {
		logrus.Info("redis not configured, booking events disabled")
		return notify.Nop{}, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("redis unreachable, event publishing fails until it recovers")
	}

	p := notify.NewRedisPublisher(rdb,
		notify.WithChannel(cfg.Notify.Channel),
		notify.WithHistoryPrefix(cfg.Notify.HistoryPrefix),
		notify.WithHistoryLen(cfg.Notify.HistoryLen),
	)
	return p, func() { _ = rdb.Close() }
}

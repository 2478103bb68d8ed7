package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/resguarit/pos-system-sub006/internal/config"
	"github.com/resguarit/pos-system-sub006/internal/infra"
	"github.com/resguarit/pos-system-sub006/internal/middleware"
	"github.com/resguarit/pos-system-sub006/internal/router"
	"github.com/resguarit/pos-system-sub006/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// dev: pretty console, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	afipCB := infra.NewCircuitBreaker(infra.CircuitBreakerConfigFrom(cfg))
	dispatcher := worker.NewDispatcher(rdb)
	svc := router.NuevosServicios(cfg, db, afipCB, dispatcher)

	// Authorization runs after commit: queued jobs first, the cron picks up
	// whatever failed or never made it into the queue.
	dispatcher.Register(worker.JobAutorizacion, worker.NewAutorizacionHandler(func(ctx context.Context, ventaID uuid.UUID) error {
		_, err := svc.Facturacion.Autorizar(ctx, ventaID)
		return err
	}))
	dispatcher.StartWorkerPool(ctx, cfg.WorkerPoolSize)
	worker.StartRetryCron(ctx, 0, svc.Facturacion.ReintentarPendientes)

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	limiter.StartPurge(ctx)

	r := router.New(cfg, db, rdb, afipCB, svc, limiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("pos ledger listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}

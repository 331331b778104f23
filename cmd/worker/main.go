// worker deletes expired sessions on SESSION_SWEEP_INTERVAL. Requires DATABASE_URL.
// Use -once to run a single sweep and exit (e.g. from cron).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"session-auth-service/internal/config"
	"session-auth-service/internal/db"
	"session-auth-service/internal/logger"
	sessionrepo "session-auth-service/internal/session/repository"
	sessionservice "session-auth-service/internal/session/service"
	authotel "session-auth-service/internal/telemetry/otel"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	base := logger.Setup(cfg.LogLevel, cfg.ServiceName+"-worker")
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("worker: DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = base.WithContext(ctx)
	err = run(ctx, cfg, *once)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("worker")
	}
}

func run(ctx context.Context, cfg *config.Config, once bool) error {
	providers, err := authotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName+"-worker", cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	metrics, err := authotel.NewAuthMetrics(providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	sweeper := sessionservice.NewSweeper(sessionservice.NewManager(sessionrepo.NewPostgresRepository(pool)), cfg.SweepInterval())
	sweeper.OnSweep = func(ctx context.Context, n int64) {
		metrics.SessionsDeleted(ctx, n)
	}

	if once {
		if _, err := sweeper.SweepOnce(ctx); err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		return nil
	}
	zerolog.Ctx(ctx).Info().Dur("interval", cfg.SweepInterval()).Msg("worker: sweeping expired sessions")
	sweeper.Run(ctx)
	zerolog.Ctx(ctx).Info().Msg("worker: stopped")
	return nil
}

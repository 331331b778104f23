// server runs the HTTP auth API and the gRPC health service.
// With DATABASE_URL unset it uses in-memory stores (development only).
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"

	"session-auth-service/internal/config"
	"session-auth-service/internal/db"
	healthhandler "session-auth-service/internal/health/handler"
	identityservice "session-auth-service/internal/identity/service"
	"session-auth-service/internal/logger"
	"session-auth-service/internal/security"
	"session-auth-service/internal/server"
	sessionrepo "session-auth-service/internal/session/repository"
	sessionservice "session-auth-service/internal/session/service"
	authotel "session-auth-service/internal/telemetry/otel"
	userrepo "session-auth-service/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := authotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatal().Err(err).Msg("otel")
	}
	providers.SetGlobal()
	base := logger.Setup(cfg.LogLevel, cfg.ServiceName, authotel.NewLogHook(providers.LoggerProvider, zerolog.WarnLevel))

	if err := run(ctx, cfg, providers, base); err != nil {
		log.Error().Err(err).Msg("server exited")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, providers *authotel.Providers, base zerolog.Logger) error {
	var (
		users    identityservice.UserRepo
		sessRepo sessionrepo.Repository
		pinger   healthhandler.Pinger
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = userrepo.NewPostgresRepository(pool)
		sessRepo = sessionrepo.NewPostgresRepository(pool)
		pinger = pool
	} else {
		log.Warn().Msg("DATABASE_URL not set; using in-memory stores")
		users = userrepo.NewMemoryRepository()
		sessRepo = sessionrepo.NewMemoryRepository()
	}

	tokens, err := security.NewTokenProvider(security.TokenConfig{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	})
	if err != nil {
		return err
	}
	hasher := security.NewHasher(security.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	}, cfg.HashConcurrency)
	metrics, err := authotel.NewAuthMetrics(providers.MeterProvider)
	if err != nil {
		return err
	}
	auth := identityservice.NewAuthService(users, sessionservice.NewManager(sessRepo), hasher, tokens, identityservice.Policy{
		RotateRefreshTokens:  cfg.RefreshRotationEnabled,
		SingleSessionPerUser: cfg.SingleSessionPerUser,
	}, metrics)

	checker := healthhandler.NewChecker(pinger)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := server.NewEngine(server.Deps{
		Auth:        auth,
		Health:      checker,
		Logger:      base,
		Registry:    reg,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base.WithContext(context.Background()) },
	}

	var grpcLis net.Listener
	if cfg.GRPCHealthAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPCHealthAddr); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcLis != nil {
		hs := health.NewServer()
		grpcSrv := server.NewGRPCServer(hs)
		g.Go(func() error {
			log.Info().Str("addr", cfg.GRPCHealthAddr).Msg("gRPC health server listening")
			return grpcSrv.Serve(grpcLis)
		})
		g.Go(func() error {
			checker.WatchGRPC(gctx, hs, 5*time.Second)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		checker.SetDraining()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

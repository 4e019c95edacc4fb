// Command tgauth-server runs the Mini App verification service.
//
//	tgauth-server -config tgauth.yaml
//
// Settings come from the optional config file, a .env file and TGAUTH_*
// environment variables (TGAUTH_BOT_TOKEN, TGAUTH_JWT_SECRET,
// TGAUTH_REDIS_ADDR, ...).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgAuth "github.com/MrEthical07/tgAuth"
	"github.com/MrEthical07/tgAuth/httpapi"
	"github.com/MrEthical07/tgAuth/internal/config"
	"github.com/MrEthical07/tgAuth/internal/logging"
	promexport "github.com/MrEthical07/tgAuth/metrics/export/prometheus"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML/JSON config file (optional)")
	envFile := flag.String("env", ".env", "Path to a .env file (optional)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load env (%s): %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // best-effort flush

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}

	engine, err := tgAuth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("engine ready",
		zap.String("signing_algorithm", report.SigningAlgorithm),
		zap.Duration("freshness_window", report.FreshnessWindow),
		zap.Duration("strict_freshness_window", report.StrictFreshnessWindow),
		zap.Bool("replay_protection", report.ReplayProtection),
		zap.String("replay_backend", string(report.ReplayBackend)),
		zap.Bool("single_active_session", report.SingleActiveSession),
		zap.Bool("rate_limiting", report.RateLimitingActive),
		zap.Int("admins", report.AdminCount),
	)

	metrics, err := promexport.Handler(engine)
	if err != nil {
		return fmt.Errorf("metrics handler: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddress,
		Handler: httpapi.NewRouter(engine, httpapi.Options{
			Logger:            logger,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			TrustProxyHeaders: cfg.TrustProxyHeaders,
			MetricsHandler:    metrics,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("grace_period", cfg.ShutdownGracePeriod))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nickita-khylkouski/ultrathink/internal/application/discovery"
	appevo "github.com/nickita-khylkouski/ultrathink/internal/application/evolution"
	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres/repositories"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/redis"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/messaging/kafka"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/nickita-khylkouski/ultrathink/internal/interfaces/http"
	"github.com/nickita-khylkouski/ultrathink/internal/interfaces/http/handlers"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			return RunServer(cmd.Context(), cfg)
		},
	}
}

// loadConfig reads the file when a path is given, otherwise builds the
// configuration from ULTRATHINK_* environment variables alone.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

// pingFunc adapts a plain probe function to the health handler's interface.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RunServer wires infrastructure and serves until ctx is cancelled or an
// interrupt arrives.  Postgres, Redis and Kafka are attached when reachable;
// an unreachable backend degrades its concern with a warning instead of
// refusing to start.
func RunServer(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)
	metrics := prometheus.NewMetrics("ultrathink")

	var discoveryOpts []discovery.Option
	var evolutionOpts []appevo.Option
	checks := make(map[string]handlers.Pinger)

	if pg, err := postgres.NewConnection(ctx, cfg.Database, logger); err != nil {
		logger.Warn("postgres unavailable, persistence disabled", logging.Err(err))
	} else {
		defer pg.Close()
		checks["postgres"] = pingFunc(pg.HealthCheck)
		discoveryOpts = append(discoveryOpts,
			discovery.WithStore(repositories.NewMoleculeRepository(pg.Pool(), logger)))
		evolutionOpts = append(evolutionOpts,
			appevo.WithStore(repositories.NewLineageRepository(pg.Pool(), logger)))
	}

	if rc, err := redis.NewClient(ctx, cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, score cache disabled", logging.Err(err))
	} else {
		defer rc.Close()
		checks["redis"] = pingFunc(rc.Ping)
		cache := redis.NewCache(rc, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
		discoveryOpts = append(discoveryOpts, discovery.WithCache(cache))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, logger)
		defer producer.Close()
		discoveryOpts = append(discoveryOpts, discovery.WithEvents(producer))
		evolutionOpts = append(evolutionOpts, appevo.WithEvents(producer))
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Mode:         cfg.Server.Mode,
		Discovery:    discovery.NewService(cfg.Engine, metrics, logger, discoveryOpts...),
		Evolution:    appevo.NewService(cfg.Engine, metrics, logger, evolutionOpts...),
		Metrics:      metrics,
		Logger:       logger,
		RateLimitRPS: cfg.Server.RateLimitRPS,
		HealthChecks: checks,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case sig := <-sigCh:
		logger.Info("signal received", logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

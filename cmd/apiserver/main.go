// Command apiserver runs the HTTP API with full infrastructure wiring.  It
// is the containerised deployment entry point; the same server is reachable
// through `ultrathink serve` for local use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/interfaces/cli"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: env-only)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	migrate := flag.Bool("migrate", false, "apply pending database migrations before serving")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if *migrate {
		logger, err := logging.NewLogger(cfg.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(1)
		}
		if err := postgres.Migrate(cfg.Database, logger); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.RunServer(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

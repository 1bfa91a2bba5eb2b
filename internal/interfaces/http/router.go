// Package http wires the gin route tree and the HTTP server lifecycle.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nickita-khylkouski/ultrathink/internal/application/discovery"
	"github.com/nickita-khylkouski/ultrathink/internal/application/evolution"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
	"github.com/nickita-khylkouski/ultrathink/internal/interfaces/http/handlers"
	"github.com/nickita-khylkouski/ultrathink/internal/interfaces/http/middleware"
)

// RouterConfig aggregates everything the route tree depends on.
type RouterConfig struct {
	Mode         string // gin mode: "debug" | "release" | "test"
	Discovery    *discovery.Service
	Evolution    *evolution.Service
	Metrics      *prometheus.Metrics
	Logger       logging.Logger
	RateLimitRPS int
	HealthChecks map[string]handlers.Pinger
}

// NewRouter builds the complete gin engine: middleware chain, operational
// endpoints, and the versioned API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestLogger(cfg.Logger),
		middleware.CORS(),
		middleware.Metrics(cfg.Metrics),
	)

	health := handlers.NewHealthHandler(cfg.HealthChecks)
	r.GET("/healthz", health.Health)
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	api := r.Group("/api/v1")
	if cfg.RateLimitRPS > 0 {
		api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRPS)))
	}

	dh := handlers.NewDiscoveryHandler(cfg.Discovery)
	api.POST("/discovery/score", dh.Score)
	api.GET("/targets", dh.ListTargets)
	api.POST("/targets/:name/score", dh.ScoreTarget)
	api.POST("/tools/similarity", dh.Similarity)

	eh := handlers.NewEvolutionHandler(cfg.Evolution)
	api.POST("/evolution/generations", eh.RunGeneration)
	api.POST("/evolution/lineages", eh.StartLineage)
	api.GET("/evolution/lineages/:id", eh.GetLineage)
	api.POST("/evolution/lineages/:id/accept", eh.Accept)

	return r
}

// Package prometheus defines the engine's metric set on a private registry.
// Every metric the HTTP layer, the generation engine and the infrastructure
// adapters emit is declared here; handlers mount Handler() under /metrics.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultHTTPDurationBuckets covers request latencies from 5ms to 10s.
var DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// GenerationDurationBuckets covers generation runs from 10ms to 2 minutes.
var GenerationDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120}

// Metrics holds every application metric, registered on a private registry
// so tests can construct isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP layer
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Molecule layer
	MoleculesParsedTotal *prometheus.CounterVec

	// Scoring layer
	ScoreBatchSize   prometheus.Histogram
	CompositeFitness prometheus.Histogram

	// Evolution layer
	GenerationsTotal        *prometheus.CounterVec
	GenerationDuration      prometheus.Histogram
	CandidatesPerGeneration prometheus.Histogram
	MutationOpsTotal        *prometheus.CounterVec
	LineageDivergence       prometheus.Histogram

	// Infrastructure layer
	DBQueryDuration      *prometheus.HistogramVec
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     *prometheus.CounterVec
	EventsPublishedTotal *prometheus.CounterVec
}

// NewMetrics registers the full metric set under the given namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := func(name, help string, labels ...string) *prometheus.CounterVec {
		v := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help,
		}, labels)
		reg.MustRegister(v)
		return v
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: name, Help: help, Buckets: buckets,
		})
		reg.MustRegister(h)
		return h
	}

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = factory("http_requests_total",
		"Total HTTP requests", "method", "path", "status")
	m.HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds",
		Help: "HTTP request duration", Buckets: DefaultHTTPDurationBuckets,
	}, []string{"method", "path"})
	reg.MustRegister(m.HTTPRequestDuration)

	m.MoleculesParsedTotal = factory("molecules_parsed_total",
		"Molecule parse attempts", "status")

	m.ScoreBatchSize = histogram("score_batch_size",
		"Molecules per scoring request",
		[]float64{1, 5, 10, 25, 50, 100})
	m.CompositeFitness = histogram("composite_fitness",
		"Composite fitness of scored molecules",
		prometheus.LinearBuckets(0, 0.1, 11))

	m.GenerationsTotal = factory("generations_total",
		"Generation runs", "status")
	m.GenerationDuration = histogram("generation_duration_seconds",
		"Wall time per generation run", GenerationDurationBuckets)
	m.CandidatesPerGeneration = histogram("candidates_per_generation",
		"Valid unique offspring per generation",
		[]float64{0, 1, 5, 10, 25, 50, 100, 250, 500})
	m.MutationOpsTotal = factory("mutation_ops_total",
		"Applied mutation operations", "operation")
	m.LineageDivergence = histogram("lineage_divergence_percent",
		"Divergence of accepted lineages from their seed",
		prometheus.LinearBuckets(0, 10, 11))

	m.DBQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_query_duration_seconds",
		Help:    "Database query duration",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
	}, []string{"operation"})
	reg.MustRegister(m.DBQueryDuration)

	m.CacheHitsTotal = factory("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = factory("cache_misses_total", "Cache misses", "cache")
	m.EventsPublishedTotal = factory("events_published_total",
		"Published event envelopes", "topic", "status")

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry exposes the private registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

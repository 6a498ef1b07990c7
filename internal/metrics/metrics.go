// Package metrics exposes Prometheus counters for the simulated pipeline.
// Collectors live on a private registry so several instances (tests,
// multiple servers) never collide on the default one.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transparencia-agent/internal/agent"
)

const namespace = "transparencia"

type Metrics struct {
	registry *prometheus.Registry

	searchesTotal  prometheus.Counter
	portalsTotal   prometheus.Counter
	downloadsTotal *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.searchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Portal searches performed.",
	})
	m.portalsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "portals_total",
		Help:      "Portal records produced by analysis.",
	})
	m.downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Simulated downloads by outcome.",
		},
		[]string{"status"},
	)
	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage, simulated delays included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	m.registry.MustRegister(m.searchesTotal, m.portalsTotal, m.downloadsTotal, m.stageDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(stage string, start time.Time) {
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordDownloads(records []agent.DownloadRecord) {
	for _, r := range records {
		if r.Succeeded() {
			m.downloadsTotal.WithLabelValues("succeeded").Inc()
		} else {
			m.downloadsTotal.WithLabelValues("failed").Inc()
		}
	}
}

// Stages mirrors the pipeline steps so Instrument can wrap any implementation.
type Stages interface {
	Discover(ctx context.Context, in agent.SearchInput) ([]string, error)
	Analyze(ctx context.Context, urls []string) ([]agent.PortalRecord, error)
	Download(ctx context.Context, portals []agent.PortalRecord, categories []agent.Category) ([]agent.DownloadRecord, error)
}

// Instrument returns next with every stage timed and counted.
func (m *Metrics) Instrument(next Stages) Stages {
	return &instrumented{next: next, m: m}
}

type instrumented struct {
	next Stages
	m    *Metrics
}

func (i *instrumented) Discover(ctx context.Context, in agent.SearchInput) ([]string, error) {
	defer i.m.observe("discover", time.Now())
	urls, err := i.next.Discover(ctx, in)
	if err == nil {
		i.m.searchesTotal.Inc()
	}
	return urls, err
}

func (i *instrumented) Analyze(ctx context.Context, urls []string) ([]agent.PortalRecord, error) {
	defer i.m.observe("analyze", time.Now())
	portals, err := i.next.Analyze(ctx, urls)
	if err == nil {
		i.m.portalsTotal.Add(float64(len(portals)))
	}
	return portals, err
}

func (i *instrumented) Download(ctx context.Context, portals []agent.PortalRecord, categories []agent.Category) ([]agent.DownloadRecord, error) {
	defer i.m.observe("download", time.Now())
	records, err := i.next.Download(ctx, portals, categories)
	if err == nil {
		i.m.recordDownloads(records)
	}
	return records, err
}

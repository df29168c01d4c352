package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adscope"

// Classification outcomes.
const (
	OutcomeClassified    = "classified"
	OutcomeLowConfidence = "low_confidence"
	OutcomeFallback      = "fallback"
)

// Pipeline holds the counters updated by a pipeline run. Each instance owns
// its registry, so several can coexist in tests.
type Pipeline struct {
	registry *prometheus.Registry

	AdsInput        prometheus.Counter
	AdsKept         prometheus.Counter
	AdsSkipped      *prometheus.CounterVec
	Classifications *prometheus.CounterVec
	Estimates       prometheus.Counter
	LowConfidence   prometheus.Counter
	WriterFallbacks prometheus.Counter
	Runs            prometheus.Counter
}

// New registers every pipeline collector plus the Go runtime collectors.
func New() *Pipeline {
	m := &Pipeline{
		registry: prometheus.NewRegistry(),
		AdsInput: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ads_input_total",
			Help: "Raw ads handed to the pipeline.",
		}),
		AdsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ads_kept_total",
			Help: "Ads surviving filtering and deduplication.",
		}),
		AdsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ads_skipped_total",
			Help: "Ads dropped before classification, by reason.",
		}, []string{"reason"}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "classifications_total",
			Help: "Industry classifications, by outcome.",
		}, []string{"outcome"}),
		Estimates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "estimates_total",
			Help: "Estimate records produced.",
		}),
		LowConfidence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "low_confidence_total",
			Help: "Ads flagged for manual review.",
		}),
		WriterFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "writer_fallbacks_total",
			Help: "CSV writes that went through the temp-file fallback.",
		}),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Completed pipeline runs.",
		}),
	}
	m.registry.MustRegister(
		m.AdsInput, m.AdsKept, m.AdsSkipped, m.Classifications,
		m.Estimates, m.LowConfidence, m.WriterFallbacks, m.Runs,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Pipeline) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

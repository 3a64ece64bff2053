// Package metrics exposes engine counters through Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Turn outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeBlocked  = "blocked"
)

// Upstream service names.
const (
	UpstreamLLM       = "llm"
	UpstreamEmbedding = "embedding"
	UpstreamSentiment = "sentiment"
)

// Collector holds the engine's Prometheus metrics. A nil Collector is valid
// and drops every observation, so callers never need to guard.
type Collector struct {
	turnsTotal       *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
}

// NewCollector registers the engine metrics with the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kokoro",
			Name:      "turns_total",
			Help:      "Processed conversation turns by outcome.",
		}, []string{"outcome"}),
		upstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kokoro",
			Name:      "upstream_failures_total",
			Help:      "Failed calls to upstream services.",
		}, []string{"service"}),
	}
	reg.MustRegister(c.turnsTotal, c.upstreamFailures)
	return c
}

// RecordTurn counts one processed turn.
func (c *Collector) RecordTurn(outcome string) {
	if c == nil {
		return
	}
	c.turnsTotal.WithLabelValues(outcome).Inc()
}

// RecordUpstreamFailure counts one failed upstream call.
func (c *Collector) RecordUpstreamFailure(service string) {
	if c == nil {
		return
	}
	c.upstreamFailures.WithLabelValues(service).Inc()
}

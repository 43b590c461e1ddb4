// Copyright 2025 Certen Protocol

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Metrics holds the node's Prometheus collectors.
type Metrics struct {
	BlocksProduced       prometheus.Counter
	AttestationsCollected prometheus.Counter
	SlashesApplied       *prometheus.CounterVec
	SandboxExecutions    *prometheus.CounterVec
	MempoolDepth         *prometheus.GaugeVec
}

// NewMetrics registers the node's collectors against registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		BlocksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hardclaw_blocks_produced_total",
			Help: "Total number of blocks produced by this node.",
		}),
		AttestationsCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hardclaw_attestations_collected_total",
			Help: "Total number of verifier attestations collected.",
		}),
		SlashesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardclaw_slashes_applied_total",
			Help: "Total number of stake slashes applied, by reason.",
		}, []string{"reason"}),
		SandboxExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hardclaw_sandbox_executions_total",
			Help: "Total number of sandbox verification executions, by language and outcome.",
		}, []string{"language", "outcome"}),
		MempoolDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hardclaw_mempool_depth",
			Help: "Current mempool depth, by kind (jobs, solutions).",
		}, []string{"kind"}),
	}

	registry.MustRegister(m.BlocksProduced, m.AttestationsCollected, m.SlashesApplied, m.SandboxExecutions, m.MempoolDepth)
	return m
}

// Handler exposes the collectors on the conventional /metrics path.
func (m *Metrics) Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

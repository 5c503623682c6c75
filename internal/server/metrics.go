package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/agentward/internal/gateway"
	"github.com/ppiankov/agentward/internal/model"
)

var (
	proxyDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentward_proxy_decisions_total",
		Help: "Terminal proxy decisions by verdict code",
	}, []string{"code"})
	proxyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agentward_proxy_latency_seconds",
		Help:    "End-to-end gate chain latency",
		Buckets: prometheus.DefBuckets,
	})
	threatsBlocked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agentward_threats_blocked_total",
		Help: "Requests and responses blocked by the content inspector",
	})
	secretsRedacted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agentward_secrets_redacted_total",
		Help: "Secret occurrences redacted from proxied payloads",
	})
)

func init() {
	prometheus.MustRegister(proxyDecisions)
	prometheus.MustRegister(proxyLatency)
	prometheus.MustRegister(threatsBlocked)
	prometheus.MustRegister(secretsRedacted)
}

func observeDecision(d gateway.Decision) {
	proxyDecisions.WithLabelValues(string(d.Code)).Inc()
	proxyLatency.Observe(float64(d.LatencyMS) / 1000)
	if d.Code == model.CodeThreatBlocked || d.Code == model.CodeResponseThreat {
		threatsBlocked.Inc()
	}
	secretsRedacted.Add(float64(len(d.Redactions)))
}

// Package metrics exposes the service's Prometheus counters.
//
// All methods are nil-safe so components can run without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calldesk"

// Outcome labels shared by every counter.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeIgnored  = "ignored"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
)

type Metrics struct {
	registry *prometheus.Registry

	webhooks      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	archives      *prometheus.CounterVec
	proxyFetches  *prometheus.CounterVec
	callEvents    *prometheus.CounterVec
}

// New builds a private registry with Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Provider webhooks handled, by route and outcome.",
		}, []string{"route", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Chat notifications attempted, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voicemail_archives_total",
			Help:      "Voicemail uploads to object storage, by outcome.",
		}, []string{"outcome"}),
		proxyFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_proxy_fetches_total",
			Help:      "Audio proxy upstream fetches, by outcome.",
		}, []string{"outcome"}),
		callEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_events_total",
			Help:      "Call change events published, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.webhooks, m.notifications, m.archives, m.proxyFetches, m.callEvents,
	)
	return m
}

func (m *Metrics) Webhook(route, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Archive(outcome string) {
	if m == nil {
		return
	}
	m.archives.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ProxyFetch(outcome string) {
	if m == nil {
		return
	}
	m.proxyFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CallEvent(kind string) {
	if m == nil {
		return
	}
	m.callEvents.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

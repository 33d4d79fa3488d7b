// Package metrics exposes prometheus collectors for audit runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

const namespace = "seca_web"

// Collector owns a private registry so separate audits and tests never share
// counters. All methods are safe on a nil receiver.
type Collector struct {
	registry *prometheus.Registry

	probeDuration *prometheus.HistogramVec
	probeFailures *prometheus.CounterVec
	interactions  *prometheus.CounterVec
	linkChecks    *prometheus.CounterVec
	audits        *prometheus.CounterVec
	overallScore  *prometheus.GaugeVec
}

// New creates a Collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		probeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Wall time of each probe, by probe kind and result status.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"probe", "status"}),
		probeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Number of probes that fell back to their default payload.",
		}, []string{"probe"}),
		interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Clicks and fills attempted during the interaction sweep.",
		}, []string{"kind", "outcome"}),
		linkChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_checks_total",
			Help:      "Links checked by the backlinks probe.",
		}, []string{"outcome"}),
		audits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Audit runs by outcome.",
		}, []string{"outcome"}),
		overallScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overall_score",
			Help:      "Overall score of the most recent audit of each host.",
		}, []string{"host"}),
	}
}

// Registry exposes the underlying registry for export.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveProbe records one finished probe.
func (c *Collector) ObserveProbe(kind audit.ProbeKind, status audit.Status, d time.Duration) {
	if c == nil {
		return
	}
	c.probeDuration.WithLabelValues(kind.String(), string(status)).Observe(d.Seconds())
	if status == audit.StatusFallback {
		c.probeFailures.WithLabelValues(kind.String()).Inc()
	}
}

// RecordInteraction counts one click or fill.
func (c *Collector) RecordInteraction(kind audit.ElementKind, succeeded bool) {
	if c == nil {
		return
	}
	c.interactions.WithLabelValues(string(kind), outcome(succeeded)).Inc()
}

// RecordLinkCheck counts one link check.
func (c *Collector) RecordLinkCheck(healthy bool) {
	if c == nil {
		return
	}
	label := "healthy"
	if !healthy {
		label = "broken"
	}
	c.linkChecks.WithLabelValues(label).Inc()
}

// RecordAudit counts a completed or failed audit run. score is only
// recorded for successful runs.
func (c *Collector) RecordAudit(host string, score int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.audits.WithLabelValues("error").Inc()
		return
	}
	c.audits.WithLabelValues("success").Inc()
	c.overallScore.WithLabelValues(host).Set(float64(score))
}

// WriteTextfile writes every metric in the text exposition format, for the
// node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

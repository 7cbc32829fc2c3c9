package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// TickMetricsCollector handles passive resource generation metrics
type TickMetricsCollector struct {
	ticksTotal        prometheus.Counter
	userOutcomesTotal *prometheus.CounterVec
	tickDuration      prometheus.Histogram
	lastTickTimestamp prometheus.Gauge
	lastTickUsers     *prometheus.GaugeVec
}

// NewTickMetricsCollector creates a new tick metrics collector
func NewTickMetricsCollector() *TickMetricsCollector {
	return &TickMetricsCollector{
		ticksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ticks_total",
				Help:      "Number of resource tick firings",
			},
		),

		userOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tick_user_outcomes_total",
				Help:      "Per-user tick outcomes",
			},
			[]string{"outcome"},
		),

		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tick_duration_seconds",
				Help:      "Time taken to credit every user in one tick",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),

		lastTickTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_tick_timestamp_seconds",
				Help:      "Unix time of the most recent tick",
			},
		),

		lastTickUsers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_tick_users",
				Help:      "Users processed in the most recent tick by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all tick metrics with the Prometheus registry
func (c *TickMetricsCollector) Register() error {
	return register(c.ticksTotal, c.userOutcomesTotal, c.tickDuration, c.lastTickTimestamp, c.lastTickUsers)
}

// RecordTick records the summary of one tick
func (c *TickMetricsCollector) RecordTick(summary resources.TickSummary) {
	c.ticksTotal.Inc()
	c.userOutcomesTotal.WithLabelValues("success").Add(float64(summary.Succeeded))
	c.userOutcomesTotal.WithLabelValues("failure").Add(float64(summary.Failed))
	c.tickDuration.Observe(summary.Duration.Seconds())
	c.lastTickTimestamp.Set(float64(summary.TickedAt.Unix()))
	c.lastTickUsers.WithLabelValues("success").Set(float64(summary.Succeeded))
	c.lastTickUsers.WithLabelValues("failure").Set(float64(summary.Failed))
}

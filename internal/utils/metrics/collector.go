// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solstake"

// Collector владеет собственным реестром, чтобы несколько экземпляров
// (например, в тестах) не конфликтовали в глобальном.
type Collector struct {
	registry *prometheus.Registry

	operations       *prometheus.CounterVec
	transfers        *prometheus.CounterVec
	transferDuration prometheus.Histogram
	reserveShortfall *prometheus.GaugeVec
	auditPools       prometheus.Gauge
	auditShortfalls  prometheus.Gauge
	auditFailures    prometheus.Gauge
	auditDuration    prometheus.Gauge
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Pool instructions processed, by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Token transfers attempted through the gateway",
			},
			[]string{"status"},
		),
		transferDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer duration including confirmation",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		reserveShortfall: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reserve_shortfall_tokens",
				Help:      "Outstanding rewards not covered by the reward reserve",
			},
			[]string{"pool"},
		),
		auditPools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_pools",
			Help:      "Pools checked by the last audit",
		}),
		auditShortfalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_shortfalls",
			Help:      "Pools with a reserve shortfall in the last audit",
		}),
		auditFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_failures",
			Help:      "Pools the last audit could not read",
		}),
		auditDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_duration_seconds",
			Help:      "Duration of the last audit",
		}),
	}

	c.registry.MustRegister(
		c.operations,
		c.transfers,
		c.transferDuration,
		c.reserveShortfall,
		c.auditPools,
		c.auditShortfalls,
		c.auditFailures,
		c.auditDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.operations.Reset()
	c.transfers.Reset()
	c.reserveShortfall.Reset()
}

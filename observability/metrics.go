package observability

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	runtimeMetricsOnce sync.Once
	runtimeRegistry    *RuntimeMetrics

	saleMetricsOnce sync.Once
	saleRegistry    *SaleMetrics

	queueMetricsOnce sync.Once
	queueRegistry    *QueueMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record HTTP
// API activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module, route and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, route and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "launchpad",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// RuntimeMetrics tracks ledger operations executed by the runtime.
type RuntimeMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	rejections *prometheus.CounterVec
	events     *prometheus.CounterVec
}

// Runtime returns the singleton registry for ledger operation metrics.
func Runtime() *RuntimeMetrics {
	runtimeMetricsOnce.Do(func() {
		runtimeRegistry = &RuntimeMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "runtime",
				Name:      "operations_total",
				Help:      "Count of ledger operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "launchpad",
				Subsystem: "runtime",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for ledger operations including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "runtime",
				Name:      "rejections_total",
				Help:      "Count of rejected ledger operations segmented by error kind and code.",
			}, []string{"operation", "kind", "code"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "launchpad",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			runtimeRegistry.operations,
			runtimeRegistry.latency,
			runtimeRegistry.rejections,
			runtimeRegistry.events,
		)
	})
	return runtimeRegistry
}

// Observe records a completed operation. kind and code are only used when
// err is non-nil.
func (m *RuntimeMetrics) Observe(operation string, duration time.Duration, err error, kind, code string) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if kind == "" {
			kind = "unknown"
		}
		if code == "" {
			code = "unknown"
		}
		m.rejections.WithLabelValues(op, kind, code).Inc()
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordEvent increments the committed event counter.
func (m *RuntimeMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.events.WithLabelValues(normalized).Inc()
}

// SaleMetrics mirrors the contribution ledger totals.
type SaleMetrics struct {
	contributed  prometheus.Gauge
	allocated    prometheus.Gauge
	contributors prometheus.Gauge
	progress     prometheus.Gauge
	rate         prometheus.Gauge
	complete     prometheus.Gauge
	paused       prometheus.Gauge
}

// Sale returns the singleton registry for sale gauges.
func Sale() *SaleMetrics {
	saleMetricsOnce.Do(func() {
		gauge := func(name, help string) prometheus.Gauge {
			return prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "launchpad",
				Subsystem: "sale",
				Name:      name,
				Help:      help,
			})
		}
		saleRegistry = &SaleMetrics{
			contributed:  gauge("contributed_total", "Value accepted by the sale in base units."),
			allocated:    gauge("allocated_total", "Tokens allocated to contributors."),
			contributors: gauge("contributors", "Distinct wallets that have contributed."),
			progress:     gauge("progress_percent", "Allocation progress as a whole percentage of the cap."),
			rate:         gauge("current_rate", "Tokens per unit at the current allocation."),
			complete:     gauge("complete", "Indicates whether the sale has completed (1) or not (0)."),
			paused:       gauge("paused", "Indicates whether contributions are paused (1) or not (0)."),
		}
		prometheus.MustRegister(
			saleRegistry.contributed,
			saleRegistry.allocated,
			saleRegistry.contributors,
			saleRegistry.progress,
			saleRegistry.rate,
			saleRegistry.complete,
			saleRegistry.paused,
		)
	})
	return saleRegistry
}

// SaleSnapshot is the set of values published by Sale().Record.
type SaleSnapshot struct {
	TotalContributed uint64
	TotalAllocated   uint64
	ContributorCount uint64
	ProgressPercent  uint64
	CurrentRate      uint64
	Complete         bool
	Paused           bool
}

// Record publishes a sale snapshot.
func (m *SaleMetrics) Record(s SaleSnapshot) {
	if m == nil {
		return
	}
	m.contributed.Set(float64(s.TotalContributed))
	m.allocated.Set(float64(s.TotalAllocated))
	m.contributors.Set(float64(s.ContributorCount))
	m.progress.Set(float64(s.ProgressPercent))
	m.rate.Set(float64(s.CurrentRate))
	m.complete.Set(boolGauge(s.Complete))
	m.paused.Set(boolGauge(s.Paused))
}

// QueueMetrics mirrors the distribution queue totals.
type QueueMetrics struct {
	totals *prometheus.GaugeVec
	paused prometheus.Gauge
	window prometheus.Gauge
}

// Queue returns the singleton registry for distribution queue gauges.
func Queue() *QueueMetrics {
	queueMetricsOnce.Do(func() {
		queueRegistry = &QueueMetrics{
			totals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "launchpad",
				Subsystem: "dispenser",
				Name:      "amount_total",
				Help:      "Cumulative distribution amounts segmented by bucket (queued, distributed, cancelled).",
			}, []string{"bucket"}),
			paused: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "launchpad",
				Subsystem: "dispenser",
				Name:      "pause_engaged",
				Help:      "Indicates whether the distribution pause is active (1) or not (0).",
			}),
			window: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "launchpad",
				Subsystem: "dispenser",
				Name:      "window_executions",
				Help:      "Executions counted against the current rate limit window.",
			}),
		}
		prometheus.MustRegister(queueRegistry.totals, queueRegistry.paused, queueRegistry.window)
	})
	return queueRegistry
}

// Record publishes the queue totals.
func (m *QueueMetrics) Record(queued, distributed, cancelled, windowCount uint64, paused bool) {
	if m == nil {
		return
	}
	m.totals.WithLabelValues("queued").Set(float64(queued))
	m.totals.WithLabelValues("distributed").Set(float64(distributed))
	m.totals.WithLabelValues("cancelled").Set(float64(cancelled))
	m.window.Set(float64(windowCount))
	m.paused.Set(boolGauge(paused))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

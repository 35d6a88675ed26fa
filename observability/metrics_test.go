package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRuntimeObserveSegmentsOutcome(t *testing.T) {
	m := Runtime()
	before := testutil.ToFloat64(m.operations.WithLabelValues("metrics.test", "error"))
	m.Observe("metrics.test", time.Millisecond, errors.New("boom"), "capacity", "RateLimited")
	m.Observe("metrics.test", time.Millisecond, nil, "", "")
	if got := testutil.ToFloat64(m.operations.WithLabelValues("metrics.test", "error")); got != before+1 {
		t.Fatalf("expected error count %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("metrics.test", "capacity", "RateLimited")); got < 1 {
		t.Fatalf("expected rejection to be recorded, got %v", got)
	}
}

func TestSaleRecord(t *testing.T) {
	m := Sale()
	m.Record(SaleSnapshot{TotalContributed: 15, TotalAllocated: 250, ProgressPercent: 50, Complete: true})
	if got := testutil.ToFloat64(m.progress); got != 50 {
		t.Fatalf("expected progress 50, got %v", got)
	}
	if got := testutil.ToFloat64(m.complete); got != 1 {
		t.Fatalf("expected complete gauge set, got %v", got)
	}
	if got := testutil.ToFloat64(m.paused); got != 0 {
		t.Fatalf("expected paused gauge clear, got %v", got)
	}
}

func TestQueueRecord(t *testing.T) {
	m := Queue()
	m.Record(30, 20, 10, 2, true)
	if got := testutil.ToFloat64(m.totals.WithLabelValues("cancelled")); got != 10 {
		t.Fatalf("expected cancelled 10, got %v", got)
	}
	if got := testutil.ToFloat64(m.paused); got != 1 {
		t.Fatalf("expected pause gauge set, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var r *RuntimeMetrics
	r.Observe("x", 0, nil, "", "")
	r.RecordEvent("x")
	var s *SaleMetrics
	s.Record(SaleSnapshot{})
	var q *QueueMetrics
	q.Record(0, 0, 0, 0, false)
	var mm *moduleMetrics
	mm.Observe("", "", 500, 0)
}

func histogramOf(t *testing.T, observer prometheus.Observer) *dto.Histogram {
	t.Helper()
	metric, ok := observer.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer does not expose a metric")
	}
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if out.GetHistogram() == nil {
		t.Fatalf("metric is not a histogram")
	}
	return out.GetHistogram()
}

func TestRuntimeLatencyHistogram(t *testing.T) {
	m := Runtime()
	m.Observe("metrics.latency", 20*time.Millisecond, nil, "", "")
	m.Observe("metrics.latency", 2*time.Second, nil, "", "")

	hist := histogramOf(t, m.latency.WithLabelValues("metrics.latency"))
	if hist.GetSampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", hist.GetSampleCount())
	}
	if sum := hist.GetSampleSum(); sum < 2.0 || sum > 2.1 {
		t.Fatalf("unexpected sample sum %v", sum)
	}
	var underQuarter uint64
	for _, bucket := range hist.GetBucket() {
		if bucket.GetUpperBound() == 0.25 {
			underQuarter = bucket.GetCumulativeCount()
		}
	}
	if underQuarter != 1 {
		t.Fatalf("expected one sample at or below 250ms, got %d", underQuarter)
	}
}

func TestSaleGaugeSnapshot(t *testing.T) {
	m := Sale()
	m.Record(SaleSnapshot{TotalContributed: 40, ContributorCount: 3, Paused: true})
	var out dto.Metric
	if err := m.contributors.Write(&out); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if out.GetGauge().GetValue() != 3 {
		t.Fatalf("expected 3 contributors, got %v", out.GetGauge().GetValue())
	}
}

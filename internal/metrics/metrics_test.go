package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.IncCycle()
	m.IncCycle()
	m.IncReload()
	m.AddObserved(7)
	m.IncStatusChange("in stock")
	m.IncOrder("ordered")
	m.IncOrder("ordered")
	m.IncError("timeout")
	m.AddCleaned(3)

	if got := testutil.ToFloat64(m.CyclesTotal); got != 2 {
		t.Errorf("cycles = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.ItemsObserved); got != 7 {
		t.Errorf("observed = %v; want 7", got)
	}
	if got := testutil.ToFloat64(m.OrdersTotal.WithLabelValues("ordered")); got != 2 {
		t.Errorf("orders{ordered} = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("timeout")); got != 1 {
		t.Errorf("errors{timeout} = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.CleanedMessages); got != 3 {
		t.Errorf("cleaned = %v; want 3", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncCycle()
	m.IncReload()
	m.AddObserved(1)
	m.IncStatusChange("sold out")
	m.IncOrder("failed")
	m.IncError("other")
	m.AddCleaned(1)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the poll loop.
type Metrics struct {
	Registry        *prometheus.Registry
	CyclesTotal     prometheus.Counter
	ReloadsTotal    prometheus.Counter
	ItemsObserved   prometheus.Counter
	StatusChanges   *prometheus.CounterVec
	OrdersTotal     *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	CleanedMessages prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	cycles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_poll_cycles_total",
		Help: "Total number of completed listing poll cycles.",
	})
	reloads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_reloads_total",
		Help: "Total number of listing reloads, including timeout retries.",
	})
	observed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_items_observed_total",
		Help: "Total number of product cards read from the listing.",
	})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_status_changes_total",
		Help: "Total number of stored status transitions by new status.",
	}, []string{"status"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_orders_total",
		Help: "Total number of order workflows by outcome.",
	}, []string{"result"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_errors_total",
		Help: "Total number of scraper errors by type.",
	}, []string{"error_type"})
	cleaned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_cleaned_messages_total",
		Help: "Total number of stale chat messages deleted.",
	})

	registry.MustRegister(cycles, reloads, observed, changes, orders, errorsTotal, cleaned)

	return &Metrics{
		Registry:        registry,
		CyclesTotal:     cycles,
		ReloadsTotal:    reloads,
		ItemsObserved:   observed,
		StatusChanges:   changes,
		OrdersTotal:     orders,
		ErrorsTotal:     errorsTotal,
		CleanedMessages: cleaned,
	}
}

// IncCycle increments the poll cycle counter.
func (m *Metrics) IncCycle() {
	if m == nil {
		return
	}
	m.CyclesTotal.Inc()
}

// IncReload increments the reload counter.
func (m *Metrics) IncReload() {
	if m == nil {
		return
	}
	m.ReloadsTotal.Inc()
}

// AddObserved adds n listing cards to the observed counter.
func (m *Metrics) AddObserved(n int) {
	if m == nil {
		return
	}
	m.ItemsObserved.Add(float64(n))
}

// IncStatusChange counts a stored transition to status.
func (m *Metrics) IncStatusChange(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

// IncOrder counts an order workflow outcome.
func (m *Metrics) IncOrder(result string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(result).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// AddCleaned adds n deleted chat messages.
func (m *Metrics) AddCleaned(n int) {
	if m == nil {
		return
	}
	m.CleanedMessages.Add(float64(n))
}

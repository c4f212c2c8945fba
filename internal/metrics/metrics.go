package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records storefront state activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	mutations       *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	hydrations      *prometheus.CounterVec
	catalogQueries  *prometheus.CounterVec
	orders          prometheus.Counter
	activeSessions  *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_state_mutations_total",
			Help: "State store mutations that changed state.",
		}, []string{"store", "op"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_persist_failures_total",
			Help: "Failed writes of store state to the key/value backend.",
		}, []string{"store"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_hydrations_total",
			Help: "Store hydrations by outcome.",
		}, []string{"store", "outcome"}),
		catalogQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_queries_total",
			Help: "Catalog list queries by sort option.",
		}, []string{"sort"}),
		orders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_total",
			Help: "Orders placed through checkout.",
		}),
		activeSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_active_sessions",
			Help: "Sessions with a store held in memory.",
		}, []string{"store"}),
	}
	reg.MustRegister(m.mutations, m.persistFailures, m.hydrations, m.catalogQueries, m.orders, m.activeSessions)
	return m
}

func (m *Metrics) IncMutation(store, op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(store), normalizeLabel(op)).Inc()
}

func (m *Metrics) IncPersistFailure(store string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(normalizeLabel(store)).Inc()
}

func (m *Metrics) IncHydration(store, outcome string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(normalizeLabel(store), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncCatalogQuery(sort string) {
	if m == nil {
		return
	}
	m.catalogQueries.WithLabelValues(normalizeLabel(sort)).Inc()
}

func (m *Metrics) IncOrders() {
	if m == nil {
		return
	}
	m.orders.Inc()
}

func (m *Metrics) SetActiveSessions(store string, n int) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(normalizeLabel(store)).Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

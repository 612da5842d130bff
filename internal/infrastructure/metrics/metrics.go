package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skipsee"

// Metrics holds the relay's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	online        prometheus.Gauge
	searching     prometheus.Gauge
	pairs         prometheus.Gauge
	matches       prometheus.Counter
	relayed       *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	limitRejected prometheus.Counter
	repairs       prometheus.Counter
	slowConsumers prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_online",
			Help:      "Live WebSocket connections.",
		}),
		searching: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_searching",
			Help:      "Connections waiting in the pool.",
		}),
		pairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pairs_active",
			Help:      "Currently bound partner pairs.",
		}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Pairings created.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_events_total",
			Help:      "Events forwarded to a partner, by event type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_dropped_total",
			Help:      "Events that could not be forwarded, by reason.",
		}, []string{"reason"}),
		limitRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_limit_rejected_total",
			Help:      "Searches rejected by the daily match limit.",
		}),
		repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_repairs_total",
			Help:      "Registry inconsistencies repaired by housekeeping.",
		}),
		slowConsumers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_consumers_total",
			Help:      "Connections closed because their send queue was full.",
		}),
	}

	reg.MustRegister(
		m.online, m.searching, m.pairs, m.matches,
		m.relayed, m.dropped, m.limitRejected, m.repairs, m.slowConsumers,
	)
	return m
}

func (m *Metrics) SetCounts(online, searching, pairs int) {
	if m == nil {
		return
	}
	m.online.Set(float64(online))
	m.searching.Set(float64(searching))
	m.pairs.Set(float64(pairs))
}

func (m *Metrics) MatchCreated() {
	if m == nil {
		return
	}
	m.matches.Inc()
}

func (m *Metrics) EventRelayed(eventType string) {
	if m == nil {
		return
	}
	m.relayed.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) LimitRejected() {
	if m == nil {
		return
	}
	m.limitRejected.Inc()
}

func (m *Metrics) Repaired(n int) {
	if m == nil {
		return
	}
	m.repairs.Add(float64(n))
}

func (m *Metrics) SlowConsumer() {
	if m == nil {
		return
	}
	m.slowConsumers.Inc()
}

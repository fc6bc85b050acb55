package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
)

type PrometheusCollector struct {
	// Gauges
	peersConnected prometheus.Gauge
	peersWaiting   prometheus.Gauge
	roomsActive    prometheus.Gauge

	// Counters
	pairsTotal       prometheus.Counter
	messagesRelayed  prometheus.Counter
	signalsRelayed   *prometheus.CounterVec
	disconnectsTotal *prometheus.CounterVec

	// Histograms
	sessionDuration prometheus.Histogram
	searchDuration  prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		peersConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "droulette_peers_connected",
			Help: "Number of websocket connections currently open",
		}),

		peersWaiting: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "droulette_peers_waiting",
			Help: "Number of peers in the matchmaking pool",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "droulette_rooms_active",
			Help: "Number of active rooms",
		}),

		pairsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "droulette_pairs_total",
			Help: "Total number of rooms created",
		}),

		messagesRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "droulette_messages_relayed_total",
			Help: "Total number of chat messages relayed between peers",
		}),

		signalsRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "droulette_signals_relayed_total",
			Help: "Total number of negotiation messages relayed, by kind",
		}, []string{"kind"}),

		disconnectsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "droulette_disconnects_total",
			Help: "Total number of room dissolutions, by reason",
		}, []string{"reason"}),

		sessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "droulette_session_duration_seconds",
			Help:    "Lifetime of rooms from creation to dissolution",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		searchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "droulette_search_duration_seconds",
			Help:    "Time peers spend waiting before being paired",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}
}

func (p *PrometheusCollector) RecordPeerConnected() {
	p.peersConnected.Inc()
}

func (p *PrometheusCollector) RecordPeerDisconnected() {
	p.peersConnected.Dec()
}

func (p *PrometheusCollector) SetWaiting(count int) {
	p.peersWaiting.Set(float64(count))
}

func (p *PrometheusCollector) RecordPair(waited time.Duration) {
	p.pairsTotal.Inc()
	p.roomsActive.Inc()
	p.searchDuration.Observe(waited.Seconds())
}

func (p *PrometheusCollector) RecordRoomEnded(reason domain.DisconnectReason, lifetime time.Duration) {
	p.roomsActive.Dec()
	p.disconnectsTotal.WithLabelValues(string(reason)).Inc()
	p.sessionDuration.Observe(lifetime.Seconds())
}

func (p *PrometheusCollector) RecordMessageRelayed() {
	p.messagesRelayed.Inc()
}

func (p *PrometheusCollector) RecordSignalRelayed(kind string) {
	p.signalsRelayed.WithLabelValues(kind).Inc()
}

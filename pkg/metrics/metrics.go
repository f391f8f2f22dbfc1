package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usdc_bridge_lifecycle_transitions_total",
			Help: "Total number of bridge lifecycle transitions by target phase",
		}, []string{"phase"})

	preflightRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usdc_bridge_preflight_rejections_total",
			Help: "Total number of bridge requests rejected before any transaction, by reason",
		}, []string{"reason"})

	signalsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usdc_bridge_signals_emitted_total",
			Help: "Total number of lifecycle signals emitted by kind",
		}, []string{"kind"})

	listenerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usdc_bridge_listener_panics_total",
			Help: "Total number of recovered notification listener panics",
		})

	balanceRefreshErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usdc_bridge_balance_refresh_errors_total",
			Help: "Total number of failed balance refreshes",
		})

	chainRebinds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usdc_bridge_chain_rebinds_total",
			Help: "Total number of contract set rebinds by outcome",
		}, []string{"outcome"})

	deliveryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "usdc_bridge_delivery_latency_seconds",
			Help:    "Time from source receipt to observed destination delivery",
			Buckets: []float64{30, 60, 120, 300, 600, 1200, 2400, 3600},
		})
)

func RecordTransition(phase string) {
	lifecycleTransitions.WithLabelValues(phase).Inc()
}

func RecordPreflightRejection(reason string) {
	preflightRejections.WithLabelValues(reason).Inc()
}

func RecordSignal(kind string) {
	signalsEmitted.WithLabelValues(kind).Inc()
}

func RecordListenerPanic() {
	listenerPanics.Inc()
}

func RecordBalanceRefreshError() {
	balanceRefreshErrors.Inc()
}

// RecordRebind counts a rebind; outcome is "bound", "unsupported" or "error"
func RecordRebind(outcome string) {
	chainRebinds.WithLabelValues(outcome).Inc()
}

func ObserveDeliveryLatency(d time.Duration) {
	deliveryLatency.Observe(d.Seconds())
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

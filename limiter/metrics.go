/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import "github.com/prometheus/client_golang/prometheus"

// UnblockMode is a way a blocked queue is told that it may resume delivering.
type UnblockMode string

// Unblock modes.
const (
	// UnblockModeConfirmed means that the queue was asked to resume and confirmed it.
	UnblockModeConfirmed UnblockMode = "confirmed"
	// UnblockModeNotify means that the queue was notified without waiting for a reply.
	UnblockModeNotify UnblockMode = "notify"
)

// MetricsCollector represents a collector of metrics to analyze how the prefetch limiter is used.
type MetricsCollector interface {
	// SetPrefetchCount sets the current prefetch limit (0 means unlimited).
	SetPrefetchCount(int)

	// SetVolume sets the number of unacknowledged messages.
	SetVolume(int)

	// SetQueues sets the number of registered and blocked queues.
	SetQueues(registered, blocked int)

	// IncRefusals increments the number of refused requests for sending.
	IncRefusals()

	// AddUnblocks increments the number of unblocked queues.
	AddUnblocks(mode UnblockMode, n int)

	// IncDeclines increments the number of declined (or failed) unblock requests.
	IncDeclines()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// If it's not empty, PrometheusMetrics.MustCurryWith must be called with the same labels
	// before the collector is passed to the limiter.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for the prefetch limiter.
type PrometheusMetrics struct {
	PrefetchCount *prometheus.GaugeVec
	Volume        *prometheus.GaugeVec
	Queues        *prometheus.GaugeVec
	BlockedQueues *prometheus.GaugeVec
	RefusalsTotal *prometheus.CounterVec
	UnblocksTotal *prometheus.CounterVec
	DeclinesTotal *prometheus.CounterVec
}

const unblockModeLabel = "mode"

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	newGauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: opts.ConstLabels,
		}, opts.CurriedLabelNames)
	}
	newCounter := func(name, help string, labelNames ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: opts.ConstLabels,
		}, append(append([]string{}, opts.CurriedLabelNames...), labelNames...))
	}

	return &PrometheusMetrics{
		PrefetchCount: newGauge("prefetch_limiter_prefetch_count", "Current prefetch limit (0 means unlimited)."),
		Volume:        newGauge("prefetch_limiter_volume", "Number of unacknowledged messages."),
		Queues:        newGauge("prefetch_limiter_queues", "Number of registered queues."),
		BlockedQueues: newGauge("prefetch_limiter_blocked_queues", "Number of blocked queues."),
		RefusalsTotal: newCounter("prefetch_limiter_refusals_total", "Number of refused requests for sending."),
		UnblocksTotal: newCounter("prefetch_limiter_unblocks_total", "Number of unblocked queues.", unblockModeLabel),
		DeclinesTotal: newCounter("prefetch_limiter_declines_total", "Number of declined or failed unblock requests."),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		PrefetchCount: pm.PrefetchCount.MustCurryWith(labels),
		Volume:        pm.Volume.MustCurryWith(labels),
		Queues:        pm.Queues.MustCurryWith(labels),
		BlockedQueues: pm.BlockedQueues.MustCurryWith(labels),
		RefusalsTotal: pm.RefusalsTotal.MustCurryWith(labels),
		UnblocksTotal: pm.UnblocksTotal.MustCurryWith(labels),
		DeclinesTotal: pm.DeclinesTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.PrefetchCount,
		pm.Volume,
		pm.Queues,
		pm.BlockedQueues,
		pm.RefusalsTotal,
		pm.UnblocksTotal,
		pm.DeclinesTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.PrefetchCount)
	prometheus.Unregister(pm.Volume)
	prometheus.Unregister(pm.Queues)
	prometheus.Unregister(pm.BlockedQueues)
	prometheus.Unregister(pm.RefusalsTotal)
	prometheus.Unregister(pm.UnblocksTotal)
	prometheus.Unregister(pm.DeclinesTotal)
}

// SetPrefetchCount implements MetricsCollector interface.
func (pm *PrometheusMetrics) SetPrefetchCount(n int) {
	pm.PrefetchCount.With(nil).Set(float64(n))
}

// SetVolume implements MetricsCollector interface.
func (pm *PrometheusMetrics) SetVolume(n int) {
	pm.Volume.With(nil).Set(float64(n))
}

// SetQueues implements MetricsCollector interface.
func (pm *PrometheusMetrics) SetQueues(registered, blocked int) {
	pm.Queues.With(nil).Set(float64(registered))
	pm.BlockedQueues.With(nil).Set(float64(blocked))
}

// IncRefusals implements MetricsCollector interface.
func (pm *PrometheusMetrics) IncRefusals() {
	pm.RefusalsTotal.With(nil).Inc()
}

// AddUnblocks implements MetricsCollector interface.
func (pm *PrometheusMetrics) AddUnblocks(mode UnblockMode, n int) {
	pm.UnblocksTotal.With(prometheus.Labels{unblockModeLabel: string(mode)}).Add(float64(n))
}

// IncDeclines implements MetricsCollector interface.
func (pm *PrometheusMetrics) IncDeclines() {
	pm.DeclinesTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetPrefetchCount(int)         {}
func (disabledMetrics) SetVolume(int)                {}
func (disabledMetrics) SetQueues(int, int)           {}
func (disabledMetrics) IncRefusals()                 {}
func (disabledMetrics) AddUnblocks(UnblockMode, int) {}
func (disabledMetrics) IncDeclines()                 {}

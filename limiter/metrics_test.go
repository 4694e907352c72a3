/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-prefetch/testutil"
)

func TestPrometheusMetrics(t *testing.T) {
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{
		Namespace:         "broker",
		CurriedLabelNames: []string{"channel"},
	})
	collector := metrics.MustCurryWith(prometheus.Labels{"channel": "ch1"})

	collector.SetPrefetchCount(10)
	collector.SetVolume(4)
	collector.SetQueues(3, 2)
	collector.IncRefusals()
	collector.IncRefusals()
	collector.AddUnblocks(UnblockModeConfirmed, 1)
	collector.AddUnblocks(UnblockModeNotify, 2)
	collector.IncDeclines()

	testutil.RequireGaugeValue(t, metrics.PrefetchCount.WithLabelValues("ch1"), 10)
	testutil.RequireGaugeValue(t, metrics.Volume.WithLabelValues("ch1"), 4)
	testutil.RequireGaugeValue(t, metrics.Queues.WithLabelValues("ch1"), 3)
	testutil.RequireGaugeValue(t, metrics.BlockedQueues.WithLabelValues("ch1"), 2)
	testutil.RequireCounterValue(t, metrics.RefusalsTotal.WithLabelValues("ch1"), 2)
	testutil.RequireCounterValue(t, metrics.UnblocksTotal.WithLabelValues("ch1", string(UnblockModeConfirmed)), 1)
	testutil.RequireCounterValue(t, metrics.UnblocksTotal.WithLabelValues("ch1", string(UnblockModeNotify)), 2)
	testutil.RequireCounterValue(t, metrics.DeclinesTotal.WithLabelValues("ch1"), 1)
}

func TestPrometheusMetrics_Register(t *testing.T) {
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{Namespace: "register_test"})
	require.NotPanics(t, metrics.MustRegister)
	require.Panics(t, metrics.MustRegister)
	metrics.Unregister()
	require.NotPanics(t, metrics.MustRegister)
	metrics.Unregister()
}

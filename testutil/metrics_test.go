/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRequireCounterValue(t *testing.T) {
	refusals := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "refusals_total"}, []string{"channel"})
	refusals.WithLabelValues("ch1").Add(3)

	mockT := &MockT{}
	RequireCounterValue(mockT, refusals.WithLabelValues("ch1"), 2)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireCounterValue(mockT, refusals.WithLabelValues("ch1"), 3)
	require.False(t, mockT.Failed)
}

func TestRequireGaugeValue(t *testing.T) {
	volume := prometheus.NewGauge(prometheus.GaugeOpts{Name: "volume"})
	volume.Set(7)

	mockT := &MockT{}
	RequireGaugeValue(mockT, volume, 8)
	require.True(t, mockT.Failed)

	mockT = &MockT{}
	RequireGaugeValue(mockT, volume, 7)
	require.False(t, mockT.Failed)
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-prefetch/limiter"
	"github.com/acronis/go-prefetch/log"
	"github.com/acronis/go-prefetch/testutil"
)

const waitTimeout = time.Second * 5

func startUnit(t *testing.T, unit *LimiterUnit) (fatalErr chan error, startDone chan struct{}) {
	t.Helper()
	fatalErr = make(chan error, 1)
	startDone = make(chan struct{})
	go func() {
		defer close(startDone)
		unit.Start(fatalErr)
	}()
	require.Eventually(t, func() bool { return unit.Limiter() != nil }, waitTimeout, time.Millisecond*10)
	return fatalErr, startDone
}

func requireClosed(t *testing.T, c <-chan struct{}) {
	t.Helper()
	select {
	case <-c:
	case <-time.After(waitTimeout):
		t.Fatal("channel is not closed")
	}
}

func TestLimiterUnit(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		unit := NewLimiterUnitWithOpts("ch1", log.NewDisabledLogger(), LimiterUnitOpts{
			LimiterOpts: limiter.Opts{InitialPrefetchCount: 5},
		})
		fatalErr, startDone := startUnit(t, unit)
		lim := unit.Limiter()
		require.True(t, lim.IsEnabled())

		require.NoError(t, unit.Stop(true))
		requireClosed(t, startDone)
		testutil.RequireNoErrorInChannel(t, fatalErr)
		require.False(t, lim.IsEnabled())
		require.Nil(t, unit.Limiter())
	})

	t.Run("limiter fault is fatal", func(t *testing.T) {
		unit := NewLimiterUnit("ch1", log.NewDisabledLogger())
		fatalErr, startDone := startUnit(t, unit)

		unknown := limiter.QueueFuncs{QueueName: "unknown"}
		require.True(t, unit.Limiter().CanSend(unknown, true, 1))
		testutil.RequireErrorInChannel(t, fatalErr, limiter.ErrUnknownQueue, waitTimeout)
		requireClosed(t, startDone)
		require.NoError(t, unit.Stop(false))
	})

	t.Run("stop before start", func(t *testing.T) {
		unit := NewLimiterUnit("ch1", log.NewDisabledLogger())
		require.NoError(t, unit.Stop(true))

		fatalErr := make(chan error, 1)
		unit.Start(fatalErr)
		testutil.RequireNoErrorInChannel(t, fatalErr)
		require.Nil(t, unit.Limiter())
		require.True(t, unit.Limiter().CanSend(limiter.QueueFuncs{QueueName: "q1"}, true, 1))
	})

	t.Run("metrics", func(t *testing.T) {
		metrics := limiter.NewPrometheusMetricsWithOpts(limiter.PrometheusMetricsOpts{Namespace: "unit_test"})
		unit := NewLimiterUnitWithOpts("ch1", log.NewDisabledLogger(), LimiterUnitOpts{Metrics: metrics})
		unit.MustRegisterMetrics()
		defer unit.UnregisterMetrics()

		_, startDone := startUnit(t, unit)
		unit.Limiter().SetLimit(3)
		require.Eventually(t, func() bool {
			return unit.Limiter().Limit(context.Background()) == 3
		}, waitTimeout, time.Millisecond*10)
		testutil.RequireGaugeValue(t, metrics.PrefetchCount.With(nil), 3)

		require.NoError(t, unit.Stop(true))
		requireClosed(t, startDone)
	})
}

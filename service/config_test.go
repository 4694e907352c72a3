/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-prefetch/config"
	"github.com/acronis/go-prefetch/limiter"
	"github.com/acronis/go-prefetch/log"
	"github.com/acronis/go-prefetch/testutil"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig(bytes.NewBufferString(`{}`), config.DataTypeJSON, "unit_test")
		require.NoError(t, err)
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("invalid limiter section", func(t *testing.T) {
		_, err := LoadConfig(bytes.NewBufferString("prefetchLimiter:\n  mailboxSize: 0\n"), config.DataTypeYAML, "unit_test")
		require.ErrorContains(t, err, "prefetchLimiter.mailboxSize")
	})
}

func TestNewLimiterUnitFromConfig(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "limiter.log")
	cfgData := `
log:
  level: debug
  output: file
  file:
    path: ` + logPath + `
prefetchLimiter:
  initialPrefetchCount: 2
  confirmTimeout: 100ms
`
	cfg, err := LoadConfig(bytes.NewBufferString(cfgData), config.DataTypeYAML, "unit_test")
	require.NoError(t, err)
	require.Equal(t, log.LevelDebug, cfg.Log.Level)
	require.Equal(t, config.TimeDuration(time.Millisecond*100), cfg.Limiter.ConfirmTimeout)

	unit := NewLimiterUnitFromConfig("ch1", cfg, LimiterUnitOpts{})
	fatalErr, startDone := startUnit(t, unit)
	require.Equal(t, 2, unit.Limiter().Limit(context.Background()))

	require.NoError(t, unit.Stop(true))
	requireClosed(t, startDone)
	testutil.RequireNoErrorInChannel(t, fatalErr)
	require.NoError(t, unit.Stop(true))

	logData, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(logData), "prefetch limiter started")
	require.Contains(t, string(logData), "prefetch limiter stopped")
	require.Contains(t, string(logData), `"channel":"ch1"`)
}

func TestNewLimiterUnitFromConfig_KeepsCollector(t *testing.T) {
	metrics := limiter.NewPrometheusMetrics()
	cfg := NewDefaultConfig()
	cfg.Log.Level = log.LevelError
	cfg.Log.Output = log.OutputStderr
	cfg.Limiter.InitialPrefetchCount = 4

	unit := NewLimiterUnitFromConfig("ch1", cfg, LimiterUnitOpts{Metrics: metrics})
	_, startDone := startUnit(t, unit)
	require.Equal(t, 4, unit.Limiter().Limit(context.Background()))
	testutil.RequireGaugeValue(t, metrics.PrefetchCount.With(nil), 4)

	require.NoError(t, unit.Stop(true))
	requireClosed(t, startDone)
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testLimiterConfig struct {
	MailboxSize int
	Timeout     time.Duration
}

func (c *testLimiterConfig) KeyPrefix() string {
	return "limiter"
}

func (c *testLimiterConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("mailboxSize", 16)
	dp.SetDefault("timeout", "1s")
}

func (c *testLimiterConfig) Set(dp DataProvider) error {
	var err error
	if c.MailboxSize, err = dp.GetInt("mailboxSize"); err != nil {
		return err
	}
	if c.Timeout, err = dp.GetDuration("timeout"); err != nil {
		return err
	}
	return nil
}

type testChannelConfig struct {
	Name string
}

func (c *testChannelConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("channel.name", "default")
}

func (c *testChannelConfig) Set(dp DataProvider) error {
	var err error
	c.Name, err = dp.GetString("channel.name")
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults are used", func(t *testing.T) {
		limiterCfg, channelCfg := &testLimiterConfig{}, &testChannelConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, limiterCfg, channelCfg)
		require.NoError(t, err)
		require.Equal(t, 16, limiterCfg.MailboxSize)
		require.Equal(t, time.Second, limiterCfg.Timeout)
		require.Equal(t, "default", channelCfg.Name)
	})

	t.Run("values are read with key prefix", func(t *testing.T) {
		cfgData := `
limiter:
  mailboxSize: 64
  timeout: 250ms
channel:
  name: amq.ctag-1
`
		limiterCfg, channelCfg := &testLimiterConfig{}, &testChannelConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), DataTypeYAML, limiterCfg, channelCfg)
		require.NoError(t, err)
		require.Equal(t, 64, limiterCfg.MailboxSize)
		require.Equal(t, 250*time.Millisecond, limiterCfg.Timeout)
		require.Equal(t, "amq.ctag-1", channelCfg.Name)
	})

	t.Run("invalid value", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"limiter":{"mailboxSize":"many"}}`), DataTypeJSON, &testLimiterConfig{})
		require.ErrorContains(t, err, "limiter.mailboxSize")
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("limiter:\n  mailboxSize: 8\n"), 0o600))

	cfg := &testLimiterConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(path, DataTypeYAML, cfg))
	require.Equal(t, 8, cfg.MailboxSize)

	err := NewLoader(NewViperAdapter()).LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"), DataTypeYAML, cfg)
	require.Error(t, err)
}

func TestNewDefaultLoader_EnvVars(t *testing.T) {
	t.Setenv("QOS_LIMITER_MAILBOXSIZE", "128")

	cfg := &testLimiterConfig{}
	require.NoError(t, NewDefaultLoader("qos").LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, cfg))
	require.Equal(t, 128, cfg.MailboxSize)
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"io"

	"github.com/acronis/go-prefetch/config"
	"github.com/acronis/go-prefetch/limiter"
	"github.com/acronis/go-prefetch/log"
)

// Config is a configuration of a LimiterUnit: logging and the limiter itself.
type Config struct {
	Log     *log.Config
	Limiter *limiter.Config
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{Log: log.NewDefaultConfig(), Limiter: limiter.NewDefaultConfig()}
}

// LoadConfig reads the configuration (with "log" and "prefetchLimiter" sections) from the reader.
// Environment variables with the given prefix override the values.
func LoadConfig(reader io.Reader, dataType config.DataType, envVarsPrefix string) (*Config, error) {
	cfg := &Config{Log: &log.Config{}, Limiter: limiter.NewConfig()}
	if err := config.NewDefaultLoader(envVarsPrefix).LoadFromReader(reader, dataType, cfg.Log, cfg.Limiter); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLimiterUnitFromConfig creates a LimiterUnit with a logger and limiter options built from the configuration.
// opts.LimiterOpts fields that are not configurable (random source, metrics collector) are kept.
// The logger is flushed and closed when the unit is stopped.
func NewLimiterUnitFromConfig(channel limiter.ChannelID, cfg *Config, opts LimiterUnitOpts) *LimiterUnit {
	logger, closeLogger := log.NewLogger(cfg.Log)
	limOpts := cfg.Limiter.Opts()
	limOpts.Rand = opts.LimiterOpts.Rand
	limOpts.MetricsCollector = opts.LimiterOpts.MetricsCollector
	opts.LimiterOpts = limOpts

	u := NewLimiterUnitWithOpts(channel, logger, opts) // installs opts.Metrics as the collector
	u.closeLogger = closeLogger
	return u
}

/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package limiter

import (
	"fmt"
	"time"

	"github.com/acronis/go-prefetch/config"
)

const cfgDefaultKeyPrefix = "prefetchLimiter"

const (
	cfgKeyMailboxSize          = "mailboxSize"
	cfgKeyCanSendTimeout       = "canSendTimeout"
	cfgKeyConfirmTimeout       = "confirmTimeout"
	cfgKeyInitialPrefetchCount = "initialPrefetchCount"
)

// Default values.
const (
	DefaultMailboxSize    = 1024
	DefaultCanSendTimeout = time.Second * 5
	DefaultConfirmTimeout = time.Second
)

// Config represents a set of configuration parameters for the prefetch limiter.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// MailboxSize is a capacity of the limiter's request queue.
	// Asynchronous calls block the caller only while the mailbox is full.
	MailboxSize int `mapstructure:"mailboxSize" yaml:"mailboxSize" json:"mailboxSize"`

	// CanSendTimeout bounds the time CanSend waits for the limiter's answer.
	// When it's exceeded, sending is permitted.
	CanSendTimeout config.TimeDuration `mapstructure:"canSendTimeout" yaml:"canSendTimeout" json:"canSendTimeout"`

	// ConfirmTimeout bounds the time the limiter waits for a queue to confirm an unblock request.
	// When it's exceeded, the request is treated as declined.
	ConfirmTimeout config.TimeDuration `mapstructure:"confirmTimeout" yaml:"confirmTimeout" json:"confirmTimeout"`

	// InitialPrefetchCount is a prefetch limit applied right after the limiter is started (0 means unlimited).
	InitialPrefetchCount int `mapstructure:"initialPrefetchCount" yaml:"initialPrefetchCount" json:"initialPrefetchCount"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.MailboxSize = DefaultMailboxSize
	cfg.CanSendTimeout = config.TimeDuration(DefaultCanSendTimeout)
	cfg.ConfirmTimeout = config.TimeDuration(DefaultConfirmTimeout)
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the limiter in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMailboxSize, DefaultMailboxSize)
	dp.SetDefault(cfgKeyCanSendTimeout, DefaultCanSendTimeout)
	dp.SetDefault(cfgKeyConfirmTimeout, DefaultConfirmTimeout)
	dp.SetDefault(cfgKeyInitialPrefetchCount, 0)
}

// Set sets limiter configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.MailboxSize, err = dp.GetInt(cfgKeyMailboxSize); err != nil {
		return err
	}
	if c.MailboxSize < 1 {
		return dp.WrapKeyErr(cfgKeyMailboxSize, fmt.Errorf("should be >= 1"))
	}

	var dur time.Duration
	if dur, err = dp.GetDuration(cfgKeyCanSendTimeout); err != nil {
		return err
	}
	if dur <= 0 {
		return dp.WrapKeyErr(cfgKeyCanSendTimeout, fmt.Errorf("should be positive"))
	}
	c.CanSendTimeout = config.TimeDuration(dur)

	if dur, err = dp.GetDuration(cfgKeyConfirmTimeout); err != nil {
		return err
	}
	if dur <= 0 {
		return dp.WrapKeyErr(cfgKeyConfirmTimeout, fmt.Errorf("should be positive"))
	}
	c.ConfirmTimeout = config.TimeDuration(dur)

	if c.InitialPrefetchCount, err = dp.GetInt(cfgKeyInitialPrefetchCount); err != nil {
		return err
	}
	if c.InitialPrefetchCount < 0 {
		return dp.WrapKeyErr(cfgKeyInitialPrefetchCount, fmt.Errorf("should be >= 0"))
	}

	return nil
}

// Opts converts the configuration into options for StartWithOpts.
func (c *Config) Opts() Opts {
	return Opts{
		MailboxSize:    c.MailboxSize,
		CanSendTimeout: time.Duration(c.CanSendTimeout),
		ConfirmTimeout: time.Duration(c.ConfirmTimeout),

		InitialPrefetchCount: c.InitialPrefetchCount,
	}
}

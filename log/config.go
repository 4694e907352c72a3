/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"strings"

	"github.com/acronis/go-prefetch/config"
)

// Level is a minimal level of logged entries.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format is an encoding of logged entries.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output is a destination of logged entries.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// Defaults of the file rotation.
const (
	DefaultFileRotationMaxSizeBytes = 250 * 1024 * 1024
	DefaultFileRotationMaxBackups   = 10
)

const (
	minRotationMaxSize    = config.ByteSize(1024 * 1024)
	minRotationMaxBackups = 1
)

// Config is a configuration of the logger created by NewLogger. It's read from the "log" section.
type Config struct {
	Level     Level            `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format           `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output           `mapstructure:"output" yaml:"output" json:"output"`
	NoColor   bool             `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`
	AddCaller bool             `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
	File      FileOutputConfig `mapstructure:"file" yaml:"file" json:"file"`
}

// FileOutputConfig is used when Output is OutputFile.
type FileOutputConfig struct {
	Path     string             `mapstructure:"path" yaml:"path" json:"path"`
	Rotation FileRotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
}

// FileRotationConfig controls rotation of the log file.
type FileRotationConfig struct {
	Compress   bool            `mapstructure:"compress" yaml:"compress" json:"compress"`
	MaxSize    config.ByteSize `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups int             `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays int             `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewDefaultConfig creates a Config that writes JSON entries of info level and above to stdout.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: OutputStdout,
		File: FileOutputConfig{Rotation: FileRotationConfig{
			MaxSize:    DefaultFileRotationMaxSizeBytes,
			MaxBackups: DefaultFileRotationMaxBackups,
		}},
	}
}

// KeyPrefix implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return "log"
}

// SetProviderDefaults implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	defaults := NewDefaultConfig()
	dp.SetDefault("level", string(defaults.Level))
	dp.SetDefault("format", string(defaults.Format))
	dp.SetDefault("output", string(defaults.Output))
	dp.SetDefault("file.rotation.maxSize", uint64(defaults.File.Rotation.MaxSize))
	dp.SetDefault("file.rotation.maxBackups", defaults.File.Rotation.MaxBackups)
}

// Set implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	level, err := getEnum(dp, "level", LevelError, LevelWarn, LevelInfo, LevelDebug)
	if err != nil {
		return err
	}
	format, err := getEnum(dp, "format", FormatJSON, FormatText)
	if err != nil {
		return err
	}
	output, err := getEnum(dp, "output", OutputStdout, OutputStderr, OutputFile)
	if err != nil {
		return err
	}
	c.Level, c.Format, c.Output = level, format, output

	if c.NoColor, err = dp.GetBool("nocolor"); err != nil {
		return err
	}
	if c.AddCaller, err = dp.GetBool("addCaller"); err != nil {
		return err
	}
	if err = c.File.set(config.NewKeyPrefixedDataProvider(dp, "file")); err != nil {
		return err
	}
	if c.Output == OutputFile && c.File.Path == "" {
		return dp.WrapKeyErr("file.path", fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}
	return nil
}

func (fc *FileOutputConfig) set(dp config.DataProvider) error {
	var err error
	if fc.Path, err = dp.GetString("path"); err != nil {
		return err
	}
	return fc.Rotation.set(config.NewKeyPrefixedDataProvider(dp, "rotation"))
}

func (rc *FileRotationConfig) set(dp config.DataProvider) error {
	var err error
	if rc.Compress, err = dp.GetBool("compress"); err != nil {
		return err
	}

	maxSize, err := dp.GetSizeInBytes("maxSize")
	if err != nil {
		return err
	}
	if rc.MaxSize = config.ByteSize(maxSize); rc.MaxSize < minRotationMaxSize {
		return dp.WrapKeyErr("maxSize", fmt.Errorf("should be >= %s", minRotationMaxSize))
	}

	if rc.MaxBackups, err = dp.GetInt("maxBackups"); err != nil {
		return err
	}
	if rc.MaxBackups < minRotationMaxBackups {
		return dp.WrapKeyErr("maxBackups", fmt.Errorf("should be >= %d", minRotationMaxBackups))
	}

	if rc.MaxAgeDays, err = dp.GetInt("maxAgeDays"); err != nil {
		return err
	}
	if rc.MaxAgeDays < 0 {
		return dp.WrapKeyErr("maxAgeDays", fmt.Errorf("should be >= 0"))
	}
	return nil
}

// getEnum reads a case-insensitive value that must be one of the allowed ones.
func getEnum[T ~string](dp config.DataProvider, key string, allowed ...T) (T, error) {
	set := make([]string, len(allowed))
	for i := range allowed {
		set[i] = string(allowed[i])
	}
	val, err := dp.GetStringFromSet(key, set, true)
	if err != nil {
		return "", err
	}
	return T(strings.ToLower(val)), nil
}

// Package config loads engine settings from iris.yaml and IRIS_* environment
// variables and turns them into iris options.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/iris"
)

// FileName is the config file looked up when no path is given.
const FileName = "iris.yaml"

// EnvPrefix prefixes environment overrides, e.g. IRIS_WIDTH.
const EnvPrefix = "IRIS"

// Config holds engine settings.
type Config struct {
	Backend         string     `mapstructure:"backend" yaml:"backend"`
	Width           uint32     `mapstructure:"width" yaml:"width"`
	Height          uint32     `mapstructure:"height" yaml:"height"`
	ClearColor      [4]float64 `mapstructure:"clear_color" yaml:"clear_color,flow"`
	FrameTimeout    string     `mapstructure:"frame_timeout" yaml:"frame_timeout"`
	DeviceLabel     string     `mapstructure:"device_label" yaml:"device_label"`
	CrashLog        string     `mapstructure:"crash_log" yaml:"crash_log"`
	MaxFrameLatency uint32     `mapstructure:"max_frame_latency" yaml:"max_frame_latency"`
	LogLevel        string     `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	c := iris.DefaultClearColor
	return &Config{
		Width:           800,
		Height:          600,
		ClearColor:      [4]float64{c.R, c.G, c.B, c.A},
		FrameTimeout:    iris.DefaultFrameTimeout.String(),
		DeviceLabel:     "IrisDevice",
		CrashLog:        iris.DefaultCrashLog,
		MaxFrameLatency: 2,
		LogLevel:        "warn",
	}
}

// Load reads cfgFile, or iris.yaml from the working directory when cfgFile
// is empty. A missing default file is not an error. IRIS_* environment
// variables override file values.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can override
// keys that are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("width", cfg.Width)
	v.SetDefault("height", cfg.Height)
	v.SetDefault("clear_color", cfg.ClearColor[:])
	v.SetDefault("frame_timeout", cfg.FrameTimeout)
	v.SetDefault("device_label", cfg.DeviceLabel)
	v.SetDefault("crash_log", cfg.CrashLog)
	v.SetDefault("max_frame_latency", cfg.MaxFrameLatency)
	v.SetDefault("log_level", cfg.LogLevel)
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.backend(); err != nil {
		return err
	}
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("config: width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	if _, err := c.timeout(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	for i, ch := range c.ClearColor {
		if ch < 0 || ch > 1 {
			return fmt.Errorf("config: clear_color[%d] = %v out of [0, 1]", i, ch)
		}
	}
	return nil
}

func (c *Config) backend() (gputypes.Backend, error) {
	switch strings.ToLower(c.Backend) {
	case "":
		return 0, nil
	case "dx12", "d3d12":
		return gputypes.BackendDX12, nil
	case "vulkan", "vk":
		return gputypes.BackendVulkan, nil
	default:
		return 0, fmt.Errorf("config: unknown backend %q", c.Backend)
	}
}

func (c *Config) timeout() (time.Duration, error) {
	if c.FrameTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.FrameTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: frame_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: frame_timeout must not be negative, got %v", d)
	}
	return d, nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// Options converts the settings into engine options.
func (c *Config) Options() ([]iris.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	backend, _ := c.backend()
	timeout, _ := c.timeout()

	opts := []iris.Option{
		iris.WithClearColor(gputypes.Color{
			R: c.ClearColor[0],
			G: c.ClearColor[1],
			B: c.ClearColor[2],
			A: c.ClearColor[3],
		}),
		iris.WithFrameTimeout(timeout),
		iris.WithDeviceLabel(c.DeviceLabel),
		iris.WithMaxFrameLatency(c.MaxFrameLatency),
	}
	if backend != 0 {
		opts = append(opts, iris.WithBackend(backend))
	}
	if c.CrashLog != "" {
		opts = append(opts, iris.WithDiagnostics(iris.FileDiagnostics{Path: c.CrashLog}))
	}
	return opts, nil
}

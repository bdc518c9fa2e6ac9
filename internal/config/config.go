// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckport Contributors

package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	deckerr "github.com/deckport/deckport/pkg/errors"
	"github.com/spf13/viper"
)

// Sentinel values for the renderer selection key. Any other value names a
// provider explicitly; values that match no registered provider are treated
// the same as RendererAuto at selection time.
const (
	RendererAuto = "auto"
	RendererNone = "none"
)

// Config is the top-level deckport configuration.
type Config struct {
	Renderer          string        `mapstructure:"renderer"`
	Allow             []string      `mapstructure:"allow"`
	Deny              []string      `mapstructure:"deny"`
	AllowNetwork      bool          `mapstructure:"allow_network"`
	AllowStubFallback bool          `mapstructure:"allow_stub_fallback"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	RenderTimeout     time.Duration `mapstructure:"render_timeout"`
	Retry             RetryConfig   `mapstructure:"retry"`
	Health            HealthConfig  `mapstructure:"health"`
	PluginsDir        string        `mapstructure:"plugins_dir"`

	MSOffice   MSOfficeConfig   `mapstructure:"ms_office"`
	HTTPOffice HTTPOfficeConfig `mapstructure:"http_office"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// RetryConfig bounds automatic retries of transient render failures.
type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
}

// HealthConfig controls the per-provider circuit breaker.
type HealthConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// MSOfficeConfig configures the local PowerPoint automation adapter.
type MSOfficeConfig struct {
	// PowerShell overrides the bridge binary used to drive the COM
	// automation surface. Empty means the platform default.
	PowerShell string `mapstructure:"powershell"`
}

// HTTPOfficeConfig configures the remote conversion-service adapter.
type HTTPOfficeConfig struct {
	Endpoint     string            `mapstructure:"endpoint"`
	Mode         string            `mapstructure:"mode"`
	VerifyTLS    bool              `mapstructure:"verify_tls"`
	AllowPrivate bool              `mapstructure:"allow_private"`
	Headers      map[string]string `mapstructure:"headers"`
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers every default on v so flag/env/file overrides
// layer on top with the standard precedence.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("renderer", RendererAuto)
	v.SetDefault("allow_network", false)
	v.SetDefault("allow_stub_fallback", true)
	v.SetDefault("probe_timeout", 5*time.Second)
	v.SetDefault("render_timeout", 120*time.Second)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.base_delay", 500*time.Millisecond)
	v.SetDefault("health.failure_threshold", 3)
	v.SetDefault("health.cooldown", 30*time.Second)
	v.SetDefault("http_office.mode", "auto")
	v.SetDefault("http_office.verify_tls", true)
	v.SetDefault("http_office.allow_private", false)
	v.SetDefault("logging.level", "info")
}

// SetupEnv binds DECKPORT_-prefixed environment variables.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("DECKPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults only when path
// is empty) with environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, deckerr.Errorf(deckerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates a fully layered viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// problems found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if c.ProbeTimeout <= 0 {
		errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"config: probe_timeout must be positive, got %s", c.ProbeTimeout))
	}
	if c.RenderTimeout <= 0 {
		errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"config: render_timeout must be positive, got %s", c.RenderTimeout))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"config: retry.attempts must be at least 1, got %d", c.Retry.Attempts))
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"config: retry.base_delay must be positive, got %s", c.Retry.BaseDelay))
	}
	if c.Health.FailureThreshold < 1 {
		errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"config: health.failure_threshold must be at least 1, got %d", c.Health.FailureThreshold))
	}
	if c.Health.Cooldown <= 0 {
		errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"config: health.cooldown must be positive, got %s", c.Health.Cooldown))
	}

	validModes := map[string]bool{"auto": true, "stirling": true, "gotenberg": true}
	if !validModes[c.HTTPOffice.Mode] {
		errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"config: http_office.mode must be one of [auto, stirling, gotenberg], got %q", c.HTTPOffice.Mode))
	}

	if c.HTTPOffice.Endpoint != "" {
		u, err := url.Parse(c.HTTPOffice.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
				"config: http_office.endpoint must be an http(s) URL, got %q", c.HTTPOffice.Endpoint))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, deckerr.Errorf(deckerr.CodeConfigValidateInvalidValue,
			"config: logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}

	return errs
}

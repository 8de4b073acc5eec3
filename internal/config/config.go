// Package config loads runtime settings from GLONASS_* environment variables
// and an optional config file named by GLONASS_CONFIG. Invalid values are
// logged and replaced by their defaults; only an unusable auth setup is an
// error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Repin-Daniil/glonass-visualization/internal/asset"
	"github.com/Repin-Daniil/glonass-visualization/internal/auth"
	"github.com/Repin-Daniil/glonass-visualization/internal/session"
	"github.com/Repin-Daniil/glonass-visualization/internal/stream"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "GLONASS"

// Config is the complete runtime configuration.
type Config struct {
	HTTPAddr          string
	LogLevel          slog.Level
	TrustProxy        bool
	FrameInterval     time.Duration
	TelemetryInterval time.Duration // tick period of the headless scheduler
	RingSegments      int
	SphereBands       int
	TermLog           string

	Auth    auth.Config
	Session session.Config
	Stream  stream.Config
	Asset   asset.Config
}

// Load reads the environment and, when GLONASS_CONFIG is set, that file.
func Load(logger *slog.Logger) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		logger.Info("config file loaded", "path", v.ConfigFileUsed())
	}
	return FromViper(v, logger)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper, logger *slog.Logger) (Config, error) {
	r := reader{v: v, logger: logger}

	cfg := Config{
		HTTPAddr:          r.str("http_addr", ":8080"),
		LogLevel:          r.level("log_level", slog.LevelDebug),
		TrustProxy:        r.boolean("trust_proxy", false),
		FrameInterval:     time.Duration(r.integer("frame_interval_ms", 16, 1)) * time.Millisecond,
		TelemetryInterval: time.Duration(r.integer("telemetry_interval_ms", 100, 1)) * time.Millisecond,
		RingSegments:      r.integer("ring_segments", 200, 3),
		SphereBands:       r.integer("sphere_bands", 50, 2),
		TermLog:           r.str("term_log", ""),
	}

	var err error
	if cfg.Auth, err = r.auth(); err != nil {
		return cfg, err
	}

	cfg.Session = session.Config{
		MaxConcurrentPerIP: r.integer("session_max_concurrent", 4, 1),
		InputRate:          float64(r.integer("session_input_rate", 120, 1)),
		InputBurst:         r.integer("session_input_burst", 60, 1),
		KeepaliveInterval:  time.Duration(r.integer("session_keepalive_seconds", 30, 1)) * time.Second,
		FrameInterval:      cfg.FrameInterval,
		TrustProxy:         cfg.TrustProxy,
	}

	cfg.Stream = stream.Config{
		MaxConcurrentPerIP: r.integer("stream_max_concurrent", 10, 1),
		KeepaliveInterval:  time.Duration(r.integer("stream_keepalive_seconds", 30, 1)) * time.Second,
		TrustProxy:         cfg.TrustProxy,
	}

	cfg.Asset = asset.Config{
		EnableFetch: r.boolean("asset_enable_fetch", true),
		SourceURL:   r.str("asset_source_url", asset.DefaultSourceURL),
		CacheDir:    r.str("asset_cache_dir", "/tmp/glonass/assets"),
		MaxFiles:    r.integer("asset_max_files", 3, 1),
		Timeout:     time.Duration(r.integer("asset_timeout_seconds", 30, 1)) * time.Second,
	}

	logger.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"log_level", cfg.LogLevel.String(),
		"frame_interval_ms", cfg.FrameInterval.Milliseconds(),
		"telemetry_interval_ms", cfg.TelemetryInterval.Milliseconds(),
		"ring_segments", cfg.RingSegments,
		"sphere_bands", cfg.SphereBands,
		"session_max_concurrent", cfg.Session.MaxConcurrentPerIP,
		"stream_max_concurrent", cfg.Stream.MaxConcurrentPerIP,
		"asset_enable_fetch", cfg.Asset.EnableFetch,
		"asset_cache_dir", cfg.Asset.CacheDir,
		"auth_enabled", cfg.Auth.Enabled,
	)
	return cfg, nil
}

// reader reads single keys, warning and falling back on bad values.
type reader struct {
	v      *viper.Viper
	logger *slog.Logger
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

func (r reader) str(key, def string) string {
	if s := strings.TrimSpace(r.v.GetString(key)); s != "" {
		return s
	}
	return def
}

func (r reader) integer(key string, def, lo int) int {
	s := r.v.GetString(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < lo {
		r.logger.Warn("invalid "+envName(key)+" value, using default", "value", s, "default", def)
		return def
	}
	return n
}

func (r reader) boolean(key string, def bool) bool {
	s := r.v.GetString(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		r.logger.Warn("invalid "+envName(key)+" value, using default", "value", s, "default", def)
		return def
	}
	return b
}

func (r reader) level(key string, def slog.Level) slog.Level {
	s := r.v.GetString(key)
	if s == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		r.logger.Warn("invalid "+envName(key)+" value, using default", "value", s, "default", def.String())
		return def
	}
	return lvl
}

func (r reader) auth() (auth.Config, error) {
	cfg := auth.Config{}

	if s := r.v.GetString("auth_enabled"); s != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return cfg, errors.New(envName("auth_enabled") + " must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = r.v.GetString("auth_token")
		if cfg.Token == "" {
			return cfg, errors.New(envName("auth_token") + " is required when auth is enabled")
		}
		r.logger.Info("auth enabled")
	}
	return cfg, nil
}

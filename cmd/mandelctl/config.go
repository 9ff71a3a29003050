package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/mandelctl/internal/app"
	"github.com/danmuck/mandelctl/internal/protocol"
)

type fileConfig struct {
	Address              string `toml:"address"`
	ConnectTimeout       string `toml:"connect_timeout"`
	ConnectTimeoutMS     int64  `toml:"connect_timeout_ms"`
	HandshakeTimeout     string `toml:"handshake_timeout"`
	HandshakeTimeoutMS   int64  `toml:"handshake_timeout_ms"`
	ReadTimeout          string `toml:"read_timeout"`
	ReadTimeoutMS        int64  `toml:"read_timeout_ms"`
	WriteTimeout         string `toml:"write_timeout"`
	WriteTimeoutMS       int64  `toml:"write_timeout_ms"`
	PollInterval         string `toml:"poll_interval"`
	PollIntervalMS       int64  `toml:"poll_interval_ms"`
	MaxConnectAttempts   int    `toml:"max_connect_attempts"`
	OutputRetryInitial   string `toml:"output_retry_initial"`
	OutputRetryInitialMS int64  `toml:"output_retry_initial_ms"`
	OutputRetryMax       string `toml:"output_retry_max"`
	OutputRetryMaxMS     int64  `toml:"output_retry_max_ms"`
	CanvasWidth          int    `toml:"canvas_width"`
	CanvasHeight         int    `toml:"canvas_height"`
	MetricsAddr          string `toml:"metrics_addr"`

	Defaults defaultsConfig `toml:"defaults"`
}

type defaultsConfig struct {
	Iterations    uint32  `toml:"iterations"`
	Width         uint32  `toml:"width"`
	Height        uint32  `toml:"height"`
	Supersampling int     `toml:"supersampling"`
	CenterX       float64 `toml:"center_x"`
	CenterY       float64 `toml:"center_y"`
	Radius        float64 `toml:"radius"`
	ColorFunction string  `toml:"color_function"`
	ColorShift    int     `toml:"color_shift"`
	ColorScale    float64 `toml:"color_scale"`
}

// loadConfig applies the keys defined in path over base.
func loadConfig(path string, base app.Config) (app.Config, error) {
	cfg := base

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return app.Config{}, fmt.Errorf("load mandelctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return app.Config{}, fmt.Errorf("load mandelctl config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}

	durations := []struct {
		key   string
		text  string
		ms    int64
		field *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, raw.ConnectTimeoutMS, &cfg.Session.ConnectTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, raw.HandshakeTimeoutMS, &cfg.Session.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, raw.ReadTimeoutMS, &cfg.Session.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, raw.WriteTimeoutMS, &cfg.Session.WriteTimeout},
		{"poll_interval", raw.PollInterval, raw.PollIntervalMS, &cfg.Session.PollInterval},
		{"output_retry_initial", raw.OutputRetryInitial, raw.OutputRetryInitialMS, &cfg.Session.OutputRetry.InitialDelay},
		{"output_retry_max", raw.OutputRetryMax, raw.OutputRetryMaxMS, &cfg.Session.OutputRetry.MaxDelay},
	}
	for _, d := range durations {
		if meta.IsDefined(d.key) {
			v, err := time.ParseDuration(strings.TrimSpace(d.text))
			if err != nil {
				return app.Config{}, fmt.Errorf("parse %s: %w", d.key, err)
			}
			*d.field = v
		}
		if meta.IsDefined(d.key + "_ms") {
			*d.field = time.Duration(d.ms) * time.Millisecond
		}
	}

	if meta.IsDefined("max_connect_attempts") {
		cfg.Session.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("canvas_width") {
		cfg.CanvasWidth = raw.CanvasWidth
	}
	if meta.IsDefined("canvas_height") {
		cfg.CanvasHeight = raw.CanvasHeight
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if err := applyDefaults(meta, raw.Defaults, &cfg.Defaults); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

func applyDefaults(meta toml.MetaData, raw defaultsConfig, req *protocol.RenderRequest) error {
	defined := func(key string) bool {
		return meta.IsDefined("defaults", key)
	}
	if defined("iterations") {
		req.Iterations = raw.Iterations
	}
	if defined("width") {
		req.Width = raw.Width
	}
	if defined("height") {
		req.Height = raw.Height
	}
	if defined("supersampling") {
		req.Supersampling = raw.Supersampling
	}
	if defined("center_x") {
		req.CenterX = raw.CenterX
	}
	if defined("center_y") {
		req.CenterY = raw.CenterY
	}
	if defined("radius") {
		req.Radius = raw.Radius
	}
	if defined("color_function") {
		kind, err := protocol.ParseColorKind(raw.ColorFunction)
		if err != nil {
			return fmt.Errorf("parse defaults.color_function: %w", err)
		}
		req.Color.Kind = kind
	}
	if defined("color_shift") {
		req.Color.Shift = raw.ColorShift
	}
	if defined("color_scale") {
		req.Color.Scale = raw.ColorScale
	}
	if !req.Color.Kind.Parameterized() {
		req.Color.Shift = 0
		req.Color.Scale = 0
	}
	return nil
}

package session

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines engine connection and polling defaults.
type Config struct {
	ConnectTimeout     time.Duration
	HandshakeTimeout   time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	PollInterval       time.Duration
	MaxConnectAttempts int
	ConnectBackoff     BackoffConfig
	OutputRetry        BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     5 * time.Second,
		HandshakeTimeout:   5 * time.Second,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		PollInterval:       100 * time.Millisecond,
		MaxConnectAttempts: 1,
		ConnectBackoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
		OutputRetry: BackoffConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     250 * time.Millisecond,
			Jitter:       false,
		},
	}
}

// WithDefaults fills zero timeouts from DefaultConfig. Zero poll interval and
// zero retry delays are kept: they mean "no sleep".
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = def.MaxConnectAttempts
	}
	return c
}

func (c Config) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: negative poll_interval", ErrInvalidConfig)
	}
	if c.OutputRetry.InitialDelay < 0 || c.OutputRetry.MaxDelay < 0 {
		return fmt.Errorf("%w: negative output retry delay", ErrInvalidConfig)
	}
	if c.ConnectBackoff.InitialDelay < 0 || c.ConnectBackoff.MaxDelay < 0 {
		return fmt.Errorf("%w: negative connect backoff delay", ErrInvalidConfig)
	}
	return nil
}

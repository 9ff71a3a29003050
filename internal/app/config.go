package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/mandelctl/internal/form"
	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/protocol/session"
)

var ErrInvalidConfig = errors.New("app: invalid config")

// Config is the resolved runtime configuration of the client.
type Config struct {
	Address      string
	Session      session.Config
	CanvasWidth  int
	CanvasHeight int
	Defaults     protocol.RenderRequest
	MetricsAddr  string
}

func DefaultConfig() Config {
	return Config{
		Session:      session.DefaultConfig(),
		CanvasWidth:  800,
		CanvasHeight: 800,
		Defaults:     form.DefaultRequest(),
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Address) == "" {
		errs = append(errs, fmt.Errorf("%w: address required", ErrInvalidConfig))
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		errs = append(errs, fmt.Errorf("%w: canvas=%dx%d", ErrInvalidConfig, c.CanvasWidth, c.CanvasHeight))
	}
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Defaults.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: defaults: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

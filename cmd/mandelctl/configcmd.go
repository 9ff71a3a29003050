package main

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/danmuck/mandelctl/internal/app"
	"github.com/danmuck/mandelctl/internal/protocol"
)

// effectiveConfig is the resolved config in the file layout read by
// loadConfig.
type effectiveConfig struct {
	Address            string         `toml:"address"`
	ConnectTimeout     string         `toml:"connect_timeout"`
	HandshakeTimeout   string         `toml:"handshake_timeout"`
	ReadTimeout        string         `toml:"read_timeout"`
	WriteTimeout       string         `toml:"write_timeout"`
	PollInterval       string         `toml:"poll_interval"`
	MaxConnectAttempts int            `toml:"max_connect_attempts"`
	OutputRetryInitial string         `toml:"output_retry_initial"`
	OutputRetryMax     string         `toml:"output_retry_max"`
	CanvasWidth        int            `toml:"canvas_width"`
	CanvasHeight       int            `toml:"canvas_height"`
	MetricsAddr        string         `toml:"metrics_addr"`
	Defaults           defaultsConfig `toml:"defaults"`
}

func newEffectiveConfig(cfg app.Config) effectiveConfig {
	d := cfg.Defaults
	return effectiveConfig{
		Address:            cfg.Address,
		ConnectTimeout:     cfg.Session.ConnectTimeout.String(),
		HandshakeTimeout:   cfg.Session.HandshakeTimeout.String(),
		ReadTimeout:        cfg.Session.ReadTimeout.String(),
		WriteTimeout:       cfg.Session.WriteTimeout.String(),
		PollInterval:       cfg.Session.PollInterval.String(),
		MaxConnectAttempts: cfg.Session.MaxConnectAttempts,
		OutputRetryInitial: cfg.Session.OutputRetry.InitialDelay.String(),
		OutputRetryMax:     cfg.Session.OutputRetry.MaxDelay.String(),
		CanvasWidth:        cfg.CanvasWidth,
		CanvasHeight:       cfg.CanvasHeight,
		MetricsAddr:        cfg.MetricsAddr,
		Defaults: defaultsConfig{
			Iterations:    d.Iterations,
			Width:         d.Width,
			Height:        d.Height,
			Supersampling: d.Supersampling,
			CenterX:       d.CenterX,
			CenterY:       d.CenterY,
			Radius:        d.Radius,
			ColorFunction: colorKindKey(d.Color.Kind),
			ColorShift:    d.Color.Shift,
			ColorScale:    d.Color.Scale,
		},
	}
}

// colorKindKey is the config spelling of kind, accepted by ParseColorKind.
func colorKindKey(kind protocol.ColorKind) string {
	switch kind {
	case protocol.ColorReversedGreyscale:
		return "rgreyscale"
	case protocol.ColorColorized:
		return "colorized"
	case protocol.ColorRed:
		return "red"
	default:
		return "greyscale"
	}
}

func configCmd(opts *rootOptions) *cobra.Command {
	var write string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			data, err := toml.Marshal(newEffectiveConfig(cfg))
			if err != nil {
				return err
			}
			if write != "" {
				return os.WriteFile(write, data, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&write, "write", "w", "", "Write the configuration to this path instead of stdout")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/mandelctl/internal/app"
	"github.com/danmuck/mandelctl/internal/engine"
	"github.com/danmuck/mandelctl/internal/logging"
	"github.com/danmuck/mandelctl/internal/observability"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootOptions struct {
	configPath  string
	addr        string
	port        int
	logLevel    string
	metricsAddr string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mandelctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "mandelctl",
		Short: "Interactive client for a remote fractal render engine",
		Long: `mandelctl drives a render engine over its line protocol.

Submit a render, watch its progress, and zoom into the result by
selecting a region of the rendered image.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logLevel != "" {
				if _, ok := logging.ParseLevel(opts.logLevel); !ok {
					return fmt.Errorf("unknown log level %q", opts.logLevel)
				}
				_ = os.Setenv(logging.EnvLogLevel, opts.logLevel)
			}
			logging.ConfigureRuntime()
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a TOML config file")
	flags.StringVarP(&opts.addr, "addr", "a", "", "Engine address (host:port)")
	flags.IntVarP(&opts.port, "port", "p", 0, "Engine port on 127.0.0.1")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(renderCmd(opts))
	rootCmd.AddCommand(zoomCmd(opts))
	rootCmd.AddCommand(shellCmd(opts))
	rootCmd.AddCommand(configCmd(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// resolve builds the runtime config (defaults, then the config file, then
// flags) and validates it.
func (o *rootOptions) resolve() (app.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return app.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

// load is resolve without validation, for commands that never dial.
func (o *rootOptions) load() (app.Config, error) {
	cfg := app.DefaultConfig()
	if o.configPath != "" {
		loaded, err := loadConfig(o.configPath, cfg)
		if err != nil {
			return app.Config{}, err
		}
		cfg = loaded
	}
	if o.addr != "" && o.port != 0 {
		return app.Config{}, errors.New("--addr and --port are mutually exclusive")
	}
	if o.addr != "" {
		cfg.Address = strings.TrimSpace(o.addr)
	}
	if o.port != 0 {
		if o.port < 0 || o.port > 65535 {
			return app.Config{}, fmt.Errorf("invalid port %d", o.port)
		}
		cfg.Address = net.JoinHostPort("127.0.0.1", strconv.Itoa(o.port))
	}
	if o.metricsAddr != "" {
		cfg.MetricsAddr = o.metricsAddr
	}
	return cfg, nil
}

// connect starts the metrics listener when configured and dials the engine.
// The returned cleanup closes both.
func connect(ctx context.Context, cfg app.Config) (*engine.Client, func(), error) {
	stopMetrics := startMetrics(cfg.MetricsAddr)

	client, err := engine.Dial(ctx, cfg.Address, cfg.Session)
	if err != nil {
		stopMetrics()
		return nil, nil, err
	}
	log.Info().Msgf("mandelctl connected engine=%s", client.RemoteAddr())
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn().Msgf("mandelctl close engine err=%v", err)
		}
		stopMetrics()
	}
	return client, cleanup, nil
}

func startMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Msgf("mandelctl metrics listening addr=%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Msgf("mandelctl metrics listener err=%v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// metricsRouter serves GET /metrics from the default prometheus registry.
func metricsRouter() *gin.Engine {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.ScrapeLogger(log.Logger))
	_ = r.SetTrustedProxies(nil)
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	return r
}

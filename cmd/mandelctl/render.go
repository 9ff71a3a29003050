package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/danmuck/mandelctl/internal/app"
	"github.com/danmuck/mandelctl/internal/display"
	"github.com/danmuck/mandelctl/internal/engine"
	"github.com/danmuck/mandelctl/internal/form"
	"github.com/danmuck/mandelctl/internal/protocol"
)

// fieldFlags are the request overrides shared by render and zoom.
type fieldFlags struct {
	sets    []string
	color   string
	preview string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "Override a request field, e.g. --set iterations=2000 (repeatable)")
	cmd.Flags().StringVar(&f.color, "color", "", "Color function (greyscale, rgreyscale, colorized, red) or a full spec like color(0,32.0)")
	cmd.Flags().StringVar(&f.preview, "preview", "", "Write the composed canvas to this PNG path")
}

// apply returns base with the flag overrides, validated the same way the
// interactive form validates them.
func (f *fieldFlags) apply(base protocol.RenderRequest) (protocol.RenderRequest, error) {
	fm := form.New()
	fm.Load(base)
	if f.color != "" {
		if strings.Contains(f.color, "(") {
			cf, err := protocol.ParseColorFunction(f.color)
			if err != nil {
				return protocol.RenderRequest{}, err
			}
			base.Color = cf
			fm.Load(base)
		} else {
			kind, err := protocol.ParseColorKind(f.color)
			if err != nil {
				return protocol.RenderRequest{}, err
			}
			fm.SetColorKind(kind)
		}
	}
	for _, raw := range f.sets {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return protocol.RenderRequest{}, fmt.Errorf("invalid --set %q: want field=value", raw)
		}
		field, err := form.ParseField(strings.TrimSpace(key))
		if err != nil {
			return protocol.RenderRequest{}, err
		}
		if err := fm.Set(field, strings.TrimSpace(value)); err != nil {
			return protocol.RenderRequest{}, err
		}
	}
	return fm.Request()
}

func renderCmd(opts *rootOptions) *cobra.Command {
	var fields fieldFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Submit one render and wait for its output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			if cfg.Defaults, err = fields.apply(cfg.Defaults); err != nil {
				return err
			}
			return withEngine(cmd, cfg, func(ctrl *app.Controller, out io.Writer) error {
				return renderAndReport(cmd, ctrl, out, fields.preview)
			})
		},
	}
	fields.register(cmd)
	return cmd
}

// withEngine dials the engine, builds a controller that prints progress to
// out, and runs fn with it.
func withEngine(cmd *cobra.Command, cfg app.Config, fn func(*app.Controller, io.Writer) error) error {
	client, cleanup, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out := &syncWriter{w: cmd.OutOrStdout()}
	runner := engine.NewRunner(client, cfg.Session)
	ctrl, err := app.NewController(runner, cfg, app.WithObserver(progressPrinter(out)))
	if err != nil {
		return err
	}
	return fn(ctrl, out)
}

func renderAndReport(cmd *cobra.Command, ctrl *app.Controller, out io.Writer, preview string) error {
	if _, err := ctrl.Trigger(cmd.Context()); err != nil {
		return err
	}
	done, err := ctrl.Complete()
	if err != nil {
		return err
	}
	report(out, ctrl, done)
	if preview != "" {
		return writePreview(ctrl, preview)
	}
	return nil
}

func report(out io.Writer, ctrl *app.Controller, done app.Completion) {
	res := done.Result
	switch res.Outcome {
	case engine.OutcomeRendered:
		fmt.Fprintf(out, "output %s\n", res.Output)
	case engine.OutcomeEmpty:
		fmt.Fprintln(out, "finished without output")
	case engine.OutcomeNoOperation:
		fmt.Fprintln(out, "engine reported no operation")
	}
	if done.Committed {
		printWindow(out, ctrl)
	}
	if done.ImageErr != nil {
		fmt.Fprintf(out, "image unavailable: %v\n", done.ImageErr)
	}
}

func printWindow(out io.Writer, ctrl *app.Controller) {
	w := ctrl.Window()
	f := ctrl.Frame()
	fmt.Fprintf(out, "window center=(%s,%s) radius=%s frame=%dx%d\n",
		protocol.FormatReal(w.CenterX), protocol.FormatReal(w.CenterY), protocol.FormatReal(w.Radius),
		f.Width, f.Height)
}

func writePreview(ctrl *app.Controller, path string) error {
	img, err := ctrl.Canvas()
	if err != nil {
		return err
	}
	return display.WritePNG(path, img)
}

func progressPrinter(out io.Writer) engine.Observer {
	return engine.ObserverFuncs{
		Progress: func(p engine.Progress) {
			if p.None {
				fmt.Fprintln(out, "progress none")
				return
			}
			fmt.Fprintf(out, "progress %.0f%%\n", p.Fraction*100)
		},
	}
}

// syncWriter serializes writes from the session goroutine and the command.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

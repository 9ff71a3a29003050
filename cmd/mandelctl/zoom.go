package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/mandelctl/internal/app"
	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/selection"
)

func zoomCmd(opts *rootOptions) *cobra.Command {
	var (
		fields fieldFlags
		sel    string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "zoom",
		Short: "Render the view window under a canvas selection",
		Long: `zoom treats the request fields as the image currently on the canvas,
applies a canvas-space selection to it, and renders the resulting window.

A selection of x0,y0 alone recenters the view on that pixel. x0,y0,x1,y1
covers both corner pixels and zooms into the largest box of the render
aspect ratio centered inside it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := parseSelection(sel)
			if err != nil {
				return err
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Defaults, err = fields.apply(cfg.Defaults); err != nil {
				return err
			}

			if dryRun {
				ctrl, err := app.NewController(nil, cfg)
				if err != nil {
					return err
				}
				return printNextWindow(cmd.OutOrStdout(), ctrl, events)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return withEngine(cmd, cfg, func(ctrl *app.Controller, out io.Writer) error {
				if err := printNextWindow(out, ctrl, events); err != nil {
					return err
				}
				return renderAndReport(cmd, ctrl, out, fields.preview)
			})
		},
	}
	fields.register(cmd)
	cmd.Flags().StringVar(&sel, "select", "", "Canvas selection as x0,y0 or x0,y0,x1,y1")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the next window without contacting the engine")
	_ = cmd.MarkFlagRequired("select")
	return cmd
}

// parseSelection turns x0,y0[,x1,y1] into the press and drag events a pointer
// would produce.
func parseSelection(raw string) ([]selection.Event, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 && len(parts) != 4 {
		return nil, fmt.Errorf("invalid selection %q: want x0,y0 or x0,y0,x1,y1", raw)
	}
	coords := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid selection %q: %w", raw, err)
		}
		coords[i] = v
	}
	events := []selection.Event{{Kind: selection.EventPress, X: coords[0], Y: coords[1]}}
	if len(coords) == 4 {
		events = append(events, selection.Event{Kind: selection.EventDrag, X: coords[2], Y: coords[3]})
	}
	return events, nil
}

func printNextWindow(out io.Writer, ctrl *app.Controller, events []selection.Event) error {
	for _, ev := range events {
		ctrl.HandleEvent(ev)
	}
	next, ok, err := ctrl.NextWindow()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("selection starts outside the image")
	}
	fmt.Fprintf(out, "next center=(%s,%s) radius=%s\n",
		protocol.FormatReal(next.CenterX), protocol.FormatReal(next.CenterY), protocol.FormatReal(next.Radius))
	return nil
}

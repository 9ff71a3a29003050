// Package app wires the form, the selection region and the engine runner into
// the interactive render loop.
//
// Ownership boundary:
// - the confirmed view window and the frame it was rendered into
// - turning a selection into the next request (Trigger)
// - applying a finished session (Complete)
// - disabling pointer input while a render is in flight
//
// A Controller is driven by one goroutine. Only progress notifications arrive
// from the session worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/mandelctl/internal/display"
	"github.com/danmuck/mandelctl/internal/engine"
	"github.com/danmuck/mandelctl/internal/form"
	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/selection"
	"github.com/danmuck/mandelctl/internal/viewport"
)

var (
	ErrRenderDisabled = errors.New("app: render disabled by invalid fields")
	ErrNoTask         = errors.New("app: no render in flight")
)

// ImageLoader reads the artifact named by an output reference.
type ImageLoader func(ref string) (image.Image, error)

type Option func(*Controller)

func WithImageLoader(load ImageLoader) Option {
	return func(c *Controller) {
		c.load = load
	}
}

// WithObserver receives every state and progress notification of the
// sessions started by the controller, on the session goroutine.
func WithObserver(obs engine.Observer) Option {
	return func(c *Controller) {
		c.obs = obs
	}
}

type Controller struct {
	runner *engine.Runner
	cfg    Config
	load   ImageLoader
	obs    engine.Observer

	form   *form.Form
	region *selection.Region
	window viewport.Window
	frame  viewport.Frame
	image  image.Image
	output string

	task    *engine.Task
	pending protocol.RenderRequest

	mu       sync.Mutex
	state    engine.State
	progress engine.Progress
}

func NewController(runner *engine.Runner, cfg Config, opts ...Option) (*Controller, error) {
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, fmt.Errorf("%w: canvas=%dx%d", ErrInvalidConfig, cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrInvalidConfig, err)
	}
	c := &Controller{
		runner: runner,
		cfg:    cfg,
		load:   display.LoadImage,
		form:   form.New(),
		window: viewport.Window{
			CenterX: cfg.Defaults.CenterX,
			CenterY: cfg.Defaults.CenterY,
			Radius:  cfg.Defaults.Radius,
		},
		frame: viewport.Frame{Width: int(cfg.Defaults.Width), Height: int(cfg.Defaults.Height)},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.form.Load(cfg.Defaults)
	layout, err := display.Fit(cfg.CanvasWidth, cfg.CanvasHeight, c.frame.Width, c.frame.Height)
	if err != nil {
		return nil, err
	}
	c.region = selection.NewRegion(layout)
	return c, nil
}

func (c *Controller) Form() *form.Form {
	return c.form
}

func (c *Controller) Region() *selection.Region {
	return c.region
}

// Window is the view window of the last confirmed render.
func (c *Controller) Window() viewport.Window {
	return c.window
}

func (c *Controller) Frame() viewport.Frame {
	return c.frame
}

// Output is the reference of the last rendered artifact.
func (c *Controller) Output() string {
	return c.output
}

func (c *Controller) Busy() bool {
	return c.task != nil
}

// HandleEvent feeds one canvas event to the selection region.
func (c *Controller) HandleEvent(ev selection.Event) bool {
	return c.region.Handle(ev)
}

// NextWindow returns the window the current selection would render. ok is
// false when nothing is selected.
func (c *Controller) NextWindow() (viewport.Window, bool, error) {
	rect, ok := c.region.Selection()
	if !ok {
		return viewport.Window{}, false, nil
	}
	var (
		w   viewport.Window
		err error
	)
	if box, locked := selection.AspectLock(rect, c.form.Aspect()); locked {
		w, err = viewport.MapBoxToWindow(box, c.frame, c.window)
	} else {
		w, err = viewport.MapToWindow(rect, c.frame, c.window)
	}
	if err != nil {
		return viewport.Window{}, false, err
	}
	return w, true, nil
}

// Trigger starts a render of the current fields. A selection, if any,
// replaces the center and radius; the fields take the new window only once
// the render has started. Pointer input is disabled until Complete.
func (c *Controller) Trigger(ctx context.Context) (*engine.Task, error) {
	if c.task != nil {
		return nil, engine.ErrSessionBusy
	}
	next, selected, err := c.NextWindow()
	if err != nil {
		return nil, err
	}
	var req protocol.RenderRequest
	if selected {
		req, err = c.form.RequestAt(next)
	} else {
		req, err = c.form.Request()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderDisabled, err)
	}

	c.mu.Lock()
	c.progress = engine.Progress{}
	c.state = engine.StateIdle
	c.mu.Unlock()
	task, err := c.runner.Start(ctx, req, engine.ObserverFuncs{
		State:    c.onState,
		Progress: c.setProgress,
	})
	if err != nil {
		return nil, err
	}
	if selected {
		c.form.SetWindow(next)
	}
	c.form.MarkSubmitted(req)
	c.region.SetEnabled(false)
	c.task = task
	c.pending = req
	log.Info().Msgf("app.Controller render started center=(%s,%s) radius=%s size=%dx%d",
		protocol.FormatReal(req.CenterX), protocol.FormatReal(req.CenterY), protocol.FormatReal(req.Radius),
		req.Width, req.Height)
	return task, nil
}

// Completion describes how a finished session changed the controller.
type Completion struct {
	Result engine.Result
	// Committed is set when the render produced output and the view window
	// moved to the submitted request.
	Committed bool
	// ImageErr reports a rendered artifact that could not be loaded.
	ImageErr error
}

// Complete waits for the in-flight render and applies its result. The view
// window only moves when the engine produced output; the selection is reset
// with the new layout. Input is re-enabled in every case.
func (c *Controller) Complete() (Completion, error) {
	if c.task == nil {
		return Completion{}, ErrNoTask
	}
	res, err := c.task.Wait()
	req := c.pending
	c.task = nil
	c.pending = protocol.RenderRequest{}
	c.region.SetEnabled(true)

	out := Completion{Result: res}
	if err != nil {
		log.Warn().Msgf("app.Controller render failed err=%v", err)
		return out, err
	}
	if res.Outcome != engine.OutcomeRendered || res.Output == "" {
		log.Info().Msgf("app.Controller render ended outcome=%s", res.Outcome)
		return out, nil
	}

	c.window = viewport.Window{CenterX: req.CenterX, CenterY: req.CenterY, Radius: req.Radius}
	c.frame = viewport.Frame{Width: int(req.Width), Height: int(req.Height)}
	c.output = res.Output
	out.Committed = true

	layout, err := display.Fit(c.cfg.CanvasWidth, c.cfg.CanvasHeight, c.frame.Width, c.frame.Height)
	if err != nil {
		return out, err
	}
	c.region.SetLayout(layout)

	img, err := c.load(res.Output)
	if err != nil {
		log.Warn().Msgf("app.Controller load output=%q err=%v", res.Output, err)
		c.image = nil
		out.ImageErr = err
		return out, nil
	}
	c.image = img
	return out, nil
}

// Cancel stops the in-flight render, if any. Complete must still be called.
func (c *Controller) Cancel() {
	if c.task != nil {
		c.task.Cancel()
	}
}

// Done is closed when the in-flight render ends; nil when idle.
func (c *Controller) Done() <-chan struct{} {
	if c.task == nil {
		return nil
	}
	return c.task.Done()
}

// Canvas composes the current render and selection overlay.
func (c *Controller) Canvas() (*image.RGBA, error) {
	return display.Compose(c.image, c.region, c.form.Aspect(), c.cfg.CanvasWidth, c.cfg.CanvasHeight)
}

// Progress returns the latest progress notification.
func (c *Controller) Progress() engine.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// State returns the latest session state seen.
func (c *Controller) State() engine.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setProgress(p engine.Progress) {
	c.mu.Lock()
	c.progress = p
	c.mu.Unlock()
	if c.obs != nil {
		c.obs.OnProgress(p)
	}
}

func (c *Controller) onState(s engine.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.obs != nil {
		c.obs.OnState(s)
	}
}

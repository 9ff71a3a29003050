// Package viewport maps render-image pixels onto the complex plane.
//
// The radius spans the shorter image dimension and the imaginary axis grows
// upward, matching the engine's own pixel mapping.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/mandelctl/internal/selection"
)

var (
	ErrInvalidFrame  = errors.New("viewport: invalid frame")
	ErrInvalidWindow = errors.New("viewport: invalid window")
)

// Window is the visible region of the plane.
type Window struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

func DefaultWindow() Window {
	return Window{Radius: 2.0}
}

func (w Window) Validate() error {
	if !finite(w.CenterX) || !finite(w.CenterY) {
		return fmt.Errorf("%w: center must be finite", ErrInvalidWindow)
	}
	if !finite(w.Radius) || w.Radius <= 0 {
		return fmt.Errorf("%w: radius=%v must be finite and > 0", ErrInvalidWindow, w.Radius)
	}
	return nil
}

// Frame is the pixel size of the render a window was drawn into.
type Frame struct {
	Width  int
	Height int
}

func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	return nil
}

// Bounds is the selection covering every pixel of the frame.
func (f Frame) Bounds() selection.Rect {
	return selection.Rect{Width: f.Width - 1, Height: f.Height - 1}
}

func (f Frame) shorter() float64 {
	return float64(min(f.Width, f.Height))
}

// Scale is the plane distance covered by one pixel.
func Scale(f Frame, view Window) float64 {
	return 2 * view.Radius / f.shorter()
}

// PixelToPlane maps an image position to plane coordinates.
func PixelToPlane(x, y float64, f Frame, view Window) (float64, float64) {
	s := Scale(f, view)
	return view.CenterX + (x-float64(f.Width)/2)*s, view.CenterY - (y-float64(f.Height)/2)*s
}

// PlaneToPixel is the inverse of PixelToPlane.
func PlaneToPixel(re, im float64, f Frame, view Window) (float64, float64) {
	s := Scale(f, view)
	return (re-view.CenterX)/s + float64(f.Width)/2, (view.CenterY-im)/s + float64(f.Height)/2
}

// MapToWindow returns the window covering rect of a render drawn with view in
// frame. A point selection recenters on that pixel and keeps the radius.
func MapToWindow(rect selection.Rect, f Frame, view Window) (Window, error) {
	if rect.Width < 0 || rect.Height < 0 {
		return Window{}, fmt.Errorf("%w: rect not normalized %+v", ErrInvalidFrame, rect)
	}
	if !rect.IsPoint() {
		return MapBoxToWindow(rect.Extent(), f, view)
	}
	if err := f.Validate(); err != nil {
		return Window{}, err
	}
	if err := view.Validate(); err != nil {
		return Window{}, err
	}
	cx, cy := PixelToPlane(float64(rect.Left), float64(rect.Top), f, view)
	return checked(Window{CenterX: cx, CenterY: cy, Radius: view.Radius})
}

// MapBoxToWindow returns the window whose shorter side spans the shorter side
// of box. The full frame box maps back to view.
func MapBoxToWindow(box selection.Box, f Frame, view Window) (Window, error) {
	if err := f.Validate(); err != nil {
		return Window{}, err
	}
	if err := view.Validate(); err != nil {
		return Window{}, err
	}
	if !(box.Width > 0) || !(box.Height > 0) || !finite(box.Left) || !finite(box.Top) ||
		!finite(box.Width) || !finite(box.Height) {
		return Window{}, fmt.Errorf("%w: empty box %+v", ErrInvalidFrame, box)
	}
	px, py := box.Center()
	cx, cy := PixelToPlane(px, py, f, view)
	return checked(Window{
		CenterX: cx,
		CenterY: cy,
		Radius:  view.Radius * min(box.Width, box.Height) / f.shorter(),
	})
}

func checked(w Window) (Window, error) {
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

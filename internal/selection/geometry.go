package selection

import "math"

type Point struct {
	X int
	Y int
}

// Rect is a normalized pixel selection. It covers the pixels Left through
// Left+Width and Top through Top+Height inclusive, so Width/Height count the
// steps between the two corners and are never negative.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// RectFromCorners normalizes two opposite corner pixels.
func RectFromCorners(a, b Point) Rect {
	left, right := a.X, b.X
	if left > right {
		left, right = right, left
	}
	top, bottom := a.Y, b.Y
	if top > bottom {
		top, bottom = bottom, top
	}
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// IsPoint reports whether the selection has no area.
func (r Rect) IsPoint() bool {
	return r.Width == 0 || r.Height == 0
}

// Right is the last covered pixel column.
func (r Rect) Right() int {
	return r.Left + r.Width
}

// Bottom is the last covered pixel row.
func (r Rect) Bottom() int {
	return r.Top + r.Height
}

// Center returns the center of the corner pixels.
func (r Rect) Center() (float64, float64) {
	return float64(r.Left) + float64(r.Width)/2, float64(r.Top) + float64(r.Height)/2
}

// Contains reports whether o lies fully inside r.
func (r Rect) Contains(o Rect) bool {
	return o.Left >= r.Left && o.Top >= r.Top && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Extent is the image area the covered pixels occupy.
func (r Rect) Extent() Box {
	return Box{
		Left:   float64(r.Left),
		Top:    float64(r.Top),
		Width:  float64(r.Width + 1),
		Height: float64(r.Height + 1),
	}
}

// Box is an area in continuous image coordinates: [Left, Left+Width) x
// [Top, Top+Height). Pixel x spans [x, x+1).
type Box struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

func (b Box) Right() float64 {
	return b.Left + b.Width
}

func (b Box) Bottom() float64 {
	return b.Top + b.Height
}

func (b Box) Center() (float64, float64) {
	return b.Left + b.Width/2, b.Top + b.Height/2
}

// Aspect is Width/Height.
func (b Box) Aspect() float64 {
	return b.Width / b.Height
}

// Contains reports whether o lies inside b, allowing for float rounding at
// the edges.
func (b Box) Contains(o Box) bool {
	const eps = 1e-9
	return o.Left >= b.Left-eps && o.Top >= b.Top-eps &&
		o.Right() <= b.Right()+eps && o.Bottom() <= b.Bottom()+eps
}

// AspectLock returns the largest box with Width/Height == target centered in
// the area r covers. ok is false for point selections and for a target that
// is not a positive finite number.
func AspectLock(r Rect, target float64) (Box, bool) {
	if r.IsPoint() || !(target > 0) || math.IsInf(target, 0) {
		return Box{}, false
	}
	area := r.Extent()
	lw, lh := area.Width, area.Height
	if area.Aspect() < target {
		// Narrower than target: keep the width.
		lh = lw / target
	} else {
		lw = lh * target
	}
	return Box{
		Left:   area.Left + (area.Width-lw)/2,
		Top:    area.Top + (area.Height-lh)/2,
		Width:  lw,
		Height: lh,
	}, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

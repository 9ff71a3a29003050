package protocol

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinSupersampling = 1
	MaxSupersampling = 8
	MaxColorShift    = 2047
)

// ColorKind selects the engine-side color function.
type ColorKind int

const (
	ColorGreyscale ColorKind = iota
	ColorReversedGreyscale
	ColorColorized
	ColorRed
)

// String returns the display name shown to users.
func (k ColorKind) String() string {
	switch k {
	case ColorGreyscale:
		return "Greyscale"
	case ColorReversedGreyscale:
		return "Reversed greyscale"
	case ColorColorized:
		return "Colorized"
	case ColorRed:
		return "Red"
	default:
		return "Unknown"
	}
}

// Parameterized reports whether the kind carries shift/scale values.
func (k ColorKind) Parameterized() bool {
	return k == ColorColorized || k == ColorRed
}

// ColorFunction is the color variant sent with a render. Shift and Scale are
// only meaningful for parameterized kinds.
type ColorFunction struct {
	Kind  ColorKind
	Shift int
	Scale float64
}

func Greyscale() ColorFunction {
	return ColorFunction{Kind: ColorGreyscale}
}

func ReversedGreyscale() ColorFunction {
	return ColorFunction{Kind: ColorReversedGreyscale}
}

func Colorized(shift int, scale float64) ColorFunction {
	return ColorFunction{Kind: ColorColorized, Shift: shift, Scale: scale}
}

func Red(shift int, scale float64) ColorFunction {
	return ColorFunction{Kind: ColorRed, Shift: shift, Scale: scale}
}

func (c ColorFunction) Validate() error {
	switch c.Kind {
	case ColorGreyscale, ColorReversedGreyscale:
		return nil
	case ColorColorized, ColorRed:
		if c.Shift < 0 || c.Shift > MaxColorShift {
			return fmt.Errorf("%w: shift=%d outside [0,%d]", ErrInvalidColorSpec, c.Shift, MaxColorShift)
		}
		if !isFinite(c.Scale) {
			return fmt.Errorf("%w: scale must be finite", ErrInvalidColorSpec)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind=%d", ErrInvalidColorSpec, int(c.Kind))
	}
}

// RenderRequest is one immutable render submission.
type RenderRequest struct {
	Iterations    uint32
	Width         uint32
	Height        uint32
	Supersampling int
	CenterX       float64
	CenterY       float64
	Radius        float64
	Color         ColorFunction
}

// Validate checks every field against the ranges the engine accepts. All
// violations are reported together.
func (r RenderRequest) Validate() error {
	var errs []error
	if r.Iterations == 0 {
		errs = append(errs, fmt.Errorf("%w: iterations must be > 0", ErrInvalidRequest))
	}
	if r.Width == 0 {
		errs = append(errs, fmt.Errorf("%w: width must be > 0", ErrInvalidRequest))
	}
	if r.Height == 0 {
		errs = append(errs, fmt.Errorf("%w: height must be > 0", ErrInvalidRequest))
	}
	if r.Supersampling < MinSupersampling || r.Supersampling > MaxSupersampling {
		errs = append(errs, fmt.Errorf("%w: supersampling=%d outside [%d,%d]",
			ErrInvalidRequest, r.Supersampling, MinSupersampling, MaxSupersampling))
	}
	if !isFinite(r.CenterX) || !isFinite(r.CenterY) {
		errs = append(errs, fmt.Errorf("%w: center must be finite", ErrInvalidRequest))
	}
	if !isFinite(r.Radius) || r.Radius <= 0 {
		errs = append(errs, fmt.Errorf("%w: radius must be finite and > 0", ErrInvalidRequest))
	}
	if err := r.Color.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}
	return errors.Join(errs...)
}

// Aspect is the width/height ratio of the requested image.
func (r RenderRequest) Aspect() float64 {
	if r.Height == 0 {
		return 1.0
	}
	return float64(r.Width) / float64(r.Height)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

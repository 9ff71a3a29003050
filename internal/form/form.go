// Package form holds the render parameter fields as the user typed them.
//
// Ownership boundary:
// - raw field text and per-field range validation
// - render trigger gating (CanRender)
// - building the immutable protocol.RenderRequest
// - the last submitted request, used as the aspect fallback
package form

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/danmuck/mandelctl/internal/protocol"
	"github.com/danmuck/mandelctl/internal/viewport"
)

var (
	ErrInvalidField = errors.New("form: invalid field")
	ErrUnknownField = errors.New("form: unknown field")
)

type Field int

const (
	FieldIterations Field = iota
	FieldWidth
	FieldHeight
	FieldSupersampling
	FieldCenterX
	FieldCenterY
	FieldRadius
	FieldColorShift
	FieldColorScale
	fieldCount
)

var fieldNames = [fieldCount]struct{ key, label string }{
	{"iterations", "Iterations"},
	{"width", "Image Width"},
	{"height", "Image Height"},
	{"supersampling", "Supersampling"},
	{"center_x", "Center X"},
	{"center_y", "Center Y"},
	{"radius", "Radius"},
	{"color_shift", "Color Shift"},
	{"color_scale", "Color Scale"},
}

// Fields lists every field in display order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) Key() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldNames[f].key
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "Unknown"
	}
	return fieldNames[f].label
}

// ParseField accepts a field key ("center_x") or label ("Center X").
func ParseField(name string) (Field, error) {
	name = strings.TrimSpace(name)
	for f := Field(0); f < fieldCount; f++ {
		if strings.EqualFold(name, fieldNames[f].key) || strings.EqualFold(name, fieldNames[f].label) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Form is owned by the UI goroutine.
type Form struct {
	values [fieldCount]string
	color  protocol.ColorKind

	saved    protocol.RenderRequest
	hasSaved bool
}

// New returns a form holding the default render parameters.
func New() *Form {
	f := &Form{}
	f.Load(DefaultRequest())
	return f
}

func DefaultRequest() protocol.RenderRequest {
	return protocol.RenderRequest{
		Iterations:    500,
		Width:         1000,
		Height:        1000,
		Supersampling: 1,
		CenterX:       0,
		CenterY:       0,
		Radius:        2.0,
		Color:         protocol.Colorized(0, 32.0),
	}
}

// Load replaces every field with the values of req.
func (f *Form) Load(req protocol.RenderRequest) {
	f.values[FieldIterations] = strconv.FormatUint(uint64(req.Iterations), 10)
	f.values[FieldWidth] = strconv.FormatUint(uint64(req.Width), 10)
	f.values[FieldHeight] = strconv.FormatUint(uint64(req.Height), 10)
	f.values[FieldSupersampling] = strconv.Itoa(req.Supersampling)
	f.values[FieldCenterX] = protocol.FormatReal(req.CenterX)
	f.values[FieldCenterY] = protocol.FormatReal(req.CenterY)
	f.values[FieldRadius] = protocol.FormatReal(req.Radius)
	f.color = req.Color.Kind
	if req.Color.Kind.Parameterized() {
		f.values[FieldColorShift] = strconv.Itoa(req.Color.Shift)
		f.values[FieldColorScale] = protocol.FormatReal(req.Color.Scale)
	} else if f.values[FieldColorShift] == "" {
		f.values[FieldColorShift] = "0"
		f.values[FieldColorScale] = "32.0"
	}
}

// Set stores raw text for field and reports whether it is valid. Invalid text
// is kept so the user can keep editing it.
func (f *Form) Set(field Field, value string) error {
	if field < 0 || field >= fieldCount {
		return fmt.Errorf("%w: %d", ErrUnknownField, int(field))
	}
	f.values[field] = strings.TrimSpace(value)
	return validate(field, f.values[field])
}

func (f *Form) Value(field Field) string {
	if field < 0 || field >= fieldCount {
		return ""
	}
	return f.values[field]
}

func (f *Form) SetColorKind(kind protocol.ColorKind) {
	f.color = kind
}

func (f *Form) ColorKind() protocol.ColorKind {
	return f.color
}

// Applicable reports whether field takes part in the next request. The color
// shift and scale only apply to parameterized color functions.
func (f *Form) Applicable(field Field) bool {
	if field == FieldColorShift || field == FieldColorScale {
		return f.color.Parameterized()
	}
	return field >= 0 && field < fieldCount
}

// FieldError returns the validation error of field, or nil when the field is
// valid or not applicable.
func (f *Form) FieldError(field Field) error {
	if !f.Applicable(field) {
		return nil
	}
	return validate(field, f.values[field])
}

// Invalid lists the applicable fields that fail validation.
func (f *Form) Invalid() []Field {
	var out []Field
	for field := Field(0); field < fieldCount; field++ {
		if f.FieldError(field) != nil {
			out = append(out, field)
		}
	}
	return out
}

// CanRender gates the render trigger.
func (f *Form) CanRender() bool {
	return len(f.Invalid()) == 0
}

// Request builds the request described by the current fields.
func (f *Form) Request() (protocol.RenderRequest, error) {
	var errs []error
	for field := Field(0); field < fieldCount; field++ {
		if err := f.FieldError(field); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return protocol.RenderRequest{}, errors.Join(errs...)
	}

	req := protocol.RenderRequest{
		Iterations:    uint32(mustUint(f.values[FieldIterations])),
		Width:         uint32(mustUint(f.values[FieldWidth])),
		Height:        uint32(mustUint(f.values[FieldHeight])),
		Supersampling: int(mustUint(f.values[FieldSupersampling])),
		CenterX:       mustFloat(f.values[FieldCenterX]),
		CenterY:       mustFloat(f.values[FieldCenterY]),
		Radius:        mustFloat(f.values[FieldRadius]),
		Color:         protocol.ColorFunction{Kind: f.color},
	}
	if f.color.Parameterized() {
		req.Color.Shift = int(mustUint(f.values[FieldColorShift]))
		req.Color.Scale = mustFloat(f.values[FieldColorScale])
	}
	if err := req.Validate(); err != nil {
		return protocol.RenderRequest{}, err
	}
	return req, nil
}

// RequestAt builds the request of the current fields with w in place of the
// center and radius fields. The fields themselves are left untouched.
func (f *Form) RequestAt(w viewport.Window) (protocol.RenderRequest, error) {
	draft := *f
	draft.SetWindow(w)
	return draft.Request()
}

// MarkSubmitted remembers req as the last request sent to the engine.
func (f *Form) MarkSubmitted(req protocol.RenderRequest) {
	f.saved = req
	f.hasSaved = true
}

func (f *Form) Submitted() (protocol.RenderRequest, bool) {
	return f.saved, f.hasSaved
}

// Window reads the center and radius fields.
func (f *Form) Window() (viewport.Window, error) {
	var errs []error
	for _, field := range []Field{FieldCenterX, FieldCenterY, FieldRadius} {
		if err := validate(field, f.values[field]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return viewport.Window{}, errors.Join(errs...)
	}
	return viewport.Window{
		CenterX: mustFloat(f.values[FieldCenterX]),
		CenterY: mustFloat(f.values[FieldCenterY]),
		Radius:  mustFloat(f.values[FieldRadius]),
	}, nil
}

// SetWindow writes w into the center and radius fields.
func (f *Form) SetWindow(w viewport.Window) {
	f.values[FieldCenterX] = protocol.FormatReal(w.CenterX)
	f.values[FieldCenterY] = protocol.FormatReal(w.CenterY)
	f.values[FieldRadius] = protocol.FormatReal(w.Radius)
}

// Aspect is the width/height target for selection aspect lock: the current
// fields when valid, else the last submitted request, else 1.
func (f *Form) Aspect() float64 {
	if validate(FieldWidth, f.values[FieldWidth]) == nil && validate(FieldHeight, f.values[FieldHeight]) == nil {
		return float64(mustUint(f.values[FieldWidth])) / float64(mustUint(f.values[FieldHeight]))
	}
	if f.hasSaved && f.saved.Height > 0 {
		return f.saved.Aspect()
	}
	return 1.0
}

func validate(field Field, raw string) error {
	switch field {
	case FieldIterations, FieldWidth, FieldHeight:
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return fmt.Errorf("%w: %s=%q must be an integer in [1,%d]", ErrInvalidField, field.Key(), raw, uint64(math.MaxUint32))
		}
	case FieldSupersampling:
		v, err := strconv.ParseUint(raw, 10, 8)
		if err != nil || v < protocol.MinSupersampling || v > protocol.MaxSupersampling {
			return fmt.Errorf("%w: %s=%q must be an integer in [%d,%d]", ErrInvalidField, field.Key(), raw,
				protocol.MinSupersampling, protocol.MaxSupersampling)
		}
	case FieldColorShift:
		v, err := strconv.ParseUint(raw, 10, 16)
		if err != nil || v > protocol.MaxColorShift {
			return fmt.Errorf("%w: %s=%q must be an integer in [0,%d]", ErrInvalidField, field.Key(), raw, protocol.MaxColorShift)
		}
	case FieldCenterX, FieldCenterY, FieldColorScale:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%q must be a finite number", ErrInvalidField, field.Key(), raw)
		}
	case FieldRadius:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s=%q must be a finite number > 0", ErrInvalidField, field.Key(), raw)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownField, int(field))
	}
	return nil
}

// mustUint and mustFloat parse text that already passed validate.
func mustUint(raw string) uint64 {
	v, _ := strconv.ParseUint(raw, 10, 32)
	return v
}

func mustFloat(raw string) float64 {
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}

package selection

import "github.com/rs/zerolog/log"

type EventKind int

const (
	EventPress EventKind = iota
	EventMove
	EventDrag
	EventExit
)

func (k EventKind) String() string {
	switch k {
	case EventPress:
		return "press"
	case EventMove:
		return "move"
	case EventDrag:
		return "drag"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event is one pointer event in canvas coordinates.
type Event struct {
	Kind EventKind
	X    int
	Y    int
}

// Region tracks the current selection and cursor over one displayed render.
// It is owned by a single goroutine.
type Region struct {
	layout   Layout
	disabled bool

	selecting bool
	anchor    Point
	rect      Rect

	cursor        Point
	cursorVisible bool
}

func NewRegion(layout Layout) *Region {
	return &Region{layout: layout}
}

func (r *Region) Layout() Layout {
	return r.layout
}

// SetLayout installs the layout of a newly displayed render and clears the
// selection and cursor.
func (r *Region) SetLayout(layout Layout) {
	r.layout = layout
	r.Clear()
	r.cursorVisible = false
}

func (r *Region) SetEnabled(enabled bool) {
	r.disabled = !enabled
}

func (r *Region) Enabled() bool {
	return !r.disabled
}

// Begin anchors a zero-size selection at p. A p outside the render image
// leaves the region empty.
func (r *Region) Begin(p Point) bool {
	if !r.layout.Inside(p) {
		r.Clear()
		return false
	}
	r.selecting = true
	r.anchor = p
	r.rect = Rect{Left: p.X, Top: p.Y}
	return true
}

// Drag extends the selection from the anchor to p. Both corners are clipped
// into the image so the rectangle never leaves [0,w) x [0,h).
func (r *Region) Drag(p Point) bool {
	if !r.selecting {
		return false
	}
	maxX, maxY := r.layout.ImageWidth-1, r.layout.ImageHeight-1
	end := Point{X: clamp(p.X, 0, maxX), Y: clamp(p.Y, 0, maxY)}
	r.rect = RectFromCorners(r.anchor, end)
	return true
}

func (r *Region) Clear() {
	r.selecting = false
	r.anchor = Point{}
	r.rect = Rect{}
}

// Selection returns the current rectangle. ok is false when nothing is
// selected. A zero-size rectangle is a point selection.
func (r *Region) Selection() (Rect, bool) {
	return r.rect, r.selecting
}

// AspectLocked returns the aspect-corrected box inside the current selection.
func (r *Region) AspectLocked(target float64) (Box, bool) {
	if !r.selecting {
		return Box{}, false
	}
	return AspectLock(r.rect, target)
}

// Cursor returns the last cursor position in image pixels.
func (r *Region) Cursor() (Point, bool) {
	return r.cursor, r.cursorVisible
}

// Handle applies one canvas event. Events other than Exit are ignored while
// the region is disabled. It reports whether the region changed.
func (r *Region) Handle(ev Event) bool {
	if r.disabled && ev.Kind != EventExit {
		return false
	}
	p := r.layout.ToImage(ev.X, ev.Y)
	switch ev.Kind {
	case EventPress:
		ok := r.Begin(p)
		log.Trace().Msgf("selection.Region begin x=%d y=%d inside=%t", p.X, p.Y, ok)
		return true
	case EventDrag:
		r.setCursor(p)
		return r.Drag(p)
	case EventMove:
		r.setCursor(p)
		return true
	case EventExit:
		changed := r.cursorVisible
		r.cursorVisible = false
		return changed
	default:
		return false
	}
}

func (r *Region) setCursor(p Point) {
	if r.layout.Inside(p) {
		r.cursor = p
		r.cursorVisible = true
		return
	}
	r.cursorVisible = false
}

package viewport

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/danmuck/mandelctl/internal/display"
	"github.com/danmuck/mandelctl/internal/selection"
	"github.com/danmuck/mandelctl/internal/testutil/testlog"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestPixelToPlaneMatchesRenderConvention(t *testing.T) {
	testlog.Start(t)
	f := Frame{Width: 800, Height: 400}
	view := Window{CenterX: -0.5, CenterY: 0.25, Radius: 2}

	x, y := PixelToPlane(0, 0, f, view)
	// Radius spans the height: top-left is (cx - r*w/h, cy + r).
	if !near(x, -0.5-4) || !near(y, 0.25+2) {
		t.Fatalf("unexpected top-left=(%v,%v)", x, y)
	}
	x, y = PixelToPlane(400, 200, f, view)
	if !near(x, -0.5) || !near(y, 0.25) {
		t.Fatalf("unexpected center=(%v,%v)", x, y)
	}
	px, py := PlaneToPixel(x, y, f, view)
	if !near(px, 400) || !near(py, 200) {
		t.Fatalf("unexpected inverse=(%v,%v)", px, py)
	}
}

func TestMapToWindowFullImageRoundTrip(t *testing.T) {
	testlog.Start(t)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		f := Frame{Width: 2 + rng.Intn(4000), Height: 2 + rng.Intn(4000)}
		view := Window{
			CenterX: rng.Float64()*4 - 2,
			CenterY: rng.Float64()*4 - 2,
			Radius:  math.Pow(10, -rng.Float64()*10),
		}
		got, err := MapToWindow(f.Bounds(), f, view)
		if err != nil {
			t.Fatalf("map: %v", err)
		}
		if !near(got.CenterX, view.CenterX) || !near(got.CenterY, view.CenterY) || !near(got.Radius, view.Radius) {
			t.Fatalf("frame=%+v view=%+v round trip=%+v", f, view, got)
		}
	}
}

func TestDraggedFullImageSelectionKeepsWindow(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name             string
		canvasW, canvasH int
		frame            Frame
	}{
		{"identity", 800, 800, Frame{Width: 800, Height: 800}},
		{"scaled down", 400, 400, Frame{Width: 800, Height: 800}},
		{"letterboxed wide", 600, 600, Frame{Width: 1000, Height: 500}},
		{"letterboxed tall", 500, 300, Frame{Width: 300, Height: 900}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout, err := display.Fit(tc.canvasW, tc.canvasH, tc.frame.Width, tc.frame.Height)
			if err != nil {
				t.Fatalf("fit: %v", err)
			}
			view := Window{CenterX: -0.75, CenterY: 0.1, Radius: 1.5}
			for i := 0; i < 3; i++ {
				region := selection.NewRegion(layout)
				region.Handle(selection.Event{Kind: selection.EventPress, X: layout.OffsetX, Y: layout.OffsetY})
				region.Handle(selection.Event{Kind: selection.EventDrag, X: 100000, Y: 100000})
				rect, ok := region.Selection()
				if !ok || rect != tc.frame.Bounds() {
					t.Fatalf("unexpected full selection=%+v ok=%t", rect, ok)
				}
				got, err := MapToWindow(rect, tc.frame, view)
				if err != nil {
					t.Fatalf("map: %v", err)
				}
				if got != view {
					t.Fatalf("pass %d moved window=%+v want=%+v", i, got, view)
				}
				view = got
			}
		})
	}
}

func TestMapBoxToWindowAspectLockedBox(t *testing.T) {
	testlog.Start(t)
	f := Frame{Width: 1000, Height: 500}
	view := Window{Radius: 1}
	// Pixels 0..999 x 0..99 locked to 2:1 keep the 100 rows.
	box, ok := selection.AspectLock(selection.Rect{Width: 999, Height: 99}, 2)
	if !ok {
		t.Fatalf("expected a box")
	}
	got, err := MapBoxToWindow(box, f, view)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	// Center pixel (500, 50); scale 2/500.
	if !near(got.CenterX, 0) || !near(got.CenterY, 0.8) || !near(got.Radius, 0.2) {
		t.Fatalf("unexpected window=%+v", got)
	}
	if _, err := MapBoxToWindow(selection.Box{Width: 0, Height: 1}, f, view); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for empty box, got %v", err)
	}
}

func TestMapToWindowZoomsIntoQuadrant(t *testing.T) {
	testlog.Start(t)
	f := Frame{Width: 800, Height: 800}
	view := DefaultWindow()
	got, err := MapToWindow(selection.Rect{Left: 400, Top: 0, Width: 399, Height: 399}, f, view)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	want := Window{CenterX: 1, CenterY: 1, Radius: 1}
	if !near(got.CenterX, want.CenterX) || !near(got.CenterY, want.CenterY) || !near(got.Radius, want.Radius) {
		t.Fatalf("unexpected window=%+v", got)
	}
}

func TestMapToWindowPointRecenters(t *testing.T) {
	testlog.Start(t)
	f := Frame{Width: 1000, Height: 500}
	view := Window{CenterX: 0, CenterY: 0, Radius: 1}
	got, err := MapToWindow(selection.Rect{Left: 750, Top: 125}, f, view)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if !near(got.CenterX, 1) || !near(got.CenterY, 0.5) || got.Radius != 1 {
		t.Fatalf("unexpected window=%+v", got)
	}
}

func TestMapToWindowUsesShorterSide(t *testing.T) {
	testlog.Start(t)
	f := Frame{Width: 800, Height: 800}
	got, err := MapToWindow(selection.Rect{Left: 0, Top: 0, Width: 199, Height: 99}, f, DefaultWindow())
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if !near(got.Radius, 0.25) {
		t.Fatalf("unexpected radius=%v", got.Radius)
	}
}

func TestMapToWindowRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	if _, err := MapToWindow(selection.Rect{}, Frame{Width: 0, Height: 10}, DefaultWindow()); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if _, err := MapToWindow(selection.Rect{}, Frame{Width: 10, Height: 10}, Window{Radius: 0}); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if _, err := MapToWindow(selection.Rect{Width: -1}, Frame{Width: 10, Height: 10}, DefaultWindow()); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for negative rect, got %v", err)
	}
}

package selection

// Layout places a render image inside a canvas. The image is drawn at
// (OffsetX, OffsetY) with size DisplayWidth x DisplayHeight and covers
// ImageWidth x ImageHeight render pixels.
type Layout struct {
	OffsetX       int
	OffsetY       int
	DisplayWidth  int
	DisplayHeight int
	ImageWidth    int
	ImageHeight   int
}

// Identity lays out a w x h image at the canvas origin, unscaled.
func Identity(w, h int) Layout {
	return Layout{DisplayWidth: w, DisplayHeight: h, ImageWidth: w, ImageHeight: h}
}

func (l Layout) Valid() bool {
	return l.DisplayWidth > 0 && l.DisplayHeight > 0 && l.ImageWidth > 0 && l.ImageHeight > 0
}

// Bounds is the selection covering every pixel of the render image.
func (l Layout) Bounds() Rect {
	return Rect{Width: l.ImageWidth - 1, Height: l.ImageHeight - 1}
}

// ToImage converts a canvas position into render-image pixels. The result may
// lie outside the image.
func (l Layout) ToImage(x, y int) Point {
	if !l.Valid() {
		return Point{X: x - l.OffsetX, Y: y - l.OffsetY}
	}
	return Point{
		X: floorDiv((x-l.OffsetX)*l.ImageWidth, l.DisplayWidth),
		Y: floorDiv((y-l.OffsetY)*l.ImageHeight, l.DisplayHeight),
	}
}

// ToCanvas converts render-image pixels back into canvas coordinates.
func (l Layout) ToCanvas(p Point) (float64, float64) {
	if !l.Valid() {
		return float64(p.X + l.OffsetX), float64(p.Y + l.OffsetY)
	}
	sx := float64(l.DisplayWidth) / float64(l.ImageWidth)
	sy := float64(l.DisplayHeight) / float64(l.ImageHeight)
	return float64(l.OffsetX) + float64(p.X)*sx, float64(l.OffsetY) + float64(p.Y)*sy
}

// BoxToCanvas converts an image area into canvas corners.
func (l Layout) BoxToCanvas(b Box) (x0, y0, x1, y1 float64) {
	sx, sy := 1.0, 1.0
	if l.Valid() {
		sx = float64(l.DisplayWidth) / float64(l.ImageWidth)
		sy = float64(l.DisplayHeight) / float64(l.ImageHeight)
	}
	ox, oy := float64(l.OffsetX), float64(l.OffsetY)
	return ox + b.Left*sx, oy + b.Top*sy, ox + b.Right()*sx, oy + b.Bottom()*sy
}

// Inside reports whether p is a pixel of the render image.
func (l Layout) Inside(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < l.ImageWidth && p.Y < l.ImageHeight
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

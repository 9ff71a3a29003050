// Package display composes the canvas shown to the user: the last render,
// letterboxed into the canvas, with the selection overlay on top.
package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/danmuck/mandelctl/internal/selection"
)

var ErrInvalidSize = errors.New("display: invalid size")

var (
	background   = color.RGBA{A: 0xff}
	outlineColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	lockedColor  = color.RGBA{R: 0xff, G: 0xd7, A: 0xff}
	cursorColor  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb0}
)

// Fit returns the largest centered placement of an imgW x imgH render inside
// a canvasW x canvasH canvas that keeps the render aspect.
func Fit(canvasW, canvasH, imgW, imgH int) (selection.Layout, error) {
	if canvasW <= 0 || canvasH <= 0 || imgW <= 0 || imgH <= 0 {
		return selection.Layout{}, fmt.Errorf("%w: canvas=%dx%d image=%dx%d", ErrInvalidSize, canvasW, canvasH, imgW, imgH)
	}
	layout := selection.Layout{ImageWidth: imgW, ImageHeight: imgH}
	renderAspect := float64(imgW) / float64(imgH)
	canvasAspect := float64(canvasW) / float64(canvasH)
	if renderAspect > canvasAspect {
		layout.DisplayWidth = canvasW
		layout.DisplayHeight = max(1, int(math.Round(float64(canvasW)/renderAspect)))
		layout.OffsetY = (canvasH - layout.DisplayHeight) / 2
	} else {
		layout.DisplayHeight = canvasH
		layout.DisplayWidth = max(1, int(math.Round(float64(canvasH)*renderAspect)))
		layout.OffsetX = (canvasW - layout.DisplayWidth) / 2
	}
	return layout, nil
}

// LoadImage decodes the PNG artifact written by the engine.
func LoadImage(path string) (image.Image, error) {
	img, err := gg.LoadPNG(path)
	if err != nil {
		return nil, fmt.Errorf("display: load %q: %w", path, err)
	}
	return img, nil
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("display: write %q: %w", path, err)
	}
	return nil
}

// Compose draws img into a canvasW x canvasH canvas using the region layout,
// then overlays the drawn selection, its aspect-locked box and the cursor
// crosshair. img may be nil before the first render.
func Compose(img image.Image, region *selection.Region, aspect float64, canvasW, canvasH int) (*image.RGBA, error) {
	if canvasW <= 0 || canvasH <= 0 {
		return nil, fmt.Errorf("%w: canvas=%dx%d", ErrInvalidSize, canvasW, canvasH)
	}
	dst := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, xdraw.Src)

	layout := region.Layout()
	if img != nil && layout.Valid() {
		target := image.Rect(layout.OffsetX, layout.OffsetY,
			layout.OffsetX+layout.DisplayWidth, layout.OffsetY+layout.DisplayHeight)
		xdraw.CatmullRom.Scale(dst, target, img, img.Bounds(), xdraw.Over, nil)
	}

	dc := gg.NewContextForRGBA(dst)
	dc.SetLineWidth(1)
	if rect, ok := region.Selection(); ok {
		if rect.IsPoint() {
			x, y := layout.ToCanvas(selection.Point{X: rect.Left, Y: rect.Top})
			dc.SetColor(outlineColor)
			dc.DrawLine(x-6, y, x+6, y)
			dc.DrawLine(x, y-6, x, y+6)
			dc.Stroke()
		} else {
			strokeBox(dc, layout, rect.Extent(), outlineColor)
			if locked, ok := selection.AspectLock(rect, aspect); ok {
				strokeBox(dc, layout, locked, lockedColor)
			}
		}
	}
	if p, ok := region.Cursor(); ok {
		x, y := layout.ToCanvas(p)
		dc.SetColor(cursorColor)
		dc.DrawLine(0, y+0.5, float64(canvasW), y+0.5)
		dc.DrawLine(x+0.5, 0, x+0.5, float64(canvasH))
		dc.Stroke()
	}
	return dst, nil
}

func strokeBox(dc *gg.Context, layout selection.Layout, b selection.Box, c color.Color) {
	x0, y0, x1, y1 := layout.BoxToCanvas(b)
	dc.SetColor(c)
	dc.DrawRectangle(x0+0.5, y0+0.5, x1-x0-1, y1-y0-1)
	dc.Stroke()
}

// Package selection owns the user-drawn zoom region.
//
// Ownership boundary:
// - canvas pixel events to render-image pixels (Layout)
// - anchor/drag rectangle normalization and clipping
// - aspect-locked sub-rectangle
// - cursor crosshair tracking
//
// All rectangles are in render-image pixels; canvas coordinates never leave
// this package.
package selection

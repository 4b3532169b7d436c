package geometry

import (
	"errors"
	"fmt"
)

var (
	// ErrGeometryUnavailable is returned when the display size is not yet
	// known, typically because layout has not been performed.
	ErrGeometryUnavailable = errors.New("geometry: display size unavailable")

	// ErrInvalidBoxSize is returned for a zero scan box size.
	ErrInvalidBoxSize = errors.New("geometry: scan box size must be positive")
)

// Size is a display size in points.
type Size struct {
	Width  float64
	Height float64
}

// IsZero reports whether either dimension is missing.
func (s Size) IsZero() bool { return s.Width <= 0 || s.Height <= 0 }

// Rect is an axis-aligned rectangle in display coordinates (origin top-left).
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the rectangle's midpoint.
func (r Rect) Center() (x, y float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// NormalizedRect is a region of interest in the detector's coordinate space.
// All components lie in [0,1]; the origin is the frame's top-left corner and
// the axes are independent of device rotation.
type NormalizedRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullFrame is the unconstrained region covering the whole frame.
var FullFrame = NormalizedRect{X: 0, Y: 0, Width: 1, Height: 1}

// IsZero reports whether the rectangle has no area.
func (n NormalizedRect) IsZero() bool { return n.Width <= 0 || n.Height <= 0 }

// Clamp returns the rectangle constrained to the unit square. Components are
// clipped rather than rejected so that an oversized scan box degrades to the
// visible portion of the frame.
func (n NormalizedRect) Clamp() NormalizedRect {
	x0 := clamp01(n.X)
	y0 := clamp01(n.Y)
	x1 := clamp01(n.X + n.Width)
	y1 := clamp01(n.Y + n.Height)
	return NormalizedRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (n NormalizedRect) String() string {
	return fmt.Sprintf("(%.3f,%.3f %.3fx%.3f)", n.X, n.Y, n.Width, n.Height)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FrameRectFunc maps a display rectangle into the detector's normalized
// coordinate space. Only the video-display layer can implement it: the
// transform depends on the live video dimensions, the current orientation and
// the aspect-fill crop, none of which this package tracks.
type FrameRectFunc func(Rect) NormalizedRect

// ComputeScanRegion returns a square of side boxSize centered in display.
// The result is not clamped to the display bounds: for an oversized boxSize
// the center stays correct and the rectangle extends past the display edges;
// MapToNormalized clamps the mapped region to the unit square instead.
func ComputeScanRegion(display Size, boxSize uint) (Rect, error) {
	if boxSize == 0 {
		return Rect{}, ErrInvalidBoxSize
	}
	if display.IsZero() {
		return Rect{}, fmt.Errorf("%w: %gx%g (layout pending?)", ErrGeometryUnavailable, display.Width, display.Height)
	}
	side := float64(boxSize)
	return Rect{
		X:      (display.Width - side) / 2,
		Y:      (display.Height - side) / 2,
		Width:  side,
		Height: side,
	}, nil
}

// MapToNormalized converts a display rectangle into the detector's region of
// interest by delegating to the display collaborator, then clamps the result
// into the unit square so the detector never sees out-of-range coordinates.
func MapToNormalized(displayRect Rect, frameRectFor FrameRectFunc) NormalizedRect {
	if frameRectFor == nil {
		return FullFrame
	}
	return frameRectFor(displayRect).Clamp()
}

package display

import (
	"fmt"
	"strings"
	"sync"

	"github.com/visionkit/scanbox/internal/geometry"
)

// Orientation is the device interface orientation. It is supplied by the
// embedding layer on rotation events, never polled from ambient state.
type Orientation int

const (
	Portrait Orientation = iota
	PortraitUpsideDown
	LandscapeLeft
	LandscapeRight
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case PortraitUpsideDown:
		return "portrait_upside_down"
	case LandscapeLeft:
		return "landscape_left"
	case LandscapeRight:
		return "landscape_right"
	default:
		return "unknown"
	}
}

// ParseOrientation maps a config string to an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portrait":
		return Portrait, nil
	case "portrait_upside_down", "upside_down":
		return PortraitUpsideDown, nil
	case "landscape_left":
		return LandscapeLeft, nil
	case "landscape_right", "landscape":
		return LandscapeRight, nil
	default:
		return Portrait, fmt.Errorf("display: unknown orientation %q", s)
	}
}

// Layer models the video-display side of the scan geometry: it knows the
// sensor frame dimensions, the display bounds the video is rendered into, and
// the current orientation, and it performs the aspect-fill display-to-frame
// mapping that nothing else in the system is allowed to reimplement.
//
// The sensor's native coordinate space is landscape-right with origin at the
// top-left corner; all other orientations are rotations of it.
type Layer struct {
	mu          sync.RWMutex
	frameW      float64 // sensor pixels, native orientation
	frameH      float64
	display     geometry.Size
	orientation Orientation
}

// NewLayer returns a layer for the given sensor frame size (native landscape
// orientation, e.g. 1920x1080) rendered into display with aspect-fill.
func NewLayer(frameW, frameH float64, display geometry.Size, o Orientation) *Layer {
	return &Layer{frameW: frameW, frameH: frameH, display: display, orientation: o}
}

// SetDisplaySize updates the display bounds after a layout pass.
func (l *Layer) SetDisplaySize(display geometry.Size) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.display = display
}

// SetOrientation records a rotation event.
func (l *Layer) SetOrientation(o Orientation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orientation = o
}

// Orientation returns the current orientation.
func (l *Layer) Orientation() Orientation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.orientation
}

// FrameRectFor maps a display rectangle into the detector's normalized frame
// coordinates, accounting for the aspect-fill crop and the current rotation.
// With unknown geometry it falls back to the full frame.
func (l *Layer) FrameRectFor(r geometry.Rect) geometry.NormalizedRect {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.frameW <= 0 || l.frameH <= 0 || l.display.IsZero() {
		return geometry.FullFrame
	}

	// Presented frame dimensions: the sensor frame rotated into the current
	// orientation before it is fitted to the display.
	pw, ph := l.frameW, l.frameH
	if l.orientation == Portrait || l.orientation == PortraitUpsideDown {
		pw, ph = ph, pw
	}

	// Aspect-fill: scale up until both display dimensions are covered, then
	// crop the overflow symmetrically.
	scale := l.display.Width / pw
	if s := l.display.Height / ph; s > scale {
		scale = s
	}
	fittedW := pw * scale
	fittedH := ph * scale
	ox := (fittedW - l.display.Width) / 2
	oy := (fittedH - l.display.Height) / 2

	// Display rect in presented-frame normalized coordinates.
	n := geometry.NormalizedRect{
		X:      (r.X + ox) / fittedW,
		Y:      (r.Y + oy) / fittedH,
		Width:  r.Width / fittedW,
		Height: r.Height / fittedH,
	}

	return rotateToSensor(n, l.orientation)
}

// rotateToSensor converts a rect in presented (rotated) normalized space back
// into the sensor's native landscape-right space.
func rotateToSensor(n geometry.NormalizedRect, o Orientation) geometry.NormalizedRect {
	switch o {
	case LandscapeRight:
		return n
	case LandscapeLeft:
		// Presented frame is the sensor rotated 180 degrees.
		return geometry.NormalizedRect{
			X:      1 - n.X - n.Width,
			Y:      1 - n.Y - n.Height,
			Width:  n.Width,
			Height: n.Height,
		}
	case Portrait:
		// Presented frame is the sensor rotated 90 degrees clockwise.
		return geometry.NormalizedRect{
			X:      n.Y,
			Y:      1 - n.X - n.Width,
			Width:  n.Height,
			Height: n.Width,
		}
	case PortraitUpsideDown:
		// Presented frame is the sensor rotated 90 degrees counter-clockwise.
		return geometry.NormalizedRect{
			X:      1 - n.Y - n.Height,
			Y:      n.X,
			Width:  n.Height,
			Height: n.Width,
		}
	default:
		return n
	}
}

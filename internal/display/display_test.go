package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionkit/scanbox/internal/geometry"
)

const eps = 1e-9

func assertRect(t *testing.T, want, got geometry.NormalizedRect) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps)
	assert.InDelta(t, want.Y, got.Y, eps)
	assert.InDelta(t, want.Width, got.Width, eps)
	assert.InDelta(t, want.Height, got.Height, eps)
}

func TestFrameRectForIdentityLandscapeRight(t *testing.T) {
	// Display matches the frame exactly: no crop, no rotation.
	l := NewLayer(1920, 1080, geometry.Size{Width: 1920, Height: 1080}, LandscapeRight)
	got := l.FrameRectFor(geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080})
	assertRect(t, geometry.FullFrame, got)

	got = l.FrameRectFor(geometry.Rect{X: 192, Y: 108, Width: 960, Height: 540})
	assertRect(t, geometry.NormalizedRect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}, got)
}

func TestFrameRectForAspectFillCrop(t *testing.T) {
	// 16:9 frame filled into a square display: scale is driven by height,
	// horizontal overflow is cropped symmetrically.
	l := NewLayer(1920, 1080, geometry.Size{Width: 1080, Height: 1080}, LandscapeRight)
	got := l.FrameRectFor(geometry.Rect{X: 0, Y: 0, Width: 1080, Height: 1080})
	// Fitted width 1920, crop 420 per side: x = 420/1920.
	assertRect(t, geometry.NormalizedRect{X: 420.0 / 1920.0, Y: 0, Width: 1080.0 / 1920.0, Height: 1}, got)
}

func TestFrameRectForPortraitRotation(t *testing.T) {
	// Portrait display with the portrait-presented frame matching it exactly
	// (1080x1920 presented). A rect hugging the presented top-left corner must
	// land at the sensor's top-right region after the 90 degree rotation.
	l := NewLayer(1920, 1080, geometry.Size{Width: 1080, Height: 1920}, Portrait)
	got := l.FrameRectFor(geometry.Rect{X: 0, Y: 0, Width: 108, Height: 192})
	assertRect(t, geometry.NormalizedRect{X: 0, Y: 0.9, Width: 0.1, Height: 0.1}, got)

	// The full display still covers the full frame.
	got = l.FrameRectFor(geometry.Rect{X: 0, Y: 0, Width: 1080, Height: 1920})
	assertRect(t, geometry.FullFrame, got)
}

func TestFrameRectForUpsideDown(t *testing.T) {
	l := NewLayer(1920, 1080, geometry.Size{Width: 1080, Height: 1920}, PortraitUpsideDown)
	got := l.FrameRectFor(geometry.Rect{X: 0, Y: 0, Width: 108, Height: 192})
	assertRect(t, geometry.NormalizedRect{X: 0.9, Y: 0, Width: 0.1, Height: 0.1}, got)
}

func TestFrameRectForLandscapeLeft(t *testing.T) {
	l := NewLayer(1920, 1080, geometry.Size{Width: 1920, Height: 1080}, LandscapeLeft)
	got := l.FrameRectFor(geometry.Rect{X: 0, Y: 0, Width: 192, Height: 108})
	assertRect(t, geometry.NormalizedRect{X: 0.9, Y: 0.9, Width: 0.1, Height: 0.1}, got)
}

func TestFrameRectForUnknownGeometryFallsBack(t *testing.T) {
	l := NewLayer(0, 0, geometry.Size{}, Portrait)
	got := l.FrameRectFor(geometry.Rect{X: 10, Y: 10, Width: 100, Height: 100})
	assert.Equal(t, geometry.FullFrame, got)
}

func TestSettersAffectMapping(t *testing.T) {
	l := NewLayer(1920, 1080, geometry.Size{}, LandscapeRight)
	assert.Equal(t, geometry.FullFrame, l.FrameRectFor(geometry.Rect{Width: 10, Height: 10}))

	l.SetDisplaySize(geometry.Size{Width: 1920, Height: 1080})
	got := l.FrameRectFor(geometry.Rect{X: 0, Y: 0, Width: 960, Height: 540})
	assertRect(t, geometry.NormalizedRect{X: 0, Y: 0, Width: 0.5, Height: 0.5}, got)

	l.SetOrientation(LandscapeLeft)
	assert.Equal(t, LandscapeLeft, l.Orientation())
}

func TestParseOrientation(t *testing.T) {
	o, err := ParseOrientation("landscape_left")
	require.NoError(t, err)
	assert.Equal(t, LandscapeLeft, o)

	o, err = ParseOrientation("Portrait")
	require.NoError(t, err)
	assert.Equal(t, Portrait, o)

	_, err = ParseOrientation("diagonal")
	assert.Error(t, err)
}

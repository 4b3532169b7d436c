package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScanRegionCentered(t *testing.T) {
	display := Size{Width: 400, Height: 800}
	r, err := ComputeScanRegion(display, 200)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, r.X, 1e-9)
	assert.InDelta(t, 300.0, r.Y, 1e-9)
	assert.InDelta(t, 200.0, r.Width, 1e-9)
	assert.InDelta(t, 200.0, r.Height, 1e-9)

	cx, cy := r.Center()
	assert.InDelta(t, 200.0, cx, 1e-9)
	assert.InDelta(t, 400.0, cy, 1e-9)
}

func TestComputeScanRegionContainedWhenFitting(t *testing.T) {
	display := Size{Width: 320, Height: 568}
	for _, side := range []uint{1, 100, 320} {
		r, err := ComputeScanRegion(display, side)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.X, 0.0, "side %d", side)
		assert.GreaterOrEqual(t, r.Y, 0.0, "side %d", side)
		assert.LessOrEqual(t, r.X+r.Width, display.Width, "side %d", side)
		assert.LessOrEqual(t, r.Y+r.Height, display.Height, "side %d", side)
	}
}

func TestComputeScanRegionOversizedKeepsCenter(t *testing.T) {
	display := Size{Width: 300, Height: 500}
	r, err := ComputeScanRegion(display, 600)
	require.NoError(t, err)
	// No clamp: the rect extends past the display but the center is correct.
	cx, cy := r.Center()
	assert.InDelta(t, 150.0, cx, 1e-9)
	assert.InDelta(t, 250.0, cy, 1e-9)
	assert.Less(t, r.X, 0.0)
	assert.InDelta(t, 600.0, r.Width, 1e-9)
}

func TestComputeScanRegionErrors(t *testing.T) {
	_, err := ComputeScanRegion(Size{}, 100)
	require.ErrorIs(t, err, ErrGeometryUnavailable)

	_, err = ComputeScanRegion(Size{Width: 100}, 100)
	require.ErrorIs(t, err, ErrGeometryUnavailable)

	_, err = ComputeScanRegion(Size{Width: 100, Height: 100}, 0)
	require.ErrorIs(t, err, ErrInvalidBoxSize)
}

func TestMapToNormalizedDelegatesAndClamps(t *testing.T) {
	in := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	var seen Rect
	got := MapToNormalized(in, func(r Rect) NormalizedRect {
		seen = r
		return NormalizedRect{X: -0.25, Y: 0.5, Width: 2, Height: 0.25}
	})
	assert.Equal(t, in, seen)
	assert.Equal(t, NormalizedRect{X: 0, Y: 0.5, Width: 1, Height: 0.25}, got)
}

func TestMapToNormalizedNilCollaborator(t *testing.T) {
	got := MapToNormalized(Rect{Width: 10, Height: 10}, nil)
	assert.Equal(t, FullFrame, got)
}

func TestNormalizedRectClamp(t *testing.T) {
	tests := []struct {
		name string
		in   NormalizedRect
		want NormalizedRect
	}{
		{"inside", NormalizedRect{0.1, 0.2, 0.3, 0.4}, NormalizedRect{0.1, 0.2, 0.3, 0.4}},
		{"overflow", NormalizedRect{0.5, 0.5, 1, 1}, NormalizedRect{0.5, 0.5, 0.5, 0.5}},
		{"negative origin", NormalizedRect{-1, -1, 3, 3}, NormalizedRect{0, 0, 1, 1}},
		{"fully outside", NormalizedRect{2, 2, 1, 1}, NormalizedRect{1, 1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Clamp())
		})
	}
}

func TestNormalizedRectIsZero(t *testing.T) {
	assert.True(t, NormalizedRect{}.IsZero())
	assert.False(t, FullFrame.IsZero())
}

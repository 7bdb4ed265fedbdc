package collage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewStateRoundTrip(t *testing.T) {
	views := []ViewState{
		{Zoom: 1},
		{Pan: Point{X: 40, Y: -25}, Zoom: 0.1},
		{Origin: Point{X: 12, Y: 80}, Pan: Point{X: -310.5, Y: 99.25}, Zoom: 3.0},
		{Pan: Point{X: 1e6, Y: -1e6}, Zoom: 0.73},
	}
	points := []Point{
		{},
		{X: 100, Y: 100},
		{X: -381.25, Y: 12077.5},
		{X: 0.001, Y: -0.001},
	}

	for _, v := range views {
		for _, p := range points {
			back := v.ToScreen(v.ToCanvas(p))
			assert.InDelta(t, p.X, back.X, 1e-6)
			assert.InDelta(t, p.Y, back.Y, 1e-6)

			canvas := v.ToCanvas(v.ToScreen(p))
			assert.InDelta(t, p.X, canvas.X, 1e-6)
			assert.InDelta(t, p.Y, canvas.Y, 1e-6)
		}
	}
}

func TestToCanvas(t *testing.T) {
	t.Run("divides by zoom after removing pan and origin", func(t *testing.T) {
		v := ViewState{Origin: Point{X: 10, Y: 10}, Pan: Point{X: 40, Y: -20}, Zoom: 2}
		got := v.ToCanvas(Point{X: 150, Y: 90})
		assert.InDelta(t, 50.0, got.X, 1e-9)
		assert.InDelta(t, 50.0, got.Y, 1e-9)
	})

	t.Run("identity view maps screen to canvas unchanged", func(t *testing.T) {
		v := NewViewState()
		got := v.ToCanvas(Point{X: 123, Y: 456})
		assert.Equal(t, Point{X: 123, Y: 456}, got)
	})
}

func TestZoomClamping(t *testing.T) {
	t.Run("zoom stays within bounds", func(t *testing.T) {
		v := NewViewState()
		v.ApplyZoom(100)
		assert.Equal(t, MaxZoom, v.Zoom)
		v.ApplyZoom(1e-9)
		assert.Equal(t, MinZoom, v.Zoom)
	})

	t.Run("zoom floor keeps transform invertible", func(t *testing.T) {
		v := ViewState{Zoom: ClampZoom(0)}
		assert.Greater(t, v.Zoom, 0.0)
		p := v.ToCanvas(Point{X: 1, Y: 1})
		back := v.ToScreen(p)
		assert.InDelta(t, 1.0, back.X, 1e-9)
	})
}

func TestClampItemScale(t *testing.T) {
	assert.Equal(t, MinItemScale, ClampItemScale(0.01))
	assert.Equal(t, MaxItemScale, ClampItemScale(50))
	assert.Equal(t, 1.25, ClampItemScale(1.25))
}

func TestNormalizeRotation(t *testing.T) {
	assert.InDelta(t, 0.0, NormalizeRotation(720), 1e-9)
	assert.InDelta(t, -170.0, NormalizeRotation(190), 1e-9)
	assert.InDelta(t, 180.0, NormalizeRotation(180), 1e-9)
	assert.InDelta(t, 180.0, NormalizeRotation(-180), 1e-9)
	assert.InDelta(t, 45.0, NormalizeRotation(405), 1e-9)
	assert.InDelta(t, -45.0, NormalizeRotation(-45), 1e-9)
}

func TestTransformContains(t *testing.T) {
	t.Run("axis-aligned box at scale 1", func(t *testing.T) {
		tr := Transform{Position: Point{X: 100, Y: 100}, Scale: 1}
		assert.True(t, tr.Contains(Point{X: 175, Y: 175}))
		assert.True(t, tr.Contains(Point{X: 100, Y: 100}))
		assert.False(t, tr.Contains(Point{X: 99, Y: 100}))
		assert.False(t, tr.Contains(Point{X: 260, Y: 175}))
	})

	t.Run("scale grows the hit area about the center", func(t *testing.T) {
		tr := Transform{Position: Point{X: 0, Y: 0}, Scale: 2}
		// Center (75,75), half extent 150.
		assert.True(t, tr.Contains(Point{X: -70, Y: 75}))
		assert.False(t, tr.Contains(Point{X: -230, Y: 75}))
	})

	t.Run("rotation is inverted before the box test", func(t *testing.T) {
		tr := Transform{Position: Point{X: 0, Y: 0}, Rotation: 45, Scale: 1}
		// A corner of the unrotated box no longer hits once rotated 45°.
		assert.False(t, tr.Contains(Point{X: 1, Y: 1}))
		// The rotated corner direction does.
		assert.True(t, tr.Contains(Point{X: 75, Y: 75 - 105}))
	})
}

func TestPinchMath(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 100, Y: 0}
	assert.InDelta(t, 100.0, Distance(a, b), 1e-9)
	assert.InDelta(t, 0.0, AngleDegrees(a, b), 1e-9)

	c := Point{X: 0, Y: 100}
	assert.InDelta(t, 90.0, AngleDegrees(a, c), 1e-9)
}

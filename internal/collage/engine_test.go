package collage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, items []Item, photos []PhotoRef) (*Engine, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	scene := NewSceneStore(gw, "album-1")
	scene.ApplySnapshot(Snapshot{AlbumID: "album-1", Items: items, Photos: photos})
	return NewEngine(scene), gw
}

func TestEngineDrag(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("drag at zoom 1 moves the item by the screen delta", func(t *testing.T) {
		e, gw := newTestEngine(t,
			[]Item{testItem("a", "p1", Point{X: 50, Y: 60}, 1)},
			[]PhotoRef{testPhoto("p1")})

		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 1, Position: Point{X: 100, Y: 100}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 1, Position: Point{X: 150, Y: 180}, Time: base.Add(time.Millisecond)})

		ri, ok := e.Scene().Item("a")
		require.True(t, ok)
		assert.True(t, ri.Overridden)
		assert.Equal(t, Point{X: 100, Y: 140}, ri.Transform.Position)

		e.HandlePointer(PointerEvent{Kind: EventUp, ContactID: 1, Position: Point{X: 150, Y: 180}, Time: base.Add(2 * time.Millisecond)})
		assert.Equal(t, PhasePending, e.Scene().Phase("a"))
		assert.Eventually(t, func() bool { return gw.updateCount("a") == 1 }, 2*time.Second, 5*time.Millisecond)
		update, _ := gw.lastUpdate("a")
		require.NotNil(t, update.Position)
		assert.Equal(t, Point{X: 100, Y: 140}, *update.Position)
	})

	t.Run("drag at zoom 2 divides the screen delta", func(t *testing.T) {
		e, gw := newTestEngine(t,
			[]Item{testItem("a", "p1", Point{X: 50, Y: 60}, 1)},
			[]PhotoRef{testPhoto("p1")})
		e.SetView(ViewState{Zoom: 2})

		// Canvas point (100,100) sits at screen (200,200) under zoom 2.
		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 1, Position: Point{X: 200, Y: 200}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 1, Position: Point{X: 240, Y: 200}, Time: base.Add(time.Millisecond)})
		e.HandlePointer(PointerEvent{Kind: EventUp, ContactID: 1, Position: Point{X: 240, Y: 200}, Time: base.Add(2 * time.Millisecond)})

		assert.Eventually(t, func() bool { return gw.updateCount("a") == 1 }, 2*time.Second, 5*time.Millisecond)
		update, _ := gw.lastUpdate("a")
		require.NotNil(t, update.Position)
		assert.Equal(t, Point{X: 70, Y: 60}, *update.Position)
	})

	t.Run("cancel mid-drag restores the item without a write", func(t *testing.T) {
		e, gw := newTestEngine(t,
			[]Item{testItem("a", "p1", Point{X: 50, Y: 60}, 1)},
			[]PhotoRef{testPhoto("p1")})

		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 1, Position: Point{X: 100, Y: 100}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 1, Position: Point{X: 160, Y: 100}, Time: base.Add(time.Millisecond)})
		e.Cancel()

		ri, _ := e.Scene().Item("a")
		assert.False(t, ri.Overridden)
		assert.Equal(t, Point{X: 50, Y: 60}, ri.Transform.Position)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 0, gw.updateCount("a"))
	})
}

func TestEnginePinch(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pinch scales and rotates, clamped and wrapped on commit", func(t *testing.T) {
		e, gw := newTestEngine(t,
			[]Item{testItem("a", "p1", Point{X: 0, Y: 0}, 1)},
			[]PhotoRef{testPhoto("p1")})

		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 1, Position: Point{X: 10, Y: 10}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 2, Position: Point{X: 110, Y: 10}, Time: base})
		// Distance 100 -> 500 asks for 5x; item scale caps at its maximum.
		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 2, Position: Point{X: 510, Y: 10}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventUp, ContactID: 1, Position: Point{X: 10, Y: 10}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventUp, ContactID: 2, Position: Point{X: 510, Y: 10}, Time: base})

		assert.Eventually(t, func() bool { return gw.updateCount("a") >= 1 }, 2*time.Second, 5*time.Millisecond)
		update, _ := gw.lastUpdate("a")
		require.NotNil(t, update.Scale)
		assert.InDelta(t, MaxItemScale, *update.Scale, 1e-9)
		require.NotNil(t, update.Rotation)
		assert.Nil(t, update.Position)
	})

	t.Run("releasing one finger hands the item to a live drag", func(t *testing.T) {
		e, _ := newTestEngine(t,
			[]Item{testItem("a", "p1", Point{X: 0, Y: 0}, 1)},
			[]PhotoRef{testPhoto("p1")})

		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 1, Position: Point{X: 10, Y: 10}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 2, Position: Point{X: 110, Y: 10}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 2, Position: Point{X: 120, Y: 10}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventUp, ContactID: 2, Position: Point{X: 120, Y: 10}, Time: base})

		before, ok := e.Scene().Item("a")
		require.True(t, ok)

		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 1, Position: Point{X: 50, Y: 10}, Time: base.Add(time.Millisecond)})

		after, ok := e.Scene().Item("a")
		require.True(t, ok)
		assert.True(t, after.Overridden)
		assert.InDelta(t, before.Transform.Position.X+40, after.Transform.Position.X, 1e-9)
		assert.InDelta(t, before.Transform.Position.Y, after.Transform.Position.Y, 1e-9)
	})
}

func TestEngineViewport(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("canvas press pans the viewport", func(t *testing.T) {
		e, _ := newTestEngine(t, nil, nil)
		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 1, Position: Point{X: 0, Y: 0}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 1, Position: Point{X: 30, Y: 40}, Time: base})
		assert.Equal(t, Point{X: 30, Y: 40}, e.View().Pan)
	})

	t.Run("two-contact canvas pinch zooms within bounds", func(t *testing.T) {
		e, _ := newTestEngine(t, nil, nil)
		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 1, Position: Point{X: 0, Y: 0}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 2, Position: Point{X: 100, Y: 0}, Time: base})
		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 2, Position: Point{X: 200, Y: 0}, Time: base})
		assert.InDelta(t, 2.0, e.View().Zoom, 1e-9)

		// A huge spread still clamps at the zoom ceiling.
		e.HandlePointer(PointerEvent{Kind: EventMove, ContactID: 2, Position: Point{X: 5000, Y: 0}, Time: base})
		assert.InDelta(t, MaxZoom, e.View().Zoom, 1e-9)
	})

	t.Run("SetView clamps zoom", func(t *testing.T) {
		e, _ := newTestEngine(t, nil, nil)
		e.SetView(ViewState{Zoom: 99})
		assert.Equal(t, MaxZoom, e.View().Zoom)
		e.SetView(ViewState{Zoom: 0.0001})
		assert.Equal(t, MinZoom, e.View().Zoom)
	})
}

func TestEngineTap(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	e, _ := newTestEngine(t,
		[]Item{testItem("a", "p1", Point{X: 0, Y: 0}, 1)},
		[]PhotoRef{testPhoto("p1")})
	var tapped string
	e.OnItemTap = func(id string) { tapped = id }

	e.HandlePointer(PointerEvent{Kind: EventDown, ContactID: 1, Position: Point{X: 20, Y: 20}, Time: base})
	e.HandlePointer(PointerEvent{Kind: EventUp, ContactID: 1, Position: Point{X: 20, Y: 20}, Time: base.Add(100 * time.Millisecond)})
	assert.Equal(t, "a", tapped)
}

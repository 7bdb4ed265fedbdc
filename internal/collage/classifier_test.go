package collage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedHitTest reports a hit on itemID inside the given transform's box,
// screen space == canvas space (zoom 1, no pan).
func fixedHitTest(itemID string, tr Transform) HitTestFunc {
	return func(screen Point) (string, bool) {
		if tr.Contains(screen) {
			return itemID, true
		}
		return "", false
	}
}

func noHit(Point) (string, bool) { return "", false }

func collectIntents(c *Classifier, events []PointerEvent) []Intent {
	var all []Intent
	for _, ev := range events {
		all = append(all, c.Handle(ev)...)
	}
	return all
}

func kinds(intents []Intent) []IntentKind {
	ks := make([]IntentKind, len(intents))
	for i, in := range intents {
		ks[i] = in.Kind
	}
	return ks
}

func TestClassifierTapVsDrag(t *testing.T) {
	itemBox := Transform{Position: Point{X: 50, Y: 50}, Scale: 1}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("short press with sub-threshold movement is a tap", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 100, Y: 100}, Time: base},
			{Kind: EventMove, ContactID: 1, Position: Point{X: 105, Y: 103}, Time: base.Add(50 * time.Millisecond)},
			{Kind: EventUp, ContactID: 1, Position: Point{X: 105, Y: 103}, Time: base.Add(120 * time.Millisecond)},
		})
		require.Len(t, intents, 1)
		assert.Equal(t, IntentTap, intents[0].Kind)
		assert.Equal(t, "item-1", intents[0].ItemID)
	})

	t.Run("movement at or past threshold is a drag, never a tap", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 100, Y: 100}, Time: base},
			{Kind: EventMove, ContactID: 1, Position: Point{X: 120, Y: 100}, Time: base.Add(40 * time.Millisecond)},
			{Kind: EventUp, ContactID: 1, Position: Point{X: 120, Y: 100}, Time: base.Add(90 * time.Millisecond)},
		})
		assert.Equal(t, []IntentKind{IntentItemDragStart, IntentItemDragMove, IntentItemDragEnd}, kinds(intents))
		for _, in := range intents {
			assert.NotEqual(t, IntentTap, in.Kind)
		}
	})

	t.Run("static press past the time ceiling is discarded", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 100, Y: 100}, Time: base},
			{Kind: EventUp, ContactID: 1, Position: Point{X: 100, Y: 100}, Time: base.Add(800 * time.Millisecond)},
		})
		assert.Empty(t, intents)
	})

	t.Run("drag start applies the full accumulated movement", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 100, Y: 100}, Time: base},
			{Kind: EventMove, ContactID: 1, Position: Point{X: 150, Y: 180}, Time: base.Add(30 * time.Millisecond)},
		})
		require.Len(t, intents, 2)
		assert.Equal(t, IntentItemDragMove, intents[1].Kind)
		assert.InDelta(t, 50.0, intents[1].Delta.X, 1e-9)
		assert.InDelta(t, 80.0, intents[1].Delta.Y, 1e-9)
	})
}

func TestClassifierCanvasPan(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("movement on empty canvas pans with no threshold", func(t *testing.T) {
		c := NewClassifier(noHit)
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 10, Y: 10}, Time: base},
			{Kind: EventMove, ContactID: 1, Position: Point{X: 13, Y: 11}, Time: base.Add(10 * time.Millisecond)},
			{Kind: EventMove, ContactID: 1, Position: Point{X: 20, Y: 15}, Time: base.Add(20 * time.Millisecond)},
			{Kind: EventUp, ContactID: 1, Position: Point{X: 20, Y: 15}, Time: base.Add(30 * time.Millisecond)},
		})
		require.Len(t, intents, 2)
		assert.Equal(t, IntentCanvasPan, intents[0].Kind)
		assert.Equal(t, Point{X: 3, Y: 1}, intents[0].Delta)
		assert.Equal(t, Point{X: 7, Y: 4}, intents[1].Delta)
	})

	t.Run("releasing a canvas press without movement emits nothing", func(t *testing.T) {
		c := NewClassifier(noHit)
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 10, Y: 10}, Time: base},
			{Kind: EventUp, ContactID: 1, Position: Point{X: 10, Y: 10}, Time: base.Add(60 * time.Millisecond)},
		})
		assert.Empty(t, intents)
	})
}

func TestClassifierPinchRotate(t *testing.T) {
	itemBox := Transform{Position: Point{X: -50, Y: -50}, Scale: 1}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("distance 100 to 150 and angle 0 to 30 scales 1.5x and rotates 30 degrees", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 0, Y: 0}, Time: base},
			{Kind: EventDown, ContactID: 2, Position: Point{X: 100, Y: 0}, Time: base.Add(10 * time.Millisecond)},
			{Kind: EventMove, ContactID: 2, Position: Point{X: 129.903810567, Y: 75}, Time: base.Add(25 * time.Millisecond)},
		})
		require.Len(t, intents, 2)
		assert.Equal(t, IntentItemPinchRotateStart, intents[0].Kind)
		assert.Equal(t, IntentItemPinchRotateMove, intents[1].Kind)
		assert.InDelta(t, 1.5, intents[1].ScaleDelta, 1e-6)
		assert.InDelta(t, 30.0, intents[1].RotationDelta, 1e-6)
	})

	t.Run("tracking is incremental per frame, not cumulative from start", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 0, Y: 0}, Time: base},
			{Kind: EventDown, ContactID: 2, Position: Point{X: 100, Y: 0}, Time: base},
			{Kind: EventMove, ContactID: 2, Position: Point{X: 120, Y: 0}, Time: base},
			{Kind: EventMove, ContactID: 2, Position: Point{X: 120, Y: 0}, Time: base},
		})
		require.Len(t, intents, 3)
		assert.InDelta(t, 1.2, intents[1].ScaleDelta, 1e-9)
		// No movement since the last frame: deltas are identity.
		assert.InDelta(t, 1.0, intents[2].ScaleDelta, 1e-9)
		assert.InDelta(t, 0.0, intents[2].RotationDelta, 1e-9)
	})

	t.Run("two contacts on the canvas zoom instead", func(t *testing.T) {
		c := NewClassifier(noHit)
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 0, Y: 0}, Time: base},
			{Kind: EventDown, ContactID: 2, Position: Point{X: 100, Y: 0}, Time: base},
			{Kind: EventMove, ContactID: 2, Position: Point{X: 50, Y: 0}, Time: base},
		})
		require.Len(t, intents, 1)
		assert.Equal(t, IntentCanvasZoom, intents[0].Kind)
		assert.InDelta(t, 0.5, intents[0].ScaleDelta, 1e-9)
	})

	t.Run("partial release re-baselines the remaining contact", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 0, Y: 0}, Time: base},
			{Kind: EventDown, ContactID: 2, Position: Point{X: 100, Y: 0}, Time: base},
			{Kind: EventUp, ContactID: 2, Position: Point{X: 100, Y: 0}, Time: base},
			// The first contact continues; its delta is measured from its
			// own last position, so no position jump.
			{Kind: EventMove, ContactID: 1, Position: Point{X: 4, Y: 0}, Time: base},
		})
		require.Len(t, intents, 3)
		assert.Equal(t, IntentItemPinchRotateStart, intents[0].Kind)
		assert.Equal(t, IntentItemPinchRotateEnd, intents[1].Kind)
		assert.Equal(t, IntentItemDragMove, intents[2].Kind)
		assert.Equal(t, Point{X: 4, Y: 0}, intents[2].Delta)
	})

	t.Run("third contact ends the session", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		intents := collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 0, Y: 0}, Time: base},
			{Kind: EventDown, ContactID: 2, Position: Point{X: 100, Y: 0}, Time: base},
			{Kind: EventDown, ContactID: 3, Position: Point{X: 50, Y: 50}, Time: base},
			// Events after the session ended are ignored.
			{Kind: EventMove, ContactID: 1, Position: Point{X: 30, Y: 30}, Time: base},
		})
		assert.Equal(t, []IntentKind{IntentItemPinchRotateStart, IntentItemPinchRotateEnd}, kinds(intents))
	})
}

func TestClassifierDeterminism(t *testing.T) {
	itemBox := Transform{Position: Point{X: 0, Y: 0}, Scale: 1}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	events := []PointerEvent{
		{Kind: EventDown, ContactID: 1, Position: Point{X: 20, Y: 20}, Time: base},
		{Kind: EventMove, ContactID: 1, Position: Point{X: 60, Y: 40}, Time: base.Add(20 * time.Millisecond)},
		{Kind: EventDown, ContactID: 2, Position: Point{X: 90, Y: 90}, Time: base.Add(40 * time.Millisecond)},
		{Kind: EventMove, ContactID: 2, Position: Point{X: 120, Y: 90}, Time: base.Add(60 * time.Millisecond)},
		{Kind: EventUp, ContactID: 1, Position: Point{X: 60, Y: 40}, Time: base.Add(80 * time.Millisecond)},
		{Kind: EventMove, ContactID: 2, Position: Point{X: 130, Y: 95}, Time: base.Add(100 * time.Millisecond)},
		{Kind: EventUp, ContactID: 2, Position: Point{X: 130, Y: 95}, Time: base.Add(120 * time.Millisecond)},
	}

	first := collectIntents(NewClassifier(fixedHitTest("item-1", itemBox)), events)
	second := collectIntents(NewClassifier(fixedHitTest("item-1", itemBox)), events)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestClassifierCancel(t *testing.T) {
	itemBox := Transform{Position: Point{X: 0, Y: 0}, Scale: 1}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("cancel mid-drag reports the discarded gesture", func(t *testing.T) {
		c := NewClassifier(fixedHitTest("item-1", itemBox))
		collectIntents(c, []PointerEvent{
			{Kind: EventDown, ContactID: 1, Position: Point{X: 20, Y: 20}, Time: base},
			{Kind: EventMove, ContactID: 1, Position: Point{X: 60, Y: 40}, Time: base},
		})
		intents := c.Cancel()
		require.Len(t, intents, 1)
		assert.Equal(t, IntentGestureCancelled, intents[0].Kind)
		assert.Equal(t, "item-1", intents[0].ItemID)
	})

	t.Run("cancel with no session is a no-op", func(t *testing.T) {
		c := NewClassifier(noHit)
		assert.Empty(t, c.Cancel())
	})
}

package collage

// Engine binds one client's viewport, classifier and scene store together:
// raw pointer events in, optimistic local state plus gateway mutations out.
// All methods are meant to be called from the owning surface's event loop.
type Engine struct {
	view       ViewState
	scene      *SceneStore
	classifier *Classifier

	// OnItemTap is invoked when a tap resolves on an item (open its
	// settings). Optional.
	OnItemTap func(itemID string)
}

// NewEngine creates an engine over the scene with a fresh viewport.
func NewEngine(scene *SceneStore) *Engine {
	e := &Engine{
		view:  NewViewState(),
		scene: scene,
	}
	e.classifier = NewClassifier(func(screen Point) (string, bool) {
		return scene.HitTest(e.view.ToCanvas(screen))
	})
	return e
}

// View returns the current viewport.
func (e *Engine) View() ViewState {
	return e.view
}

// SetView replaces the viewport (restoring a saved camera). Zoom is
// clamped.
func (e *Engine) SetView(v ViewState) {
	v.Zoom = ClampZoom(v.Zoom)
	e.view = v
}

// Scene returns the underlying scene store.
func (e *Engine) Scene() *SceneStore {
	return e.scene
}

// HandlePointer feeds one raw pointer event through the classifier and
// applies the resulting intents. It returns the intents for callers that
// want to observe classification (tests, debug overlays).
func (e *Engine) HandlePointer(ev PointerEvent) []Intent {
	intents := e.classifier.Handle(ev)
	for _, intent := range intents {
		e.apply(intent)
	}
	return intents
}

// Cancel discards any in-flight gesture without committing it. Call on
// surface teardown or album switch.
func (e *Engine) Cancel() {
	for _, intent := range e.classifier.Cancel() {
		e.apply(intent)
	}
}

func (e *Engine) apply(intent Intent) {
	switch intent.Kind {
	case IntentCanvasPan:
		// Pan is itself a screen-space offset; no inverse transform.
		e.view.ApplyPan(intent.Delta)

	case IntentCanvasZoom:
		e.view.ApplyZoom(intent.ScaleDelta)

	case IntentItemDragStart, IntentItemPinchRotateStart:
		e.scene.BeginOverride(intent.ItemID)

	case IntentItemDragMove:
		canvasDelta := intent.Delta.Div(e.view.Zoom)
		e.scene.AdjustOverride(intent.ItemID, func(t *Transform) {
			t.Position = t.Position.Add(canvasDelta)
		})

	case IntentItemPinchRotateMove:
		e.scene.AdjustOverride(intent.ItemID, func(t *Transform) {
			t.Scale = ClampItemScale(t.Scale * intent.ScaleDelta)
			t.Rotation += intent.RotationDelta
		})

	case IntentItemDragEnd:
		e.scene.CommitOverride(intent.ItemID, true, false)

	case IntentItemPinchRotateEnd:
		e.scene.CommitOverride(intent.ItemID, false, true)

	case IntentTap:
		if e.OnItemTap != nil {
			e.OnItemTap(intent.ItemID)
		}

	case IntentGestureCancelled:
		e.scene.CancelOverride(intent.ItemID)
	}
}

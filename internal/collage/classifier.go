package collage

import "time"

// Gesture thresholds. A single contact that moves less than DragThresholdPx
// and lifts within TapMaxDuration is a tap; crossing the distance threshold
// makes it a drag, and exceeding the time ceiling without movement makes it
// an abandoned touch that ends as a no-op.
const (
	DragThresholdPx = 15.0
	TapMaxDuration  = 500 * time.Millisecond
)

// EventKind is the kind of a raw pointer event.
type EventKind int

const (
	// EventDown: a contact landed on the surface.
	EventDown EventKind = iota
	// EventMove: an existing contact moved.
	EventMove
	// EventUp: a contact was released.
	EventUp
	// EventCancel: the owning surface is being torn down mid-gesture.
	EventCancel
)

// PointerEvent is one raw input event. Positions are screen space.
type PointerEvent struct {
	Kind      EventKind
	ContactID int
	Position  Point
	Time      time.Time
}

// IntentKind is a classified gesture intent.
type IntentKind int

const (
	IntentCanvasPan IntentKind = iota
	IntentCanvasZoom
	IntentItemDragStart
	IntentItemDragMove
	IntentItemDragEnd
	IntentItemPinchRotateStart
	IntentItemPinchRotateMove
	IntentItemPinchRotateEnd
	IntentTap
	// IntentGestureCancelled signals teardown of an in-flight gesture; any
	// local transform it produced is discarded, not committed.
	IntentGestureCancelled
)

func (k IntentKind) String() string {
	switch k {
	case IntentCanvasPan:
		return "canvas_pan"
	case IntentCanvasZoom:
		return "canvas_zoom"
	case IntentItemDragStart:
		return "item_drag_start"
	case IntentItemDragMove:
		return "item_drag_move"
	case IntentItemDragEnd:
		return "item_drag_end"
	case IntentItemPinchRotateStart:
		return "item_pinch_start"
	case IntentItemPinchRotateMove:
		return "item_pinch_move"
	case IntentItemPinchRotateEnd:
		return "item_pinch_end"
	case IntentTap:
		return "tap"
	case IntentGestureCancelled:
		return "gesture_cancelled"
	default:
		return "unknown"
	}
}

// Intent is one classified gesture step. Delta is a screen-space movement
// for pan and drag intents; ScaleDelta is multiplicative and RotationDelta
// additive (degrees) for pinch and zoom intents.
type Intent struct {
	Kind          IntentKind
	ItemID        string
	Delta         Point
	ScaleDelta    float64
	RotationDelta float64
}

// HitTestFunc resolves a screen-space point to the topmost item under it, if
// any. The caller maps through its current view state.
type HitTestFunc func(screen Point) (itemID string, ok bool)

// Classifier turns a stream of pointer events into gesture intents. It owns
// the session map keyed by session id; one session spans one continuous
// touch interaction, and every contact belongs to the active session.
//
// Classification is deterministic: an identical event sequence always yields
// the identical intent sequence.
type Classifier struct {
	hitTest  HitTestFunc
	sessions map[int64]*Session
	activeID int64
	nextID   int64
}

// NewClassifier creates a classifier using hitTest to resolve gesture
// targets.
func NewClassifier(hitTest HitTestFunc) *Classifier {
	return &Classifier{
		hitTest:  hitTest,
		sessions: make(map[int64]*Session),
	}
}

// active returns the session the current touch interaction belongs to.
func (c *Classifier) active() *Session {
	if c.activeID == 0 {
		return nil
	}
	return c.sessions[c.activeID]
}

func (c *Classifier) teardown(s *Session) {
	delete(c.sessions, s.id)
	if c.activeID == s.id {
		c.activeID = 0
	}
}

// Handle consumes one pointer event and returns the resulting intents, in
// order. An event that changes nothing returns an empty slice.
func (c *Classifier) Handle(ev PointerEvent) []Intent {
	switch ev.Kind {
	case EventDown:
		return c.handleDown(ev)
	case EventMove:
		return c.handleMove(ev)
	case EventUp:
		return c.handleUp(ev)
	case EventCancel:
		return c.Cancel()
	default:
		return nil
	}
}

// Cancel discards the active session without committing anything. Used when
// the owning surface unmounts or the album changes mid-gesture.
func (c *Classifier) Cancel() []Intent {
	s := c.active()
	if s == nil {
		return nil
	}
	c.teardown(s)
	if s.targetsItem() && s.state != statePending {
		return []Intent{{Kind: IntentGestureCancelled, ItemID: s.TargetItem}}
	}
	return nil
}

func (c *Classifier) handleDown(ev PointerEvent) []Intent {
	s := c.active()
	if s == nil {
		var target string
		if id, ok := c.hitTest(ev.Position); ok {
			target = id
		}
		c.nextID++
		s = newSession(c.nextID, target, ev.ContactID, ev.Position, ev.Time)
		c.sessions[s.id] = s
		c.activeID = s.id
		return nil
	}

	switch s.contactCount() {
	case 1:
		// Second contact: the session becomes a pinch. A drag already in
		// progress commits what it has before the pinch takes over.
		var intents []Intent
		if s.state == stateDragging && s.targetsItem() {
			intents = append(intents, Intent{Kind: IntentItemDragEnd, ItemID: s.TargetItem})
		}
		s.addContact(ev.ContactID, ev.Position)
		s.state = statePinching
		s.baselinePinch()
		if s.targetsItem() {
			intents = append(intents, Intent{Kind: IntentItemPinchRotateStart, ItemID: s.TargetItem})
		}
		return intents
	default:
		// A third contact ends the session.
		return c.endSession(s, ev.Time)
	}
}

func (c *Classifier) handleMove(ev PointerEvent) []Intent {
	s := c.active()
	if s == nil {
		return nil
	}
	prev, known := s.contacts[ev.ContactID]
	if !known {
		return nil
	}
	s.contacts[ev.ContactID] = ev.Position

	if s.contactCount() >= 2 {
		return c.pinchFrame(s)
	}

	delta := ev.Position.Sub(prev)

	if s.targetsItem() {
		switch s.state {
		case statePending:
			if Distance(ev.Position, s.startPos) < DragThresholdPx {
				return nil
			}
			s.state = stateDragging
			// Apply the full accumulated movement so the item does not lag
			// the finger by the threshold distance.
			return []Intent{
				{Kind: IntentItemDragStart, ItemID: s.TargetItem},
				{Kind: IntentItemDragMove, ItemID: s.TargetItem, Delta: ev.Position.Sub(s.startPos)},
			}
		case stateDragging:
			return []Intent{{Kind: IntentItemDragMove, ItemID: s.TargetItem, Delta: delta}}
		}
		return nil
	}

	// Canvas target: any movement pans, no threshold.
	s.state = stateDragging
	return []Intent{{Kind: IntentCanvasPan, Delta: delta}}
}

// pinchFrame emits the incremental scale/rotation step for the current
// contact positions and advances the baselines.
func (c *Classifier) pinchFrame(s *Session) []Intent {
	a, b, ok := s.pinchPair()
	if !ok {
		return nil
	}
	dist := Distance(a, b)
	angle := AngleDegrees(a, b)

	scaleDelta := 1.0
	if s.prevDistance > 0 {
		scaleDelta = dist / s.prevDistance
	}
	rotationDelta := NormalizeRotation(angle - s.prevAngle)

	s.prevDistance = dist
	s.prevAngle = angle

	if s.targetsItem() {
		return []Intent{{
			Kind:          IntentItemPinchRotateMove,
			ItemID:        s.TargetItem,
			ScaleDelta:    scaleDelta,
			RotationDelta: rotationDelta,
		}}
	}
	return []Intent{{Kind: IntentCanvasZoom, ScaleDelta: scaleDelta}}
}

func (c *Classifier) handleUp(ev PointerEvent) []Intent {
	s := c.active()
	if s == nil {
		return nil
	}
	if _, known := s.contacts[ev.ContactID]; !known {
		return nil
	}
	s.removeContact(ev.ContactID)

	switch s.contactCount() {
	case 0:
		return c.endSession(s, ev.Time)
	case 1:
		// Partial release: the pinch ends and the remaining contact
		// continues as a drag or pan from a fresh reference position.
		var intents []Intent
		if s.state == statePinching && s.targetsItem() {
			intents = append(intents, Intent{Kind: IntentItemPinchRotateEnd, ItemID: s.TargetItem})
		}
		s.state = stateDragging
		s.rebaseline()
		if s.targetsItem() {
			// The handoff drag needs its own start so the override
			// reopens; the pinch-end above already committed it.
			intents = append(intents, Intent{Kind: IntentItemDragStart, ItemID: s.TargetItem})
		}
		return intents
	default:
		return nil
	}
}

// endSession tears the session down and emits whatever its final state owes:
// a tap for a short untraveled press, an end intent for a drag or pinch.
func (c *Classifier) endSession(s *Session, at time.Time) []Intent {
	c.teardown(s)

	switch s.state {
	case statePending:
		if s.targetsItem() && at.Sub(s.startTime) <= TapMaxDuration {
			return []Intent{{Kind: IntentTap, ItemID: s.TargetItem}}
		}
		// Long static touch past the ceiling: abandoned, not a tap.
		return nil
	case stateDragging:
		if s.targetsItem() {
			return []Intent{{Kind: IntentItemDragEnd, ItemID: s.TargetItem}}
		}
		return nil
	case statePinching:
		if s.targetsItem() {
			return []Intent{{Kind: IntentItemPinchRotateEnd, ItemID: s.TargetItem}}
		}
		return nil
	}
	return nil
}

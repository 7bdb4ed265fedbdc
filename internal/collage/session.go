package collage

import "time"

// sessionState tracks where a gesture session is in its lifecycle.
type sessionState int

const (
	// statePending: contact down, not yet classified as drag, pan or pinch.
	statePending sessionState = iota
	// stateDragging: single-contact movement (item drag or canvas pan).
	stateDragging
	// statePinching: two contacts, tracking distance and angle.
	statePinching
)

// Session is the scratch state for one continuous touch interaction, from
// first contact to all-contacts-released. Sessions are created and torn down
// explicitly by the Classifier; there is no ambient per-item tracking state.
type Session struct {
	id int64

	// TargetItem is the id of the item the first contact landed on, or
	// empty when the target is the canvas itself.
	TargetItem string

	state     sessionState
	startTime time.Time
	startPos  Point

	// contacts maps contact id to its last seen screen position.
	contacts map[int]Point
	// order lists contact ids in landing order; the first two define the
	// pinch pair.
	order []int

	// prevDistance and prevAngle are the pinch baselines, updated every
	// frame so scale and rotation deltas stay incremental rather than
	// cumulative-from-start.
	prevDistance float64
	prevAngle    float64
}

func newSession(id int64, targetItem string, contactID int, pos Point, at time.Time) *Session {
	return &Session{
		id:         id,
		TargetItem: targetItem,
		state:      statePending,
		startTime:  at,
		startPos:   pos,
		contacts:   map[int]Point{contactID: pos},
		order:      []int{contactID},
	}
}

func (s *Session) addContact(contactID int, pos Point) {
	if _, ok := s.contacts[contactID]; ok {
		return
	}
	s.contacts[contactID] = pos
	s.order = append(s.order, contactID)
}

func (s *Session) removeContact(contactID int) {
	if _, ok := s.contacts[contactID]; !ok {
		return
	}
	delete(s.contacts, contactID)
	for i, id := range s.order {
		if id == contactID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Session) contactCount() int {
	return len(s.contacts)
}

// pinchPair returns the screen positions of the first two contacts.
func (s *Session) pinchPair() (Point, Point, bool) {
	if len(s.order) < 2 {
		return Point{}, Point{}, false
	}
	return s.contacts[s.order[0]], s.contacts[s.order[1]], true
}

// baselinePinch records the current inter-contact distance and angle as the
// reference for the next frame's deltas.
func (s *Session) baselinePinch() {
	a, b, ok := s.pinchPair()
	if !ok {
		return
	}
	s.prevDistance = Distance(a, b)
	s.prevAngle = AngleDegrees(a, b)
}

// rebaseline resets the remaining single contact's reference position after
// a partial release, so the continuing drag or pan does not jump.
func (s *Session) rebaseline() {
	if len(s.order) == 1 {
		s.startPos = s.contacts[s.order[0]]
	}
}

func (s *Session) targetsItem() bool {
	return s.TargetItem != ""
}

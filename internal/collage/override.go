package collage

import "time"

// OverridePhase is the per-item transform state.
type OverridePhase int

const (
	// PhaseAuthoritative: no local override; the item renders straight from
	// the scene store's remote value.
	PhaseAuthoritative OverridePhase = iota
	// PhaseActive: a gesture is mutating the item right now; the local
	// value wins over whatever the store holds.
	PhaseActive
	// PhasePending: the gesture ended and its final value was sent
	// upstream; the local value keeps winning until the gateway echoes the
	// write back.
	PhasePending
)

// itemOverride holds one item's optimistic transform while it diverges from
// the authoritative state.
type itemOverride struct {
	phase       OverridePhase
	transform   Transform
	committedAt time.Time
}

// overrideSet tracks local optimistic transforms per item id. It is owned by
// the SceneStore, which serializes access.
type overrideSet struct {
	byItem map[string]*itemOverride
}

func newOverrideSet() *overrideSet {
	return &overrideSet{byItem: make(map[string]*itemOverride)}
}

// begin starts (or resumes) an override with base as the starting value.
// Resuming a pending override keeps its current optimistic value so a new
// gesture on a not-yet-echoed item does not snap back.
func (o *overrideSet) begin(itemID string, base Transform) {
	if ov, ok := o.byItem[itemID]; ok {
		ov.phase = PhaseActive
		return
	}
	o.byItem[itemID] = &itemOverride{phase: PhaseActive, transform: base}
}

// adjust mutates an active override in place. No-op if the item has none.
func (o *overrideSet) adjust(itemID string, fn func(*Transform)) {
	ov, ok := o.byItem[itemID]
	if !ok || ov.phase != PhaseActive {
		return
	}
	fn(&ov.transform)
}

// value returns the override transform if one is in effect.
func (o *overrideSet) value(itemID string) (Transform, bool) {
	ov, ok := o.byItem[itemID]
	if !ok {
		return Transform{}, false
	}
	return ov.transform, true
}

// phase returns the item's current override phase.
func (o *overrideSet) phase(itemID string) OverridePhase {
	ov, ok := o.byItem[itemID]
	if !ok {
		return PhaseAuthoritative
	}
	return ov.phase
}

// commit moves an active override to pending and returns the final value,
// with rotation wrapped into (-180, 180] so the committed value and the
// echoed remote value compare equal.
func (o *overrideSet) commit(itemID string, at time.Time) (Transform, bool) {
	ov, ok := o.byItem[itemID]
	if !ok || ov.phase != PhaseActive {
		return Transform{}, false
	}
	ov.transform.Rotation = NormalizeRotation(ov.transform.Rotation)
	ov.phase = PhasePending
	ov.committedAt = at
	return ov.transform, true
}

// cancel discards an override without committing it.
func (o *overrideSet) cancel(itemID string) {
	delete(o.byItem, itemID)
}

// reconcile drops a pending override once the remote value for the item
// matches the committed one or postdates the commit. Active overrides are
// left alone; the gesture still owns them.
func (o *overrideSet) reconcile(item Item) {
	ov, ok := o.byItem[item.ID]
	if !ok || ov.phase != PhasePending {
		return
	}
	if item.Transform.Equal(ov.transform) || item.UpdatedAt.After(ov.committedAt) {
		delete(o.byItem, item.ID)
	}
}

// prune drops overrides for items that no longer exist (concurrent
// deletion); the gesture's target simply vanished.
func (o *overrideSet) prune(present map[string]Item) {
	for id := range o.byItem {
		if _, ok := present[id]; !ok {
			delete(o.byItem, id)
		}
	}
}

package collage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/collagesync/server/internal/observability"
)

// RenderItem is one entry in the drawable item list: the remote document
// joined with its photo, with any local override already applied to the
// transform.
type RenderItem struct {
	Item
	Photo      PhotoRef
	Overridden bool
}

// SceneStore mirrors the remote collage for one album (or the aggregate
// collage when albumID is empty). Its item set is replaced wholesale by
// every snapshot from the gateway's change feed; gesture code never writes
// the item set directly, it goes through the mutation API and waits for the
// echo like every other client.
type SceneStore struct {
	mu sync.Mutex

	gw      Gateway
	albumID string
	logger  *observability.Logger

	items     map[string]Item
	itemOrder map[string]int // arrival index per snapshot, tie-break for z sort
	photos    map[string]PhotoRef
	overrides *overrideSet

	// OnChange, when set, is invoked after every applied snapshot. Set it
	// before Start.
	OnChange func()

	cancel context.CancelFunc
}

// NewSceneStore creates a store for one album's collage. Pass an empty
// albumID for the aggregate "all photos" collage.
func NewSceneStore(gw Gateway, albumID string) *SceneStore {
	return &SceneStore{
		gw:        gw,
		albumID:   albumID,
		logger:    observability.WithField("album_id", albumID),
		items:     make(map[string]Item),
		itemOrder: make(map[string]int),
		photos:    make(map[string]PhotoRef),
		overrides: newOverrideSet(),
	}
}

// Start subscribes to the gateway's change feed and applies snapshots until
// ctx is cancelled or Stop is called.
func (s *SceneStore) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	feed, err := s.gw.Subscribe(ctx, s.albumID)
	if err != nil {
		cancel()
		return err
	}

	go func() {
		for snap := range feed {
			s.ApplySnapshot(snap)
		}
	}()
	return nil
}

// Stop tears the subscription down. Any in-flight gesture against this
// scene must be cancelled by the owner; a pending commit that was already
// dispatched is not recalled.
func (s *SceneStore) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// ApplySnapshot replaces the store's derived state with the snapshot's full
// item and photo sets, then reconciles local overrides against it.
func (s *SceneStore) ApplySnapshot(snap Snapshot) {
	s.mu.Lock()

	s.items = make(map[string]Item, len(snap.Items))
	s.itemOrder = make(map[string]int, len(snap.Items))
	for i, item := range snap.Items {
		s.items[item.ID] = item
		s.itemOrder[item.ID] = i
	}

	s.photos = make(map[string]PhotoRef, len(snap.Photos))
	for _, p := range snap.Photos {
		s.photos[p.ID] = p
	}

	for _, item := range s.items {
		s.overrides.reconcile(item)
	}
	s.overrides.prune(s.items)

	onChange := s.OnChange
	s.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// Items returns the drawable list in render order: ascending zIndex, ties
// broken by snapshot arrival order. Items whose photo is missing (deleted
// concurrently) are dropped, not errored.
func (s *SceneStore) Items() []RenderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderListLocked()
}

func (s *SceneStore) renderListLocked() []RenderItem {
	list := make([]RenderItem, 0, len(s.items))
	for _, item := range s.items {
		photo, ok := s.photos[item.PhotoID]
		if !ok {
			continue
		}
		ri := RenderItem{Item: item, Photo: photo}
		if t, ok := s.overrides.value(item.ID); ok {
			ri.Transform = t
			ri.Overridden = true
		}
		list = append(list, ri)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ZIndex != list[j].ZIndex {
			return list[i].ZIndex < list[j].ZIndex
		}
		return s.itemOrder[list[i].ID] < s.itemOrder[list[j].ID]
	})
	return list
}

// Item returns one item with its override applied.
func (s *SceneStore) Item(id string) (RenderItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return RenderItem{}, false
	}
	ri := RenderItem{Item: item, Photo: s.photos[item.PhotoID]}
	if t, ok := s.overrides.value(id); ok {
		ri.Transform = t
		ri.Overridden = true
	}
	return ri, true
}

// Phase returns the item's override phase.
func (s *SceneStore) Phase(id string) OverridePhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrides.phase(id)
}

// HitTest returns the topmost rendered item containing the canvas-space
// point.
func (s *SceneStore) HitTest(canvasPoint Point) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.renderListLocked()
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Transform.Contains(canvasPoint) {
			return list[i].ID, true
		}
	}
	return "", false
}

// BeginOverride starts a local override for a gesture, seeded from the
// item's current rendered transform.
func (s *SceneStore) BeginOverride(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.overrides.value(id)
	if !ok {
		item, present := s.items[id]
		if !present {
			return
		}
		base = item.Transform
	}
	s.overrides.begin(id, base)
}

// AdjustOverride mutates the item's active override.
func (s *SceneStore) AdjustOverride(id string, fn func(*Transform)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.adjust(id, fn)
}

// CancelOverride discards an in-flight override without committing it.
func (s *SceneStore) CancelOverride(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides.cancel(id)
}

// CommitOverride sends the override's final value upstream as a partial
// update carrying only the field group the gesture changed, and parks the
// override in the pending phase until the write echoes back. Fire and
// forget: a failure is logged and the override simply never reconciles.
func (s *SceneStore) CommitOverride(id string, position, scaleRotation bool) {
	s.mu.Lock()
	final, ok := s.overrides.commit(id, time.Now().UTC())
	s.mu.Unlock()
	if !ok {
		return
	}

	var update ItemUpdate
	if position {
		p := final.Position
		update.Position = &p
	}
	if scaleRotation {
		rot := final.Rotation
		scale := final.Scale
		update.Rotation = &rot
		update.Scale = &scale
	}
	if update.IsEmpty() {
		return
	}
	s.dispatchUpdate(id, update)
}

// UpdateItem applies an explicit partial update (settings edits: display
// mode, caption). Fire and forget.
func (s *SceneStore) UpdateItem(id string, update ItemUpdate) {
	if update.IsEmpty() {
		return
	}
	s.dispatchUpdate(id, update)
}

// RemoveItem deletes an item from the collage. The item disappears from the
// next snapshot; a concurrent delete racing a gesture fails silently.
func (s *SceneStore) RemoveItem(id string) {
	go func() {
		if err := s.gw.DeleteItem(context.Background(), id); err != nil {
			s.logger.WithField("item_id", id).Warnf("delete item failed: %v", err)
		}
	}()
}

// BringToFront assigns the item a zIndex strictly above every other item's
// at call time. No-op on an empty scene.
func (s *SceneStore) BringToFront(id string) {
	s.mu.Lock()
	z, ok := s.maxZLocked()
	s.mu.Unlock()
	if !ok {
		return
	}
	next := z + 1
	s.dispatchUpdate(id, ItemUpdate{ZIndex: &next})
}

// SendToBack assigns the item a zIndex strictly below every other item's at
// call time. No-op on an empty scene.
func (s *SceneStore) SendToBack(id string) {
	s.mu.Lock()
	z, ok := s.minZLocked()
	s.mu.Unlock()
	if !ok {
		return
	}
	next := z - 1
	s.dispatchUpdate(id, ItemUpdate{ZIndex: &next})
}

func (s *SceneStore) maxZLocked() (float64, bool) {
	var max float64
	found := false
	for _, item := range s.items {
		if !found || item.ZIndex > max {
			max = item.ZIndex
			found = true
		}
	}
	return max, found
}

func (s *SceneStore) minZLocked() (float64, bool) {
	var min float64
	found := false
	for _, item := range s.items {
		if !found || item.ZIndex < min {
			min = item.ZIndex
			found = true
		}
	}
	return min, found
}

// AddPhoto creates a new collage item for the photo. The server assigns the
// id and the randomized initial placement; the result arrives through the
// change feed like every other write.
func (s *SceneStore) AddPhoto(photoID string) {
	go func() {
		if _, err := s.gw.CreateItem(context.Background(), s.albumID, photoID); err != nil {
			s.logger.WithField("photo_id", photoID).Warnf("add photo to collage failed: %v", err)
		}
	}()
}

// dispatchUpdate issues the gateway write off the gesture path. Mutations
// never block input handling and are never retried; a rejected write is
// logged and dropped (the item may have been deleted concurrently, which is
// not an error here).
func (s *SceneStore) dispatchUpdate(id string, update ItemUpdate) {
	go func() {
		if err := s.gw.UpdateItem(context.Background(), id, update); err != nil {
			s.logger.WithField("item_id", id).Warnf("update item failed: %v", err)
		}
	}()
}

package collage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu      sync.Mutex
	feed    chan Snapshot
	updates map[string][]ItemUpdate
	creates []string // "albumID/photoID"
	deletes []string

	updateErr      error
	updateAttempts int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		feed:    make(chan Snapshot, 8),
		updates: make(map[string][]ItemUpdate),
	}
}

func (g *fakeGateway) Subscribe(ctx context.Context, albumID string) (<-chan Snapshot, error) {
	return g.feed, nil
}

func (g *fakeGateway) CreateItem(ctx context.Context, albumID, photoID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates = append(g.creates, albumID+"/"+photoID)
	return "item-new", nil
}

func (g *fakeGateway) UpdateItem(ctx context.Context, itemID string, update ItemUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateAttempts++
	if g.updateErr != nil {
		return g.updateErr
	}
	g.updates[itemID] = append(g.updates[itemID], update)
	return nil
}

func (g *fakeGateway) DeleteItem(ctx context.Context, itemID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes = append(g.deletes, itemID)
	return nil
}

func (g *fakeGateway) attemptCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updateAttempts
}

func (g *fakeGateway) updateCount(itemID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.updates[itemID])
}

func (g *fakeGateway) lastUpdate(itemID string) (ItemUpdate, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	us := g.updates[itemID]
	if len(us) == 0 {
		return ItemUpdate{}, false
	}
	return us[len(us)-1], true
}

func testItem(id, photoID string, pos Point, z float64) Item {
	return Item{
		ID:          id,
		PhotoID:     photoID,
		Transform:   Transform{Position: pos, Scale: 1},
		ZIndex:      z,
		DisplayMode: DisplayPolaroid,
		UpdatedAt:   time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testPhoto(id string) PhotoRef {
	return PhotoRef{ID: id, Filename: id + ".jpg", URL: "/api/photos/" + id + "/file"}
}

func TestSceneStoreSnapshots(t *testing.T) {
	t.Run("each snapshot replaces the item set wholesale", func(t *testing.T) {
		s := NewSceneStore(newFakeGateway(), "album-1")
		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("a", "p1", Point{}, 1), testItem("b", "p2", Point{}, 2)},
			Photos:  []PhotoRef{testPhoto("p1"), testPhoto("p2")},
		})
		require.Len(t, s.Items(), 2)

		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("b", "p2", Point{X: 9}, 2)},
			Photos:  []PhotoRef{testPhoto("p2")},
		})
		items := s.Items()
		require.Len(t, items, 1)
		assert.Equal(t, "b", items[0].ID)
		assert.Equal(t, 9.0, items[0].Transform.Position.X)
	})

	t.Run("items whose photo is missing are dropped from the render list", func(t *testing.T) {
		s := NewSceneStore(newFakeGateway(), "album-1")
		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("a", "p1", Point{}, 1), testItem("b", "gone", Point{}, 2)},
			Photos:  []PhotoRef{testPhoto("p1")},
		})
		items := s.Items()
		require.Len(t, items, 1)
		assert.Equal(t, "a", items[0].ID)
	})

	t.Run("render order is ascending zIndex with arrival order as tie-break", func(t *testing.T) {
		s := NewSceneStore(newFakeGateway(), "album-1")
		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items: []Item{
				testItem("front", "p1", Point{}, 30),
				testItem("tie-first", "p2", Point{}, 10),
				testItem("tie-second", "p3", Point{}, 10),
			},
			Photos: []PhotoRef{testPhoto("p1"), testPhoto("p2"), testPhoto("p3")},
		})
		items := s.Items()
		require.Len(t, items, 3)
		assert.Equal(t, "tie-first", items[0].ID)
		assert.Equal(t, "tie-second", items[1].ID)
		assert.Equal(t, "front", items[2].ID)
	})

	t.Run("snapshots from the feed reach the store", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "album-1")
		changed := make(chan struct{}, 1)
		s.OnChange = func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		}
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		gw.feed <- Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("a", "p1", Point{}, 1)},
			Photos:  []PhotoRef{testPhoto("p1")},
		}
		select {
		case <-changed:
		case <-time.After(2 * time.Second):
			t.Fatal("snapshot never applied")
		}
		assert.Len(t, s.Items(), 1)
	})
}

func TestSceneStoreHitTest(t *testing.T) {
	s := NewSceneStore(newFakeGateway(), "")
	// Two overlapping items; "top" has the higher zIndex and wins the hit.
	s.ApplySnapshot(Snapshot{
		Items: []Item{
			testItem("bottom", "p1", Point{X: 0, Y: 0}, 1),
			testItem("top", "p2", Point{X: 50, Y: 50}, 2),
		},
		Photos: []PhotoRef{testPhoto("p1"), testPhoto("p2")},
	})

	id, ok := s.HitTest(Point{X: 100, Y: 100})
	require.True(t, ok)
	assert.Equal(t, "top", id)

	id, ok = s.HitTest(Point{X: 10, Y: 10})
	require.True(t, ok)
	assert.Equal(t, "bottom", id)

	_, ok = s.HitTest(Point{X: 900, Y: 900})
	assert.False(t, ok)
}

func TestSceneStoreOverrideLifecycle(t *testing.T) {
	t.Run("drag moves through active, pending, then authoritative on echo", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "album-1")
		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("a", "p1", Point{X: 50, Y: 60}, 1)},
			Photos:  []PhotoRef{testPhoto("p1")},
		})
		assert.Equal(t, PhaseAuthoritative, s.Phase("a"))

		s.BeginOverride("a")
		assert.Equal(t, PhaseActive, s.Phase("a"))
		s.AdjustOverride("a", func(tr *Transform) {
			tr.Position = tr.Position.Add(Point{X: 50, Y: 80})
		})

		ri, ok := s.Item("a")
		require.True(t, ok)
		assert.True(t, ri.Overridden)
		assert.Equal(t, Point{X: 100, Y: 140}, ri.Transform.Position)

		s.CommitOverride("a", true, false)
		assert.Equal(t, PhasePending, s.Phase("a"))
		assert.Eventually(t, func() bool { return gw.updateCount("a") == 1 }, 2*time.Second, 5*time.Millisecond)
		update, _ := gw.lastUpdate("a")
		require.NotNil(t, update.Position)
		assert.Equal(t, Point{X: 100, Y: 140}, *update.Position)
		assert.Nil(t, update.Rotation)
		assert.Nil(t, update.Scale)

		// Echo: the remote value matches the committed one, the override
		// retires, and the rendered transform does not jump.
		echoed := testItem("a", "p1", Point{X: 100, Y: 140}, 1)
		s.ApplySnapshot(Snapshot{AlbumID: "album-1", Items: []Item{echoed}, Photos: []PhotoRef{testPhoto("p1")}})
		assert.Equal(t, PhaseAuthoritative, s.Phase("a"))
		ri, _ = s.Item("a")
		assert.False(t, ri.Overridden)
		assert.Equal(t, Point{X: 100, Y: 140}, ri.Transform.Position)
	})

	t.Run("pending override outlives a stale snapshot", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "album-1")
		stale := testItem("a", "p1", Point{X: 50, Y: 60}, 1)
		s.ApplySnapshot(Snapshot{AlbumID: "album-1", Items: []Item{stale}, Photos: []PhotoRef{testPhoto("p1")}})

		s.BeginOverride("a")
		s.AdjustOverride("a", func(tr *Transform) { tr.Position.X = 200 })
		s.CommitOverride("a", true, false)

		// A snapshot still carrying the old value and an old UpdatedAt must
		// not clobber the optimistic position.
		s.ApplySnapshot(Snapshot{AlbumID: "album-1", Items: []Item{stale}, Photos: []PhotoRef{testPhoto("p1")}})
		assert.Equal(t, PhasePending, s.Phase("a"))
		ri, _ := s.Item("a")
		assert.Equal(t, 200.0, ri.Transform.Position.X)
	})

	t.Run("a newer remote write wins over a lost commit", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "album-1")
		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("a", "p1", Point{X: 50, Y: 60}, 1)},
			Photos:  []PhotoRef{testPhoto("p1")},
		})

		s.BeginOverride("a")
		s.AdjustOverride("a", func(tr *Transform) { tr.Position.X = 200 })
		s.CommitOverride("a", true, false)

		other := testItem("a", "p1", Point{X: 5, Y: 5}, 1)
		other.UpdatedAt = time.Now().UTC().Add(time.Minute)
		s.ApplySnapshot(Snapshot{AlbumID: "album-1", Items: []Item{other}, Photos: []PhotoRef{testPhoto("p1")}})

		assert.Equal(t, PhaseAuthoritative, s.Phase("a"))
		ri, _ := s.Item("a")
		assert.Equal(t, 5.0, ri.Transform.Position.X)
	})

	t.Run("cancel discards the override without a write", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "album-1")
		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("a", "p1", Point{X: 50, Y: 60}, 1)},
			Photos:  []PhotoRef{testPhoto("p1")},
		})

		s.BeginOverride("a")
		s.AdjustOverride("a", func(tr *Transform) { tr.Position.X = 999 })
		s.CancelOverride("a")

		ri, _ := s.Item("a")
		assert.False(t, ri.Overridden)
		assert.Equal(t, 50.0, ri.Transform.Position.X)
		assert.Equal(t, 0, gw.updateCount("a"))
	})

	t.Run("commit wraps rotation so the echo compares equal", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "album-1")
		item := testItem("a", "p1", Point{}, 1)
		s.ApplySnapshot(Snapshot{AlbumID: "album-1", Items: []Item{item}, Photos: []PhotoRef{testPhoto("p1")}})

		s.BeginOverride("a")
		s.AdjustOverride("a", func(tr *Transform) { tr.Rotation = 370 })
		s.CommitOverride("a", false, true)

		assert.Eventually(t, func() bool { return gw.updateCount("a") == 1 }, 2*time.Second, 5*time.Millisecond)
		update, _ := gw.lastUpdate("a")
		require.NotNil(t, update.Rotation)
		assert.InDelta(t, 10.0, *update.Rotation, 1e-9)
		require.NotNil(t, update.Scale)
		assert.Nil(t, update.Position)
	})

	t.Run("item deleted mid-gesture prunes the override silently", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "album-1")
		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("a", "p1", Point{}, 1)},
			Photos:  []PhotoRef{testPhoto("p1")},
		})

		s.BeginOverride("a")
		s.ApplySnapshot(Snapshot{AlbumID: "album-1"})

		assert.Equal(t, PhaseAuthoritative, s.Phase("a"))
		_, ok := s.Item("a")
		assert.False(t, ok)
	})

	t.Run("override on an unknown item is a no-op", func(t *testing.T) {
		s := NewSceneStore(newFakeGateway(), "album-1")
		s.BeginOverride("ghost")
		assert.Equal(t, PhaseAuthoritative, s.Phase("ghost"))
	})
}

func TestSceneStoreLayerOps(t *testing.T) {
	t.Run("bring to front uses max plus one", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "")
		s.ApplySnapshot(Snapshot{
			Items:  []Item{testItem("a", "p1", Point{}, 3), testItem("b", "p2", Point{}, 7)},
			Photos: []PhotoRef{testPhoto("p1"), testPhoto("p2")},
		})
		s.BringToFront("a")
		assert.Eventually(t, func() bool { return gw.updateCount("a") == 1 }, 2*time.Second, 5*time.Millisecond)
		update, _ := gw.lastUpdate("a")
		require.NotNil(t, update.ZIndex)
		assert.Equal(t, 8.0, *update.ZIndex)
	})

	t.Run("send to back uses min minus one", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "")
		s.ApplySnapshot(Snapshot{
			Items:  []Item{testItem("a", "p1", Point{}, 3), testItem("b", "p2", Point{}, 7)},
			Photos: []PhotoRef{testPhoto("p1"), testPhoto("p2")},
		})
		s.SendToBack("b")
		assert.Eventually(t, func() bool { return gw.updateCount("b") == 1 }, 2*time.Second, 5*time.Millisecond)
		update, _ := gw.lastUpdate("b")
		require.NotNil(t, update.ZIndex)
		assert.Equal(t, 2.0, *update.ZIndex)
	})

	t.Run("layer ops on an empty scene issue no write", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "")
		s.BringToFront("a")
		s.SendToBack("a")
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 0, gw.updateCount("a"))
	})
}

func TestSceneStoreMutations(t *testing.T) {
	t.Run("add photo creates an item under the store's album", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "album-1")
		s.AddPhoto("p9")
		assert.Eventually(t, func() bool {
			gw.mu.Lock()
			defer gw.mu.Unlock()
			return len(gw.creates) == 1 && gw.creates[0] == "album-1/p9"
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("remove item issues a delete", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "")
		s.RemoveItem("a")
		assert.Eventually(t, func() bool {
			gw.mu.Lock()
			defer gw.mu.Unlock()
			return len(gw.deletes) == 1 && gw.deletes[0] == "a"
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("empty partial update is not sent", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "")
		s.UpdateItem("a", ItemUpdate{})
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 0, gw.updateCount("a"))
	})

	t.Run("rejected commit fails silently", func(t *testing.T) {
		gw := newFakeGateway()
		gw.updateErr = errors.New("item vanished")
		s := NewSceneStore(gw, "album-1")
		s.ApplySnapshot(Snapshot{
			AlbumID: "album-1",
			Items:   []Item{testItem("a", "p1", Point{}, 1)},
			Photos:  []PhotoRef{testPhoto("p1")},
		})

		s.BeginOverride("a")
		s.AdjustOverride("a", func(tr *Transform) { tr.Position = Point{X: 25, Y: 25} })
		s.CommitOverride("a", true, false)

		assert.Eventually(t, func() bool { return gw.attemptCount() == 1 }, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, gw.updateCount("a"))

		// The optimistic value stays up and the override never reconciles.
		assert.Equal(t, PhasePending, s.Phase("a"))
		ri, ok := s.Item("a")
		require.True(t, ok)
		assert.Equal(t, Point{X: 25, Y: 25}, ri.Transform.Position)
	})

	t.Run("settings update carries only the changed fields", func(t *testing.T) {
		gw := newFakeGateway()
		s := NewSceneStore(gw, "")
		mode := DisplayPlain
		s.UpdateItem("a", ItemUpdate{DisplayMode: &mode})
		assert.Eventually(t, func() bool { return gw.updateCount("a") == 1 }, 2*time.Second, 5*time.Millisecond)
		update, _ := gw.lastUpdate("a")
		require.NotNil(t, update.DisplayMode)
		assert.Equal(t, DisplayPlain, *update.DisplayMode)
		assert.Nil(t, update.Position)
		assert.Nil(t, update.ZIndex)
	})
}

package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collagesync/server/internal/collage"
)

func TestClientMutations(t *testing.T) {
	t.Run("create item posts and returns the assigned id", func(t *testing.T) {
		var gotAuth, gotPath string
		var gotBody createItemRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.Method + " " + r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(createItemResponse{ID: "item-42"})
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "secret-key")
		id, err := c.CreateItem(context.Background(), "album-1", "photo-7")
		require.NoError(t, err)
		assert.Equal(t, "item-42", id)
		assert.Equal(t, "Bearer secret-key", gotAuth)
		assert.Equal(t, "POST /api/collage/items", gotPath)
		assert.Equal(t, createItemRequest{AlbumID: "album-1", PhotoID: "photo-7"}, gotBody)
	})

	t.Run("update item patches only the provided fields", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.Method + " " + r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		z := 5.0
		c := NewClient(srv.URL, "k")
		require.NoError(t, c.UpdateItem(context.Background(), "item-1", collage.ItemUpdate{ZIndex: &z}))
		assert.Equal(t, "PATCH /api/collage/items/item-1", gotPath)
		assert.Equal(t, map[string]any{"zIndex": 5.0}, gotBody)
	})

	t.Run("delete item issues a delete", func(t *testing.T) {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.Method + " " + r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "k")
		require.NoError(t, c.DeleteItem(context.Background(), "item-1"))
		assert.Equal(t, "DELETE /api/collage/items/item-1", gotPath)
	})

	t.Run("non-2xx surfaces status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "item not found", http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, "k")
		err := c.DeleteItem(context.Background(), "ghost")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=404")
		assert.Contains(t, err.Error(), "item not found")
	})
}

func TestClientSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	t.Run("snapshots flow through the feed channel", func(t *testing.T) {
		snap := collage.Snapshot{
			AlbumID: "album-1",
			Items: []collage.Item{{
				ID:        "a",
				PhotoID:   "p1",
				Transform: collage.Transform{Position: collage.Point{X: 50, Y: 60}, Scale: 1},
				ZIndex:    1,
			}},
			Photos: []collage.PhotoRef{{ID: "p1", Filename: "p1.jpg"}},
		}

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/ws/collage", r.URL.Path)
			assert.Equal(t, "album-1", r.URL.Query().Get("album"))
			assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

			conn, err := upgrader.Upgrade(w, r, nil)
			require.NoError(t, err)
			defer conn.Close()

			payload, _ := json.Marshal(snap)
			// An unrelated message type is skipped by the reader.
			require.NoError(t, conn.WriteJSON(wsMessage{Type: "presence", Payload: []byte(`{}`)}))
			require.NoError(t, conn.WriteJSON(wsMessage{Type: "collage_snapshot", Payload: payload}))
			time.Sleep(100 * time.Millisecond)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := NewClient(srv.URL, "k")
		feed, err := c.Subscribe(ctx, "album-1")
		require.NoError(t, err)

		select {
		case got := <-feed:
			assert.Equal(t, snap.AlbumID, got.AlbumID)
			require.Len(t, got.Items, 1)
			assert.Equal(t, "a", got.Items[0].ID)
			assert.Equal(t, collage.Point{X: 50, Y: 60}, got.Items[0].Transform.Position)
		case <-time.After(2 * time.Second):
			t.Fatal("no snapshot received")
		}
	})

	t.Run("channel closes when the context ends", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		c := NewClient(srv.URL, "k")
		feed, err := c.Subscribe(ctx, "")
		require.NoError(t, err)

		cancel()
		select {
		case _, open := <-feed:
			assert.False(t, open)
		case <-time.After(2 * time.Second):
			t.Fatal("feed channel never closed")
		}
	})
}

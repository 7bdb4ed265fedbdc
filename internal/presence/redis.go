package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Viewer TTL. Clients heartbeat every 30 seconds; a missed beat drops the
// viewer within a minute.
const viewerTTL = 60 * time.Second

// Viewer is one member currently looking at a collage
type Viewer struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	JoinedAt    int64  `json:"joinedAt"`
}

// Manager tracks who is viewing which collage, backed by redis keys with a
// TTL. Presence is optional: callers hold a nil *Manager when no redis
// address is configured, and every method no-ops on nil.
type Manager struct {
	client *redis.Client
}

// NewManager connects to redis and verifies the connection
func NewManager(ctx context.Context, addr, password string, db int) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Manager{client: client}, nil
}

func viewerKey(collageKey, userID string) string {
	return fmt.Sprintf("presence:collage:%s:%s", collageKey, userID)
}

func collagePattern(collageKey string) string {
	return fmt.Sprintf("presence:collage:%s:*", collageKey)
}

// Join records the viewer with a fresh TTL
func (m *Manager) Join(ctx context.Context, collageKey, userID, displayName string) error {
	if m == nil {
		return nil
	}

	data, err := json.Marshal(Viewer{
		UserID:      userID,
		DisplayName: displayName,
		JoinedAt:    time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return m.client.Set(ctx, viewerKey(collageKey, userID), data, viewerTTL).Err()
}

// Heartbeat extends the viewer's TTL. Returns false when the viewer had
// already expired and needs to Join again.
func (m *Manager) Heartbeat(ctx context.Context, collageKey, userID string) (bool, error) {
	if m == nil {
		return true, nil
	}

	return m.client.Expire(ctx, viewerKey(collageKey, userID), viewerTTL).Result()
}

// Leave removes the viewer immediately
func (m *Manager) Leave(ctx context.Context, collageKey, userID string) error {
	if m == nil {
		return nil
	}

	return m.client.Del(ctx, viewerKey(collageKey, userID)).Err()
}

// Viewers lists who is currently viewing the collage
func (m *Manager) Viewers(ctx context.Context, collageKey string) ([]Viewer, error) {
	if m == nil {
		return nil, nil
	}

	var keys []string
	iter := m.client.Scan(ctx, 0, collagePattern(collageKey), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []Viewer{}, nil
	}

	results, err := m.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	viewers := make([]Viewer, 0, len(results))
	for _, result := range results {
		strVal, ok := result.(string)
		if !ok {
			// Expired between SCAN and MGET
			continue
		}

		var v Viewer
		if err := json.Unmarshal([]byte(strVal), &v); err == nil {
			viewers = append(viewers, v)
		}
	}

	return viewers, nil
}

// Close releases the redis connection
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.client.Close()
}

// Package remote implements the collage.Gateway interface against the sync
// gateway's HTTP and WebSocket API. Mutations go over REST; snapshots arrive
// over a WebSocket change feed that reconnects with backoff until the
// subscription context ends.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/collagesync/server/internal/collage"
	"github.com/collagesync/server/internal/observability"
)

const (
	mutationTimeout  = 5 * time.Second
	reconnectMinWait = time.Second
	reconnectMaxWait = 30 * time.Second
)

// wsMessage mirrors the gateway's WebSocket envelope.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client talks to a collage sync gateway. It implements collage.Gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *observability.Logger
}

// NewClient creates a gateway client. baseURL is the server root, e.g.
// "http://gateway.local:8080"; apiKey authenticates every request.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: mutationTimeout,
		},
		dialer: websocket.DefaultDialer,
		logger: observability.WithField("component", "gateway_client"),
	}
}

type createItemRequest struct {
	AlbumID string `json:"albumId,omitempty"`
	PhotoID string `json:"photoId"`
}

type createItemResponse struct {
	ID string `json:"id"`
}

// CreateItem adds a photo to the album's collage and returns the new item's
// server-assigned id.
func (c *Client) CreateItem(ctx context.Context, albumID, photoID string) (string, error) {
	body, err := json.Marshal(createItemRequest{AlbumID: albumID, PhotoID: photoID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/collage/items", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "create item"); err != nil {
		return "", err
	}
	var payload createItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.ID, nil
}

// UpdateItem applies a partial update to one item.
func (c *Client) UpdateItem(ctx context.Context, itemID string, update collage.ItemUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/api/collage/items/%s", c.baseURL, url.PathEscape(itemID)),
		bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp, "update item")
}

// DeleteItem removes one item from its collage.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/api/collage/items/%s", c.baseURL, url.PathEscape(itemID)), nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp, "delete item")
}

// Subscribe opens the change feed for one album's collage (empty albumID for
// the aggregate collage). The returned channel closes when ctx ends. The
// connection is re-dialed with exponential backoff on failure; each
// successful connect yields a fresh full snapshot from the server, so missed
// updates during an outage are absorbed by the next snapshot.
func (c *Client) Subscribe(ctx context.Context, albumID string) (<-chan collage.Snapshot, error) {
	wsURL, err := c.feedURL(albumID)
	if err != nil {
		return nil, err
	}

	out := make(chan collage.Snapshot, 1)
	go c.feedLoop(ctx, wsURL, out)
	return out, nil
}

func (c *Client) feedURL(albumID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/api/ws/collage"
	q := u.Query()
	if albumID != "" {
		q.Set("album", albumID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) feedLoop(ctx context.Context, wsURL string, out chan<- collage.Snapshot) {
	defer close(out)

	wait := reconnectMinWait
	for {
		if ctx.Err() != nil {
			return
		}

		header := http.Header{}
		header.Set("Authorization", "Bearer "+c.apiKey)
		conn, _, err := c.dialer.DialContext(ctx, wsURL, header)
		if err != nil {
			c.logger.Warnf("change feed dial failed, retrying in %s: %v", wait, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			if wait *= 2; wait > reconnectMaxWait {
				wait = reconnectMaxWait
			}
			continue
		}
		wait = reconnectMinWait

		c.readFeed(ctx, conn, out)
		conn.Close()
	}
}

// readFeed pumps snapshots from one connection until it breaks or ctx ends.
func (c *Client) readFeed(ctx context.Context, conn *websocket.Conn, out chan<- collage.Snapshot) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				c.logger.Warnf("change feed read failed: %v", err)
			}
			return
		}
		if msg.Type != "collage_snapshot" {
			continue
		}
		var snap collage.Snapshot
		if err := json.Unmarshal(msg.Payload, &snap); err != nil {
			c.logger.Warnf("malformed snapshot payload: %v", err)
			continue
		}
		select {
		case out <- snap:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("gateway %s: status=%d body=%s", op, resp.StatusCode, string(b))
}

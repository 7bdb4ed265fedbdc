package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/collagesync/server/internal/middleware"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/presence"
	"github.com/collagesync/server/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same household, trusted clients
		return true
	},
}

// WebSocketHandler manages collage snapshot subscriptions over WebSocket
type WebSocketHandler struct {
	hub      *services.WebSocketHub
	collage  *services.CollageService
	presence *presence.Manager
	logger   *observability.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *services.WebSocketHub, collage *services.CollageService, pres *presence.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		collage:  collage,
		presence: pres,
		logger:   observability.WithField("component", "websocket_handler"),
	}
}

// HandleCollage upgrades the connection and subscribes it to one collage's
// snapshot feed. The current snapshot is pushed immediately so the client
// renders without waiting for the first mutation.
// @Summary Subscribe to collage snapshots
// @Description Open a WebSocket subscribed to a collage's snapshot broadcasts. Pass ?album={id} for an album collage; omit it for the aggregate collage. The session token may be supplied as a ?token= query parameter.
// @Tags collage
// @Param album query string false "Album ID (UUID); omit for the aggregate collage"
// @Success 101 "Switching protocols"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/ws/collage [get]
func (h *WebSocketHandler) HandleCollage(w http.ResponseWriter, r *http.Request) {
	var albumID *string
	if album := r.URL.Query().Get("album"); album != "" {
		albumID = &album
	}
	topic := services.CollageTopic(albumID)

	user := middleware.GetUserFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithContext(r.Context()).Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewClient(uuid.New().String(), conn)
	if user != nil {
		h.hub.SetUserID(client, user.ID)
	}
	h.hub.Register(client)
	h.hub.Subscribe(client, topic)

	if user != nil {
		if err := h.presence.Join(r.Context(), presenceKey(albumID), user.ID, user.DisplayName); err != nil {
			h.logger.Warnf("presence join failed: %v", err)
		}
		h.broadcastPresence(r.Context(), albumID)
	}

	h.sendSnapshot(r.Context(), client, albumID)

	go client.WritePump()
	client.ReadPump(h.messageHandler(albumID))

	// The request context is gone once the read loop exits
	if user != nil {
		if err := h.presence.Leave(context.Background(), presenceKey(albumID), user.ID); err != nil {
			h.logger.Warnf("presence leave failed: %v", err)
		}
		h.broadcastPresence(context.Background(), albumID)
	}
}

// Viewers lists who is currently viewing a collage
// @Summary List current collage viewers
// @Description List the users with an open subscription to a collage, from the presence store. Empty when presence is disabled.
// @Tags collage
// @Produce json
// @Param album query string false "Album ID (UUID); omit for the aggregate collage"
// @Success 200 {array} presence.Viewer "Current viewers"
// @Security BearerAuth
// @Router /api/collage/viewers [get]
func (h *WebSocketHandler) Viewers(w http.ResponseWriter, r *http.Request) {
	var albumID *string
	if album := r.URL.Query().Get("album"); album != "" {
		albumID = &album
	}

	viewers, err := h.presence.Viewers(r.Context(), presenceKey(albumID))
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("presence listing failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list viewers.")
		return
	}
	if viewers == nil {
		viewers = []presence.Viewer{}
	}

	respondJSON(w, http.StatusOK, viewers)
}

// broadcastPresence pushes the current viewer list to everyone on the
// collage. No-op when presence is disabled.
func (h *WebSocketHandler) broadcastPresence(ctx context.Context, albumID *string) {
	viewers, err := h.presence.Viewers(ctx, presenceKey(albumID))
	if err != nil {
		h.logger.Warnf("presence listing failed: %v", err)
		return
	}
	if viewers == nil {
		return
	}

	h.hub.BroadcastToTopic(services.CollageTopic(albumID), services.WSMessage{
		Type:    services.WSTypePresence,
		Payload: viewers,
	})
}

// sendSnapshot pushes the collage's current snapshot to one client
func (h *WebSocketHandler) sendSnapshot(ctx context.Context, client *services.WSClient, albumID *string) {
	snap, err := h.collage.Snapshot(ctx, albumID)
	if err != nil {
		h.logger.Errorf("initial snapshot failed: %v", err)
		return
	}

	data, err := json.Marshal(services.WSMessage{
		Type:    services.WSTypeCollageSnapshot,
		Payload: snap,
	})
	if err != nil {
		return
	}

	select {
	case client.Send <- data:
	default:
	}
}

// messageHandler processes the client-to-server message protocol
func (h *WebSocketHandler) messageHandler(albumID *string) func(client *services.WSClient, messageType int, data []byte) {
	return func(client *services.WSClient, messageType int, data []byte) {
		if messageType != websocket.TextMessage {
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warnf("invalid websocket message: %v", err)
			if data, err := json.Marshal(services.WSMessage{
				Type:    services.WSTypeError,
				Payload: "malformed message",
			}); err == nil {
				select {
				case client.Send <- data:
				default:
				}
			}
			return
		}

		switch msg.Type {
		case services.WSTypeSubscribe:
			if topic, ok := messageTopic(msg.Payload); ok {
				h.hub.Subscribe(client, topic)
			}

		case services.WSTypeUnsubscribe:
			if topic, ok := messageTopic(msg.Payload); ok {
				h.hub.Unsubscribe(client, topic)
			}

		case services.WSTypePing:
			// Ping doubles as the presence heartbeat
			if client.UserID != "" {
				if _, err := h.presence.Heartbeat(context.Background(), presenceKey(albumID), client.UserID); err != nil {
					h.logger.Warnf("presence heartbeat failed: %v", err)
				}
			}
			if data, err := json.Marshal(services.WSMessage{Type: services.WSTypePong}); err == nil {
				select {
				case client.Send <- data:
				default:
				}
			}

		default:
			h.logger.Debugf("unknown websocket message type: %s", msg.Type)
		}
	}
}

// messageTopic extracts a topic from a subscribe/unsubscribe payload, which
// may be a bare string or {"topic": "..."}
func messageTopic(payload interface{}) (string, bool) {
	if topic, ok := payload.(string); ok && topic != "" {
		return topic, true
	}
	if obj, ok := payload.(map[string]interface{}); ok {
		if topic, ok := obj["topic"].(string); ok && topic != "" {
			return topic, true
		}
	}
	return "", false
}

// presenceKey maps a collage address to its presence store key
func presenceKey(albumID *string) string {
	if albumID == nil || *albumID == "" {
		return "all"
	}
	return *albumID
}

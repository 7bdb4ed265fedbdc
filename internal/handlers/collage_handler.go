package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/collagesync/server/internal/middleware"
	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/services"
)

// CollageHandler exposes collage documents over REST. Mutations are applied
// in arrival order with no merge; the service broadcasts the resulting
// snapshot to websocket subscribers.
type CollageHandler struct {
	service *services.CollageService
	export  *services.ExportService
	metrics *observability.BusinessMetrics
	logger  *observability.Logger
}

// NewCollageHandler creates a new CollageHandler
func NewCollageHandler(service *services.CollageService, export *services.ExportService, metrics *observability.BusinessMetrics) *CollageHandler {
	return &CollageHandler{
		service: service,
		export:  export,
		metrics: metrics,
		logger:  observability.WithField("component", "collage_handler"),
	}
}

// GetSnapshot returns the aggregate collage snapshot
// @Summary Get the aggregate collage
// @Description Get the full snapshot of the "all photos" collage: every item placed outside any album, plus the photos they reference.
// @Tags collage
// @Produce json
// @Success 200 {object} models.CollageSnapshotDTO "Collage snapshot"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/collage [get]
func (h *CollageHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	h.respondSnapshot(w, r, nil)
}

// GetAlbumSnapshot returns one album's collage snapshot
// @Summary Get an album's collage
// @Tags collage
// @Produce json
// @Param id path string true "Album ID (UUID)"
// @Success 200 {object} models.CollageSnapshotDTO "Collage snapshot"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/albums/{id}/collage [get]
func (h *CollageHandler) GetAlbumSnapshot(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "id")
	if albumID == "" {
		respondError(w, http.StatusBadRequest, "Album ID is required.")
		return
	}
	h.respondSnapshot(w, r, &albumID)
}

func (h *CollageHandler) respondSnapshot(w http.ResponseWriter, r *http.Request, albumID *string) {
	snap, err := h.service.Snapshot(r.Context(), albumID)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("snapshot build failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// CreateItem places a photo on a collage
// @Summary Add a photo to a collage
// @Description Place a photo on a collage at a randomized initial position with rotation 0 and scale 1. Omit albumId to place it on the aggregate collage. For an album collage the photo must belong to the album.
// @Tags collage
// @Accept json
// @Produce json
// @Param request body models.CreateCollageItemRequest true "Placement request"
// @Success 201 {object} models.CreateCollageItemResponse "Created item ID"
// @Failure 400 {object} models.ErrorResponse "Photo not in album, or invalid request"
// @Failure 404 {object} models.ErrorResponse "Photo or album not found"
// @Security BearerAuth
// @Router /api/collage/items [post]
func (h *CollageHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCollageItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var albumID *string
	if req.AlbumID != "" {
		albumID = &req.AlbumID
	}

	item, err := h.service.CreateItem(r.Context(), albumID, req.PhotoID, user.ID)
	if err != nil {
		h.respondCollageError(w, r, err)
		return
	}

	h.recordMutation(r, user.ID, "create", item.AlbumID)
	respondJSON(w, http.StatusCreated, models.CreateCollageItemResponse{ID: item.ID})
}

// UpdateItem applies a partial update to a collage item
// @Summary Update a collage item
// @Description Apply a partial transform update. Only the fields present in the body are written; scale is clamped to [0.5, 3.0] and rotation wrapped to (-180, 180]. Concurrent updates resolve last-writer-wins.
// @Tags collage
// @Accept json
// @Produce json
// @Param id path string true "Item ID (UUID)"
// @Param request body models.UpdateCollageItemRequest true "Fields to update"
// @Success 200 {object} models.CollageItemDTO "Updated item"
// @Failure 400 {object} models.ErrorResponse "Empty or invalid update"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Security BearerAuth
// @Router /api/collage/items/{id} [patch]
func (h *CollageHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCollageItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	item, err := h.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondCollageError(w, r, err)
		return
	}

	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		h.recordMutation(r, user.ID, "update", item.AlbumID)
	}
	respondJSON(w, http.StatusOK, models.CollageItemToDTO(item))
}

// BringToFront raises an item above the rest of its collage
// @Summary Bring a collage item to the front
// @Tags collage
// @Produce json
// @Param id path string true "Item ID (UUID)"
// @Success 200 {object} models.CollageItemDTO "Restacked item"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Security BearerAuth
// @Router /api/collage/items/{id}/front [post]
func (h *CollageHandler) BringToFront(w http.ResponseWriter, r *http.Request) {
	h.restack(w, r, h.service.BringToFront)
}

// SendToBack lowers an item below the rest of its collage
// @Summary Send a collage item to the back
// @Tags collage
// @Produce json
// @Param id path string true "Item ID (UUID)"
// @Success 200 {object} models.CollageItemDTO "Restacked item"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Security BearerAuth
// @Router /api/collage/items/{id}/back [post]
func (h *CollageHandler) SendToBack(w http.ResponseWriter, r *http.Request) {
	h.restack(w, r, h.service.SendToBack)
}

func (h *CollageHandler) restack(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, itemID string) (*models.CollageItem, error)) {
	item, err := op(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondCollageError(w, r, err)
		return
	}

	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		h.recordMutation(r, user.ID, "restack", item.AlbumID)
	}
	respondJSON(w, http.StatusOK, models.CollageItemToDTO(item))
}

// DeleteItem removes a collage item
// @Summary Remove a collage item
// @Tags collage
// @Param id path string true "Item ID (UUID)"
// @Success 204 "Item removed"
// @Failure 404 {object} models.ErrorResponse "Item not found"
// @Security BearerAuth
// @Router /api/collage/items/{id} [delete]
func (h *CollageHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondCollageError(w, r, err)
		return
	}

	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		h.recordMutation(r, user.ID, "delete", nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export renders the aggregate collage to a PNG
// @Summary Export the aggregate collage as PNG
// @Tags collage
// @Produce png
// @Success 200 {file} binary "Flattened collage PNG"
// @Failure 404 {object} models.ErrorResponse "Collage has no items"
// @Security BearerAuth
// @Router /api/collage/export [get]
func (h *CollageHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.respondExport(w, r, nil)
}

// ExportAlbum renders one album's collage to a PNG
// @Summary Export an album's collage as PNG
// @Tags collage
// @Produce png
// @Param id path string true "Album ID (UUID)"
// @Success 200 {file} binary "Flattened collage PNG"
// @Failure 404 {object} models.ErrorResponse "Collage has no items"
// @Security BearerAuth
// @Router /api/albums/{id}/collage/export [get]
func (h *CollageHandler) ExportAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "id")
	if albumID == "" {
		respondError(w, http.StatusBadRequest, "Album ID is required.")
		return
	}
	h.respondExport(w, r, &albumID)
}

func (h *CollageHandler) respondExport(w http.ResponseWriter, r *http.Request, albumID *string) {
	png, err := h.export.Export(r.Context(), albumID)
	if err != nil {
		if errors.Is(err, services.ErrExportEmpty) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.WithContext(r.Context()).Errorf("collage export failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to render collage.")
		return
	}

	filename := fmt.Sprintf("collage-%s.png", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *CollageHandler) recordMutation(r *http.Request, userID, mutation string, albumID *string) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordCollageMutation(r.Context(), userID, mutation, services.CollageTopic(albumID))
}

func (h *CollageHandler) respondCollageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrItemNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrPhotoNotFound), errors.Is(err, models.ErrAlbumNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrItemPhotoNotInAlbum),
		errors.Is(err, models.ErrItemEmptyUpdate),
		errors.Is(err, models.ErrItemInvalidDisplayMode),
		errors.Is(err, models.ErrItemPhotoRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithContext(r.Context()).Errorf("collage operation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
	}
}

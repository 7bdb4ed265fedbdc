package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/collagesync/server/internal/middleware"
	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/repository"
)

// AlbumHandler handles album CRUD and membership endpoints
type AlbumHandler struct {
	albums      repository.AlbumRepo
	albumPhotos repository.AlbumPhotoRepo
	photos      repository.PhotoRepo
	logger      *observability.Logger
}

// NewAlbumHandler creates a new AlbumHandler
func NewAlbumHandler(albums repository.AlbumRepo, albumPhotos repository.AlbumPhotoRepo, photos repository.PhotoRepo) *AlbumHandler {
	return &AlbumHandler{
		albums:      albums,
		albumPhotos: albumPhotos,
		photos:      photos,
		logger:      observability.WithField("component", "album_handler"),
	}
}

// Create creates a new album
// @Summary Create an album
// @Tags albums
// @Accept json
// @Produce json
// @Param request body models.CreateAlbumRequest true "Album details"
// @Success 201 {object} models.Album "Created album"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/albums [post]
func (h *AlbumHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	album, err := models.NewAlbum(user.ID, req.Name)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	album.Description = req.Description

	if err := h.albums.Add(r.Context(), album); err != nil {
		h.logger.WithContext(r.Context()).Errorf("album insert failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	h.logger.WithContext(r.Context()).Infof("album created: %s (%s)", album.Name, album.ID)
	respondJSON(w, http.StatusCreated, album)
}

// List returns all albums
// @Summary List all albums
// @Description Get all albums with photo counts, newest first
// @Tags albums
// @Produce json
// @Success 200 {object} models.AlbumListResponse "List of albums"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/albums [get]
func (h *AlbumHandler) List(w http.ResponseWriter, r *http.Request) {
	albums, err := h.albums.GetAll(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("album list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	out := make([]models.Album, len(albums))
	for i, a := range albums {
		if count, err := h.albumPhotos.GetPhotoCount(r.Context(), a.ID); err == nil {
			a.PhotoCount = count
		}
		out[i] = *a
	}

	respondJSON(w, http.StatusOK, models.AlbumListResponse{Albums: out})
}

// GetByID returns a single album
// @Summary Get album by ID
// @Tags albums
// @Produce json
// @Param id path string true "Album ID (UUID)"
// @Success 200 {object} models.Album "Album details"
// @Failure 404 {object} models.ErrorResponse "Album not found"
// @Security BearerAuth
// @Router /api/albums/{id} [get]
func (h *AlbumHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	album, ok := h.loadAlbum(w, r)
	if !ok {
		return
	}
	if count, err := h.albumPhotos.GetPhotoCount(r.Context(), album.ID); err == nil {
		album.PhotoCount = count
	}
	respondJSON(w, http.StatusOK, album)
}

// Update modifies album metadata
// @Summary Update an album
// @Tags albums
// @Accept json
// @Produce json
// @Param id path string true "Album ID (UUID)"
// @Param request body models.UpdateAlbumRequest true "Fields to update"
// @Success 200 {object} models.Album "Updated album"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 404 {object} models.ErrorResponse "Album not found"
// @Security BearerAuth
// @Router /api/albums/{id} [put]
func (h *AlbumHandler) Update(w http.ResponseWriter, r *http.Request) {
	album, ok := h.loadAlbum(w, r)
	if !ok {
		return
	}

	var req models.UpdateAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if req.Name != nil {
		if err := album.Rename(*req.Name); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Description != nil {
		album.Description = req.Description
	}
	if req.CoverPhotoID != nil {
		if *req.CoverPhotoID == "" {
			album.CoverPhotoID = nil
		} else {
			photo, err := h.photos.GetByID(r.Context(), *req.CoverPhotoID)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "Database error.")
				return
			}
			if photo == nil {
				respondError(w, http.StatusBadRequest, "Cover photo does not exist.")
				return
			}
			album.CoverPhotoID = req.CoverPhotoID
		}
	}

	if err := h.albums.Update(r.Context(), album); err != nil {
		h.logger.WithContext(r.Context()).Errorf("album update failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	respondJSON(w, http.StatusOK, album)
}

// Delete removes an album
// @Summary Delete an album
// @Description Delete an album. Photos stay; memberships and the album's collage items cascade away.
// @Tags albums
// @Param id path string true "Album ID (UUID)"
// @Success 204 "Album deleted"
// @Failure 404 {object} models.ErrorResponse "Album not found"
// @Security BearerAuth
// @Router /api/albums/{id} [delete]
func (h *AlbumHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.albums.Delete(r.Context(), id)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("album delete failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Album not found.")
		return
	}

	h.logger.WithContext(r.Context()).Infof("album deleted: %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListPhotos returns the album's photos with membership details
// @Summary List photos in an album
// @Description Get all photos in an album in added order, including the inCollage flag per photo.
// @Tags albums
// @Produce json
// @Param id path string true "Album ID (UUID)"
// @Success 200 {array} models.AlbumPhotoWithDetails "Album photos"
// @Failure 404 {object} models.ErrorResponse "Album not found"
// @Security BearerAuth
// @Router /api/albums/{id}/photos [get]
func (h *AlbumHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	album, ok := h.loadAlbum(w, r)
	if !ok {
		return
	}

	entries, err := h.albumPhotos.GetEntries(r.Context(), album.ID)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("album photo list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// AddPhotos adds photos to an album
// @Summary Add photos to an album
// @Description Add one or more photos to an album. Photos already in the album are skipped.
// @Tags albums
// @Accept json
// @Produce json
// @Param id path string true "Album ID (UUID)"
// @Param request body models.AddAlbumPhotosRequest true "Photo IDs to add"
// @Success 200 {object} map[string]int "Number of photos added"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 404 {object} models.ErrorResponse "Album not found"
// @Security BearerAuth
// @Router /api/albums/{id}/photos [post]
func (h *AlbumHandler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	album, ok := h.loadAlbum(w, r)
	if !ok {
		return
	}

	var req models.AddAlbumPhotosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if len(req.PhotoIDs) == 0 {
		respondError(w, http.StatusBadRequest, "At least one photo ID is required.")
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	added := 0
	for _, photoID := range req.PhotoIDs {
		photo, err := h.photos.GetByID(r.Context(), photoID)
		if err != nil || photo == nil {
			continue
		}

		exists, err := h.albumPhotos.Contains(r.Context(), album.ID, photoID)
		if err != nil || exists {
			continue
		}

		if err := h.albumPhotos.Add(r.Context(), models.NewAlbumPhoto(album.ID, photoID, user.ID)); err != nil {
			h.logger.WithContext(r.Context()).Warnf("failed to add photo %s to album %s: %v", photoID, album.ID, err)
			continue
		}
		added++
	}

	respondJSON(w, http.StatusOK, map[string]int{"added": added})
}

// RemovePhoto removes a photo from an album
// @Summary Remove a photo from an album
// @Tags albums
// @Param id path string true "Album ID (UUID)"
// @Param photoId path string true "Photo ID (UUID)"
// @Success 204 "Photo removed from album"
// @Failure 404 {object} models.ErrorResponse "Album or membership not found"
// @Security BearerAuth
// @Router /api/albums/{id}/photos/{photoId} [delete]
func (h *AlbumHandler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	album, ok := h.loadAlbum(w, r)
	if !ok {
		return
	}

	photoID := chi.URLParam(r, "photoId")
	removed, err := h.albumPhotos.Remove(r.Context(), album.ID, photoID)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("album photo remove failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "Photo is not in this album.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AlbumHandler) loadAlbum(w http.ResponseWriter, r *http.Request) (*models.Album, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "Album ID is required.")
		return nil, false
	}

	album, err := h.albums.GetByID(r.Context(), id)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("album lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return nil, false
	}
	if album == nil {
		respondError(w, http.StatusNotFound, "Album not found.")
		return nil, false
	}
	return album, true
}

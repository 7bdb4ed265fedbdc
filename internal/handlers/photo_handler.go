package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/collagesync/server/internal/middleware"
	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/repository"
	"github.com/collagesync/server/internal/services"
)

// PhotoHandler handles photo-related endpoints
type PhotoHandler struct {
	repo             repository.PhotoRepo
	storageService   *services.PhotoStorageService
	hashService      *services.HashService
	exifService      *services.EXIFService
	thumbnailService *services.ThumbnailService
	hub              *services.WebSocketHub
	logger           *observability.Logger
}

// NewPhotoHandler creates a new PhotoHandler
func NewPhotoHandler(
	repo repository.PhotoRepo,
	storageService *services.PhotoStorageService,
	hashService *services.HashService,
	exifService *services.EXIFService,
	thumbnailService *services.ThumbnailService,
	hub *services.WebSocketHub,
) *PhotoHandler {
	return &PhotoHandler{
		repo:             repo,
		storageService:   storageService,
		hashService:      hashService,
		exifService:      exifService,
		thumbnailService: thumbnailService,
		hub:              hub,
		logger:           observability.WithField("component", "photo_handler"),
	}
}

// Upload handles photo upload
// @Summary Upload a photo
// @Description Upload a new photo. Duplicates are detected via SHA256 hash and returned instead of stored twice.
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Photo file to upload"
// @Param originalFilename formData string false "Original filename (uses uploaded filename if not provided)"
// @Param dateTaken formData string false "Date photo was taken (RFC3339 format)"
// @Success 200 {object} models.UploadResult "Photo uploaded (or duplicate found)"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Server error"
// @Security BearerAuth
// @Router /api/photos/upload [post]
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithContext(r.Context())

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Request must be multipart/form-data.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided or file is empty.")
		return
	}
	defer file.Close()

	originalFilename := r.FormValue("originalFilename")
	if originalFilename == "" {
		originalFilename = header.Filename
	}

	dateTakenStr := r.FormValue("dateTaken")
	dateTaken := time.Now().UTC()
	if dateTakenStr != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTakenStr); err == nil {
			dateTaken = parsed
		}
	}

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read file.")
		return
	}

	fileHash := h.hashService.ComputeHashBytes(content)

	existing, err := h.repo.GetByHash(r.Context(), fileHash)
	if err != nil {
		log.Errorf("hash lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if existing != nil {
		log.Infof("duplicate photo detected: %s", fileHash)
		respondJSON(w, http.StatusOK, models.DuplicateUploadResult(
			existing.ID,
			existing.StoredPath,
			existing.UploadedAt,
		))
		return
	}

	exifData, err := h.exifService.ExtractFromBytes(content)
	if err != nil {
		log.Warnf("EXIF extraction failed: %v", err)
		exifData = &services.EXIFData{Orientation: 1}
	}

	// EXIF capture time wins over the upload timestamp, not over an
	// explicit form value
	if dateTakenStr == "" && exifData.DateTaken != nil {
		dateTaken = *exifData.DateTaken
	}

	storedPath, err := h.storageService.Store(
		bytes.NewReader(content),
		originalFilename,
		dateTaken,
		int64(len(content)),
	)
	if err != nil {
		switch err {
		case models.ErrFileTooLarge, models.ErrInvalidExtension:
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Errorf("file store failed: %v", err)
			respondError(w, http.StatusInternalServerError, "Failed to store file.")
		}
		return
	}

	uploadedBy := ""
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		uploadedBy = user.ID
	}

	photo, err := models.NewPhoto(originalFilename, storedPath, fileHash, uploadedBy, int64(len(content)), dateTaken)
	if err != nil {
		h.storageService.Delete(storedPath)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if exifData.Width != nil {
		photo.Width = *exifData.Width
	}
	if exifData.Height != nil {
		photo.Height = *exifData.Height
	}

	if services.IsSupportedFormat(originalFilename) {
		thumb, err := h.thumbnailService.Generate(content, photo.ID, storedPath, exifData.Orientation)
		if err != nil {
			log.Warnf("thumbnail generation failed: %v", err)
		} else {
			photo.ThumbnailPath = thumb.Path
			photo.Width = thumb.Width
			photo.Height = thumb.Height
		}
	}

	if err := h.repo.Add(r.Context(), photo); err != nil {
		h.storageService.Delete(storedPath)
		h.thumbnailService.DeleteThumbnail(photo.ThumbnailPath)

		// Concurrent upload of the same bytes loses the insert race
		errStr := err.Error()
		if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") {
			if existing, lookupErr := h.repo.GetByHash(r.Context(), fileHash); lookupErr == nil && existing != nil {
				respondJSON(w, http.StatusOK, models.DuplicateUploadResult(
					existing.ID,
					existing.StoredPath,
					existing.UploadedAt,
				))
				return
			}
		}

		log.Errorf("photo insert failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to save photo record.")
		return
	}

	log.Infof("photo uploaded: %s -> %s", photo.ID, storedPath)

	h.hub.BroadcastToTopic(services.TopicPhotos, services.WSMessage{
		Type:    services.WSTypePhotoUploaded,
		Payload: models.PhotoToResponse(photo),
	})

	respondJSON(w, http.StatusOK, models.NewUploadResult(photo.ID, storedPath, photo.UploadedAt))
}

// CheckHashes checks which hashes already exist
// @Summary Check if photos exist by hash
// @Description Check which SHA256 hashes already exist on the server, to skip duplicate uploads.
// @Tags photos
// @Accept json
// @Produce json
// @Param request body models.CheckHashesRequest true "Hashes to check (max 1000)"
// @Success 200 {object} models.CheckHashesResult "Hash check results"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Server error"
// @Security BearerAuth
// @Router /api/photos/check [post]
func (h *PhotoHandler) CheckHashes(w http.ResponseWriter, r *http.Request) {
	var req models.CheckHashesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if len(req.Hashes) == 0 {
		respondError(w, http.StatusBadRequest, "At least one hash is required.")
		return
	}
	const maxHashes = 1000
	if len(req.Hashes) > maxHashes {
		respondError(w, http.StatusBadRequest, "Maximum 1000 hashes can be checked at once.")
		return
	}

	normalized := make([]string, 0, len(req.Hashes))
	invalid := make([]string, 0)
	seen := make(map[string]bool)
	for _, hash := range req.Hashes {
		n := h.hashService.NormalizeHash(hash)
		if seen[n] {
			continue
		}
		seen[n] = true
		// A malformed digest can never match a stored photo; report it
		// missing without querying.
		if !h.hashService.IsValidHash(n) {
			invalid = append(invalid, n)
			continue
		}
		normalized = append(normalized, n)
	}

	existing, err := h.repo.GetExistingHashes(r.Context(), normalized)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("hash check failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	existingSet := make(map[string]bool)
	for _, e := range existing {
		existingSet[e] = true
	}

	missing := make([]string, 0)
	for _, n := range normalized {
		if !existingSet[n] {
			missing = append(missing, n)
		}
	}
	missing = append(missing, invalid...)

	respondJSON(w, http.StatusOK, models.CheckHashesResult{
		Existing: existing,
		Missing:  missing,
	})
}

// List returns paginated photos
// @Summary List all photos
// @Description Get a paginated list of all photos, newest first
// @Tags photos
// @Produce json
// @Param skip query int false "Number of photos to skip" default(0)
// @Param take query int false "Number of photos to return (max 100)" default(50)
// @Success 200 {object} models.PhotoListResponse "List of photos"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Server error"
// @Security BearerAuth
// @Router /api/photos [get]
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	skip := 0
	take := 50

	if s := r.URL.Query().Get("skip"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			skip = v
		}
	}
	if t := r.URL.Query().Get("take"); t != "" {
		if v, err := strconv.Atoi(t); err == nil && v >= 1 && v <= 100 {
			take = v
		}
	}

	photos, err := h.repo.GetAll(r.Context(), skip, take)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("photo list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	totalCount, err := h.repo.GetCount(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("photo count failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	responses := make([]models.PhotoResponse, len(photos))
	for i, p := range photos {
		responses[i] = models.PhotoToResponse(p)
	}

	respondJSON(w, http.StatusOK, models.PhotoListResponse{
		Photos:     responses,
		TotalCount: totalCount,
		Skip:       skip,
		Take:       take,
	})
}

// GetByID returns a single photo by ID
// @Summary Get photo by ID
// @Tags photos
// @Produce json
// @Param id path string true "Photo ID (UUID)"
// @Success 200 {object} models.PhotoResponse "Photo details"
// @Failure 404 {object} models.ErrorResponse "Photo not found"
// @Failure 500 {object} models.ErrorResponse "Server error"
// @Security BearerAuth
// @Router /api/photos/{id} [get]
func (h *PhotoHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	photo, ok := h.loadPhoto(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, models.PhotoToResponse(photo))
}

// GetFile serves the original photo bytes
// @Summary Download the original photo file
// @Tags photos
// @Produce octet-stream
// @Param id path string true "Photo ID (UUID)"
// @Success 200 {file} binary "Photo file"
// @Failure 404 {object} models.ErrorResponse "Photo not found"
// @Security BearerAuth
// @Router /api/photos/{id}/file [get]
func (h *PhotoHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	photo, ok := h.loadPhoto(w, r)
	if !ok {
		return
	}

	fullPath, err := h.storageService.GetFullPath(photo.StoredPath)
	if err != nil || !h.storageService.Exists(photo.StoredPath) {
		respondError(w, http.StatusNotFound, "Photo file is missing from storage.")
		return
	}

	http.ServeFile(w, r, fullPath)
}

// GetThumbnail serves the photo's thumbnail, falling back to the original
// when no thumbnail was generated
// @Summary Download the photo thumbnail
// @Tags photos
// @Produce octet-stream
// @Param id path string true "Photo ID (UUID)"
// @Success 200 {file} binary "Thumbnail JPEG"
// @Failure 404 {object} models.ErrorResponse "Photo not found"
// @Security BearerAuth
// @Router /api/photos/{id}/thumbnail [get]
func (h *PhotoHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	photo, ok := h.loadPhoto(w, r)
	if !ok {
		return
	}

	if photo.ThumbnailPath != "" {
		http.ServeFile(w, r, h.thumbnailService.GetThumbnailPath(photo.ThumbnailPath))
		return
	}

	h.GetFile(w, r)
}

// Delete removes a photo by ID
// @Summary Delete a photo
// @Description Delete a photo. Removes the database record, the file, and the thumbnail; collage items referencing it cascade away.
// @Tags photos
// @Param id path string true "Photo ID (UUID)"
// @Success 204 "Photo deleted"
// @Failure 404 {object} models.ErrorResponse "Photo not found"
// @Failure 500 {object} models.ErrorResponse "Server error"
// @Security BearerAuth
// @Router /api/photos/{id} [delete]
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	photo, ok := h.loadPhoto(w, r)
	if !ok {
		return
	}

	h.storageService.Delete(photo.StoredPath)
	h.thumbnailService.DeleteThumbnail(photo.ThumbnailPath)

	deleted, err := h.repo.Delete(r.Context(), photo.ID)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("photo delete failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Photo not found.")
		return
	}

	h.logger.WithContext(r.Context()).Infof("photo deleted: %s", photo.ID)
	w.WriteHeader(http.StatusNoContent)
}

// loadPhoto resolves the {id} URL parameter, writing the error response on
// failure
func (h *PhotoHandler) loadPhoto(w http.ResponseWriter, r *http.Request) (*models.Photo, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "Photo ID is required.")
		return nil, false
	}

	photo, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("photo lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return nil, false
	}
	if photo == nil {
		respondError(w, http.StatusNotFound, "Photo not found.")
		return nil, false
	}
	return photo, true
}

package models

import "time"

// UploadResult is returned after uploading a photo
type UploadResult struct {
	ID          string    `json:"id"`
	StoredPath  string    `json:"storedPath"`
	UploadedAt  time.Time `json:"uploadedAt"`
	IsDuplicate bool      `json:"isDuplicate"`
}

// NewUploadResult creates a result for a newly uploaded photo
func NewUploadResult(id, storedPath string, uploadedAt time.Time) UploadResult {
	return UploadResult{
		ID:          id,
		StoredPath:  storedPath,
		UploadedAt:  uploadedAt,
		IsDuplicate: false,
	}
}

// DuplicateUploadResult creates a result for a duplicate photo
func DuplicateUploadResult(id, storedPath string, uploadedAt time.Time) UploadResult {
	return UploadResult{
		ID:          id,
		StoredPath:  storedPath,
		UploadedAt:  uploadedAt,
		IsDuplicate: true,
	}
}

// CheckHashesRequest is the request body for checking hashes
type CheckHashesRequest struct {
	Hashes []string `json:"hashes"`
}

// CheckHashesResult is returned when checking which hashes exist
type CheckHashesResult struct {
	Existing []string `json:"existing"`
	Missing  []string `json:"missing"`
}

// PhotoResponse is a single photo in API responses
type PhotoResponse struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"originalFilename"`
	FileSize         int64     `json:"fileSize"`
	Width            int       `json:"width,omitempty"`
	Height           int       `json:"height,omitempty"`
	DateTaken        time.Time `json:"dateTaken"`
	UploadedAt       time.Time `json:"uploadedAt"`
	URL              string    `json:"url"`
	ThumbnailURL     string    `json:"thumbnailUrl"`
}

// PhotoListResponse is returned when listing photos
type PhotoListResponse struct {
	Photos     []PhotoResponse `json:"photos"`
	TotalCount int             `json:"totalCount"`
	Skip       int             `json:"skip"`
	Take       int             `json:"take"`
}

// CreateAlbumRequest is the request body for creating an album
type CreateAlbumRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// UpdateAlbumRequest is the request body for updating an album
type UpdateAlbumRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	CoverPhotoID *string `json:"coverPhotoId,omitempty"`
}

// AlbumListResponse is returned when listing albums
type AlbumListResponse struct {
	Albums []Album `json:"albums"`
}

// AddAlbumPhotosRequest is the request body for adding photos to an album
type AddAlbumPhotosRequest struct {
	PhotoIDs []string `json:"photoIds"`
}

// HealthResponse is returned by health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// PhotoToResponse converts a Photo to PhotoResponse
func PhotoToResponse(p *Photo) PhotoResponse {
	return PhotoResponse{
		ID:               p.ID,
		OriginalFilename: p.OriginalFilename,
		FileSize:         p.FileSize,
		Width:            p.Width,
		Height:           p.Height,
		DateTaken:        p.DateTaken,
		UploadedAt:       p.UploadedAt,
		URL:              p.FileURL(),
		ThumbnailURL:     p.ThumbnailURL(),
	}
}

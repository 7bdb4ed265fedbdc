package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Album groups photos for the household. There is no per-album access
// control: every whitelisted user sees every album.
type Album struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	CoverPhotoID *string   `json:"coverPhotoId,omitempty"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Computed, not stored
	PhotoCount int `json:"photoCount,omitempty"`
}

// NewAlbum creates an album with a generated id
func NewAlbum(createdBy, name string) (*Album, error) {
	if strings.TrimSpace(createdBy) == "" {
		return nil, ErrAlbumUserRequired
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrAlbumNameRequired
	}

	now := time.Now().UTC()
	return &Album{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rename updates the album name
func (a *Album) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrAlbumNameRequired
	}
	a.Name = strings.TrimSpace(name)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Album errors
type AlbumError struct {
	Message string
}

func (e AlbumError) Error() string {
	return e.Message
}

var (
	ErrAlbumNotFound     = AlbumError{"album not found"}
	ErrAlbumNameRequired = AlbumError{"album name is required"}
	ErrAlbumUserRequired = AlbumError{"user ID is required"}
)

package models

import (
	"time"

	"github.com/google/uuid"
)

// AlbumPhoto represents the junction between albums and photos. InCollage
// is a side effect of collage add/remove: true while the photo has at least
// one item on this album's collage.
type AlbumPhoto struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"albumId"`
	PhotoID   string    `json:"photoId"`
	AddedBy   string    `json:"addedBy"`
	AddedAt   time.Time `json:"addedAt"`
	InCollage bool      `json:"inCollage"`
}

// NewAlbumPhoto creates a new album-photo association
func NewAlbumPhoto(albumID, photoID, addedBy string) *AlbumPhoto {
	return &AlbumPhoto{
		ID:      uuid.New().String(),
		AlbumID: albumID,
		PhotoID: photoID,
		AddedBy: addedBy,
		AddedAt: time.Now().UTC(),
	}
}

// AlbumPhotoWithDetails includes photo metadata for API responses
type AlbumPhotoWithDetails struct {
	AlbumPhoto
	Photo *Photo `json:"photo,omitempty"`
}

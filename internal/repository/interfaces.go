package repository

import (
	"context"

	"github.com/collagesync/server/internal/models"
)

// PhotoRepo defines the interface for photo persistence operations
type PhotoRepo interface {
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	GetByHash(ctx context.Context, hash string) (*models.Photo, error)
	GetExistingHashes(ctx context.Context, hashes []string) ([]string, error)
	GetAll(ctx context.Context, skip, take int) ([]*models.Photo, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Photo, error)
	GetCount(ctx context.Context) (int, error)
	Add(ctx context.Context, photo *models.Photo) error
	Delete(ctx context.Context, id string) (bool, error)
}

// AlbumRepo defines the interface for album persistence operations
type AlbumRepo interface {
	GetByID(ctx context.Context, id string) (*models.Album, error)
	GetAll(ctx context.Context) ([]*models.Album, error)
	Add(ctx context.Context, album *models.Album) error
	Update(ctx context.Context, album *models.Album) error
	Delete(ctx context.Context, id string) (bool, error)
}

// AlbumPhotoRepo defines the interface for album membership operations
type AlbumPhotoRepo interface {
	Add(ctx context.Context, ap *models.AlbumPhoto) error
	Remove(ctx context.Context, albumID, photoID string) (bool, error)
	GetEntries(ctx context.Context, albumID string) ([]*models.AlbumPhotoWithDetails, error)
	GetPhotoCount(ctx context.Context, albumID string) (int, error)
	Contains(ctx context.Context, albumID, photoID string) (bool, error)
	SetInCollage(ctx context.Context, albumID, photoID string, inCollage bool) error
}

// CollageItemRepo defines the interface for collage item persistence.
// A nil albumID addresses the aggregate collage.
type CollageItemRepo interface {
	GetByID(ctx context.Context, id string) (*models.CollageItem, error)
	GetByAlbum(ctx context.Context, albumID *string) ([]*models.CollageItem, error)
	CountForPhoto(ctx context.Context, albumID, photoID string) (int, error)
	Add(ctx context.Context, item *models.CollageItem) error
	Update(ctx context.Context, item *models.CollageItem) error
	Delete(ctx context.Context, id string) (bool, error)
}

// UserRepo defines the interface for user persistence operations
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, error)
	GetAll(ctx context.Context) ([]*models.User, error)
	Add(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

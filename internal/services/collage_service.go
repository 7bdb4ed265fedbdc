package services

import (
	"context"

	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/repository"
)

// CollageService owns the collage documents. Every mutation is applied to
// the store and then the collage's full snapshot is broadcast to its topic,
// writer included; clients never apply local mutations directly.
type CollageService struct {
	items       repository.CollageItemRepo
	photos      repository.PhotoRepo
	albums      repository.AlbumRepo
	albumPhotos repository.AlbumPhotoRepo
	hub         *WebSocketHub
	logger      *observability.Logger
}

// NewCollageService creates a new CollageService
func NewCollageService(
	items repository.CollageItemRepo,
	photos repository.PhotoRepo,
	albums repository.AlbumRepo,
	albumPhotos repository.AlbumPhotoRepo,
	hub *WebSocketHub,
) *CollageService {
	return &CollageService{
		items:       items,
		photos:      photos,
		albums:      albums,
		albumPhotos: albumPhotos,
		hub:         hub,
		logger:      observability.WithField("component", "collage_service"),
	}
}

// Snapshot builds the full current state of one collage: its items plus the
// photos those items reference. A nil albumID addresses the aggregate
// collage.
func (s *CollageService) Snapshot(ctx context.Context, albumID *string) (*models.CollageSnapshotDTO, error) {
	items, err := s.items.GetByAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}

	photoIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.PhotoID] {
			seen[item.PhotoID] = true
			photoIDs = append(photoIDs, item.PhotoID)
		}
	}

	photos, err := s.photos.GetByIDs(ctx, photoIDs)
	if err != nil {
		return nil, err
	}

	snap := &models.CollageSnapshotDTO{
		Items:  make([]models.CollageItemDTO, 0, len(items)),
		Photos: make([]models.CollagePhotoDTO, 0, len(photos)),
	}
	if albumID != nil {
		snap.AlbumID = *albumID
	}
	for _, item := range items {
		snap.Items = append(snap.Items, models.CollageItemToDTO(item))
	}
	for _, photo := range photos {
		snap.Photos = append(snap.Photos, models.PhotoToCollageDTO(photo))
	}
	return snap, nil
}

// CreateItem places a photo on a collage. For an album collage the photo
// must be a member of the album; the aggregate collage accepts any photo.
func (s *CollageService) CreateItem(ctx context.Context, albumID *string, photoID, userID string) (*models.CollageItem, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, models.ErrPhotoNotFound
	}

	if albumID != nil {
		album, err := s.albums.GetByID(ctx, *albumID)
		if err != nil {
			return nil, err
		}
		if album == nil {
			return nil, models.ErrAlbumNotFound
		}
		inAlbum, err := s.albumPhotos.Contains(ctx, *albumID, photoID)
		if err != nil {
			return nil, err
		}
		if !inAlbum {
			return nil, models.ErrItemPhotoNotInAlbum
		}
	}

	item, err := models.NewCollageItem(albumID, photoID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.items.Add(ctx, item); err != nil {
		return nil, err
	}

	if albumID != nil {
		if err := s.albumPhotos.SetInCollage(ctx, *albumID, photoID, true); err != nil {
			s.logger.WithContext(ctx).Warnf("in_collage flag update failed: %v", err)
		}
	}

	s.broadcast(ctx, albumID)
	return item, nil
}

// UpdateItem applies a partial update to one item. The stored row is the
// last-writer-wins unit: the update is applied to the current row and the
// row written back whole, so concurrent writers resolve to whichever commit
// lands last.
func (s *CollageService) UpdateItem(ctx context.Context, itemID string, req models.UpdateCollageItemRequest) (*models.CollageItem, error) {
	if req.IsEmpty() {
		return nil, models.ErrItemEmptyUpdate
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, models.ErrItemNotFound
	}

	if err := item.Apply(req); err != nil {
		return nil, err
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.broadcast(ctx, item.AlbumID)
	return item, nil
}

// BringToFront raises an item above every other item on its collage
func (s *CollageService) BringToFront(ctx context.Context, itemID string) (*models.CollageItem, error) {
	return s.restack(ctx, itemID, true)
}

// SendToBack lowers an item below every other item on its collage
func (s *CollageService) SendToBack(ctx context.Context, itemID string) (*models.CollageItem, error) {
	return s.restack(ctx, itemID, false)
}

// restack moves an item to one end of the z order. Indices only ever grow
// outward from the current extremes; nothing renormalizes them.
func (s *CollageService) restack(ctx context.Context, itemID string, toFront bool) (*models.CollageItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, models.ErrItemNotFound
	}

	siblings, err := s.items.GetByAlbum(ctx, item.AlbumID)
	if err != nil {
		return nil, err
	}

	var extreme *float64
	for _, sib := range siblings {
		if sib.ID == item.ID {
			continue
		}
		z := sib.ZIndex
		if extreme == nil || (toFront && z > *extreme) || (!toFront && z < *extreme) {
			extreme = &z
		}
	}
	if extreme == nil {
		return item, nil
	}

	target := *extreme + 1
	if !toFront {
		target = *extreme - 1
	}
	if (toFront && item.ZIndex > *extreme) || (!toFront && item.ZIndex < *extreme) {
		return item, nil
	}

	if err := item.Apply(models.UpdateCollageItemRequest{ZIndex: &target}); err != nil {
		return nil, err
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.broadcast(ctx, item.AlbumID)
	return item, nil
}

// DeleteItem removes one item from its collage
func (s *CollageService) DeleteItem(ctx context.Context, itemID string) error {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return models.ErrItemNotFound
	}

	if _, err := s.items.Delete(ctx, itemID); err != nil {
		return err
	}

	// The flag drops only when the photo's last item leaves the collage
	if item.AlbumID != nil {
		remaining, err := s.items.CountForPhoto(ctx, *item.AlbumID, item.PhotoID)
		if err == nil && remaining == 0 {
			err = s.albumPhotos.SetInCollage(ctx, *item.AlbumID, item.PhotoID, false)
		}
		if err != nil {
			s.logger.WithContext(ctx).Warnf("in_collage flag update failed: %v", err)
		}
	}

	s.broadcast(ctx, item.AlbumID)
	return nil
}

// broadcast pushes the collage's full snapshot to its topic. A snapshot
// build failure only costs this broadcast; the next mutation or reconnect
// sends a fresh one.
func (s *CollageService) broadcast(ctx context.Context, albumID *string) {
	snap, err := s.Snapshot(ctx, albumID)
	if err != nil {
		s.logger.WithContext(ctx).Errorf("snapshot broadcast failed: %v", err)
		return
	}
	s.hub.BroadcastToTopic(CollageTopic(albumID), WSMessage{
		Type:    WSTypeCollageSnapshot,
		Payload: snap,
	})
}

package models

import "time"

// PositionDTO is a canvas-space point on the wire
type PositionDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TransformDTO is an item placement on the wire
type TransformDTO struct {
	Position PositionDTO `json:"position"`
	Rotation float64     `json:"rotation"`
	Scale    float64     `json:"scale"`
}

// CollageItemDTO is one item as clients consume it
type CollageItemDTO struct {
	ID          string       `json:"id"`
	AlbumID     string       `json:"albumId,omitempty"`
	PhotoID     string       `json:"photoId"`
	Transform   TransformDTO `json:"transform"`
	ZIndex      float64      `json:"zIndex"`
	DisplayMode DisplayMode  `json:"displayMode"`
	CaptionText string       `json:"captionText,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// CollagePhotoDTO is the slice of a photo the canvas needs for rendering
type CollagePhotoDTO struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// CollageSnapshotDTO is the full current state of one collage. Every change
// feed event and every GET response carries the complete set; clients
// replace their derived state wholesale.
type CollageSnapshotDTO struct {
	AlbumID string            `json:"albumId,omitempty"`
	Items   []CollageItemDTO  `json:"items"`
	Photos  []CollagePhotoDTO `json:"photos"`
}

// CreateCollageItemRequest for POST /api/collage/items
type CreateCollageItemRequest struct {
	AlbumID string `json:"albumId,omitempty"`
	PhotoID string `json:"photoId"`
}

// CreateCollageItemResponse for POST /api/collage/items
type CreateCollageItemResponse struct {
	ID string `json:"id"`
}

// CollageItemToDTO converts a stored item to its wire shape
func CollageItemToDTO(i *CollageItem) CollageItemDTO {
	dto := CollageItemDTO{
		ID:      i.ID,
		PhotoID: i.PhotoID,
		Transform: TransformDTO{
			Position: PositionDTO{X: i.PositionX, Y: i.PositionY},
			Rotation: i.Rotation,
			Scale:    i.Scale,
		},
		ZIndex:      i.ZIndex,
		DisplayMode: i.DisplayMode,
		CaptionText: i.CaptionText,
		UpdatedAt:   i.UpdatedAt,
	}
	if i.AlbumID != nil {
		dto.AlbumID = *i.AlbumID
	}
	return dto
}

// PhotoToCollageDTO converts a photo to the slice the canvas renders from
func PhotoToCollageDTO(p *Photo) CollagePhotoDTO {
	return CollagePhotoDTO{
		ID:       p.ID,
		Filename: p.OriginalFilename,
		URL:      p.FileURL(),
	}
}

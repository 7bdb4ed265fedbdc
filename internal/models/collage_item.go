package models

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DisplayMode selects how a collage item is framed on the canvas
type DisplayMode string

const (
	DisplayModePolaroid DisplayMode = "polaroid"
	DisplayModePlain    DisplayMode = "plain"
)

// IsValidDisplayMode checks if a display mode value is valid
func IsValidDisplayMode(m string) bool {
	switch DisplayMode(m) {
	case DisplayModePolaroid, DisplayModePlain:
		return true
	}
	return false
}

// Item scale bounds enforced on every write
const (
	MinItemScale = 0.5
	MaxItemScale = 3.0
)

// New items spawn at a random position inside this canvas-space region so
// consecutive additions do not stack exactly on top of each other.
const (
	SpawnRegionWidth  = 600.0
	SpawnRegionHeight = 400.0
)

// CollageItem is one placed photo on a collage canvas. AlbumID is nil for
// items on the aggregate "all photos" collage. The whole row is the
// last-writer-wins unit: whichever update commits last owns every field it
// carried.
type CollageItem struct {
	ID          string      `json:"id"`
	AlbumID     *string     `json:"albumId,omitempty"`
	PhotoID     string      `json:"photoId"`
	PositionX   float64     `json:"positionX"`
	PositionY   float64     `json:"positionY"`
	Rotation    float64     `json:"rotation"`
	Scale       float64     `json:"scale"`
	ZIndex      float64     `json:"zIndex"`
	DisplayMode DisplayMode `json:"displayMode"`
	CaptionText string      `json:"captionText,omitempty"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewCollageItem creates an item with the randomized initial placement:
// rotation zero, scale one, and a zIndex taken from the creation time in
// unix milliseconds so newer items land above older ones.
func NewCollageItem(albumID *string, photoID, createdBy string) (*CollageItem, error) {
	if strings.TrimSpace(photoID) == "" {
		return nil, ErrItemPhotoRequired
	}

	now := time.Now().UTC()
	return &CollageItem{
		ID:          uuid.New().String(),
		AlbumID:     albumID,
		PhotoID:     photoID,
		PositionX:   rand.Float64() * SpawnRegionWidth,
		PositionY:   rand.Float64() * SpawnRegionHeight,
		Rotation:    0,
		Scale:       1,
		ZIndex:      float64(now.UnixMilli()),
		DisplayMode: DisplayModePolaroid,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ClampScale clamps a scale value to the allowed item range
func ClampScale(scale float64) float64 {
	return math.Min(MaxItemScale, math.Max(MinItemScale, scale))
}

// WrapRotation wraps a rotation in degrees into (-180, 180]
func WrapRotation(deg float64) float64 {
	wrapped := math.Mod(deg, 360)
	if wrapped > 180 {
		wrapped -= 360
	} else if wrapped <= -180 {
		wrapped += 360
	}
	return wrapped
}

// UpdateCollageItemRequest is a partial update; only non-nil fields are
// written
type UpdateCollageItemRequest struct {
	Position    *PositionDTO `json:"position,omitempty"`
	Rotation    *float64     `json:"rotation,omitempty"`
	Scale       *float64     `json:"scale,omitempty"`
	ZIndex      *float64     `json:"zIndex,omitempty"`
	DisplayMode *string      `json:"displayMode,omitempty"`
	CaptionText *string      `json:"captionText,omitempty"`
}

// IsEmpty reports whether the request carries no fields
func (r UpdateCollageItemRequest) IsEmpty() bool {
	return r.Position == nil && r.Rotation == nil && r.Scale == nil &&
		r.ZIndex == nil && r.DisplayMode == nil && r.CaptionText == nil
}

// Apply writes the request's fields onto the item, clamping scale and
// wrapping rotation. Returns ErrItemInvalidDisplayMode for an unknown mode.
func (i *CollageItem) Apply(r UpdateCollageItemRequest) error {
	if r.DisplayMode != nil && !IsValidDisplayMode(*r.DisplayMode) {
		return ErrItemInvalidDisplayMode
	}

	if r.Position != nil {
		i.PositionX = r.Position.X
		i.PositionY = r.Position.Y
	}
	if r.Rotation != nil {
		i.Rotation = WrapRotation(*r.Rotation)
	}
	if r.Scale != nil {
		i.Scale = ClampScale(*r.Scale)
	}
	if r.ZIndex != nil {
		i.ZIndex = *r.ZIndex
	}
	if r.DisplayMode != nil {
		i.DisplayMode = DisplayMode(*r.DisplayMode)
	}
	if r.CaptionText != nil {
		i.CaptionText = *r.CaptionText
	}
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// CollageItem errors
type CollageItemError struct {
	Message string
}

func (e CollageItemError) Error() string {
	return e.Message
}

var (
	ErrItemNotFound           = CollageItemError{"collage item not found"}
	ErrItemPhotoRequired      = CollageItemError{"photo ID is required"}
	ErrItemPhotoNotInAlbum    = CollageItemError{"photo is not in the album"}
	ErrItemInvalidDisplayMode = CollageItemError{"invalid display mode"}
	ErrItemEmptyUpdate        = CollageItemError{"update carries no fields"}
)

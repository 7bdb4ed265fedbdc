package collage

import (
	"context"
	"time"
)

// DisplayMode selects how a collage item is framed.
type DisplayMode string

const (
	// DisplayPolaroid renders a white frame with a caption strip.
	DisplayPolaroid DisplayMode = "polaroid"
	// DisplayPlain renders the bare photo.
	DisplayPlain DisplayMode = "plain"
)

// Item is one collage document as the gateway reports it. AlbumID is empty
// for items belonging to the aggregate "all photos" collage.
type Item struct {
	ID          string      `json:"id"`
	AlbumID     string      `json:"albumId,omitempty"`
	PhotoID     string      `json:"photoId"`
	Transform   Transform   `json:"transform"`
	ZIndex      float64     `json:"zIndex"`
	DisplayMode DisplayMode `json:"displayMode"`
	CaptionText string      `json:"captionText,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// PhotoRef is the read-only slice of a photo the canvas needs for rendering.
type PhotoRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Snapshot is one change-feed event: the full current set of items for the
// subscribed collage plus the photos they reference. Consumers replace their
// derived state wholesale; no diffing is required.
type Snapshot struct {
	AlbumID string     `json:"albumId,omitempty"`
	Items   []Item     `json:"items"`
	Photos  []PhotoRef `json:"photos"`
}

// ItemUpdate is a partial update: only non-nil fields are written. A single
// update call is the last-writer-wins unit; concurrent updates to the same
// item are resolved by whichever write the gateway commits last.
type ItemUpdate struct {
	Position    *Point       `json:"position,omitempty"`
	Rotation    *float64     `json:"rotation,omitempty"`
	Scale       *float64     `json:"scale,omitempty"`
	ZIndex      *float64     `json:"zIndex,omitempty"`
	DisplayMode *DisplayMode `json:"displayMode,omitempty"`
	CaptionText *string      `json:"captionText,omitempty"`
}

// IsEmpty reports whether the update carries no fields.
func (u ItemUpdate) IsEmpty() bool {
	return u.Position == nil && u.Rotation == nil && u.Scale == nil &&
		u.ZIndex == nil && u.DisplayMode == nil && u.CaptionText == nil
}

// Gateway is the remote document store boundary. Mutations are
// fire-and-forget from the engine's perspective: errors are logged, never
// retried, and every committed write is echoed back through the
// subscription channel to all clients including the writer.
type Gateway interface {
	// Subscribe opens the change feed for one album's collage, or for the
	// aggregate collage when albumID is empty. The channel closes when ctx
	// is done.
	Subscribe(ctx context.Context, albumID string) (<-chan Snapshot, error)

	// CreateItem adds a photo to the collage and returns the assigned item
	// id.
	CreateItem(ctx context.Context, albumID, photoID string) (string, error)

	// UpdateItem applies a partial update to one item.
	UpdateItem(ctx context.Context, itemID string, update ItemUpdate) error

	// DeleteItem removes one item.
	DeleteItem(ctx context.Context, itemID string) error
}

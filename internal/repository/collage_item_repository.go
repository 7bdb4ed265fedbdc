package repository

import (
	"context"
	"database/sql"

	"github.com/collagesync/server/internal/models"
)

const collageItemColumns = `id, album_id, photo_id, position_x, position_y, rotation, scale, z_index, display_mode, caption_text, created_by, created_at, updated_at`

// CollageItemRepository handles collage item persistence
type CollageItemRepository struct {
	db   *sql.DB
	bind bindFunc
}

// NewCollageItemRepository creates a new CollageItemRepository
func NewCollageItemRepository(db *sql.DB, driver string) *CollageItemRepository {
	return &CollageItemRepository{db: db, bind: binderFor(driver)}
}

func scanCollageItem(row interface{ Scan(...interface{}) error }) (*models.CollageItem, error) {
	var item models.CollageItem
	var albumID sql.NullString
	err := row.Scan(
		&item.ID,
		&albumID,
		&item.PhotoID,
		&item.PositionX,
		&item.PositionY,
		&item.Rotation,
		&item.Scale,
		&item.ZIndex,
		&item.DisplayMode,
		&item.CaptionText,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if albumID.Valid {
		item.AlbumID = &albumID.String
	}
	return &item, nil
}

// GetByID retrieves a collage item by its ID
func (r *CollageItemRepository) GetByID(ctx context.Context, id string) (*models.CollageItem, error) {
	query := r.bind(`SELECT ` + collageItemColumns + ` FROM collage_items WHERE id = ?`)

	item, err := scanCollageItem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetByAlbum retrieves every item on one collage, in zIndex order. A nil
// albumID addresses the aggregate collage (items with no album).
func (r *CollageItemRepository) GetByAlbum(ctx context.Context, albumID *string) ([]*models.CollageItem, error) {
	var rows *sql.Rows
	var err error
	if albumID == nil {
		query := `SELECT ` + collageItemColumns + ` FROM collage_items WHERE album_id IS NULL ORDER BY z_index, created_at`
		rows, err = r.db.QueryContext(ctx, query)
	} else {
		query := r.bind(`SELECT ` + collageItemColumns + ` FROM collage_items WHERE album_id = ? ORDER BY z_index, created_at`)
		rows, err = r.db.QueryContext(ctx, query, *albumID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.CollageItem
	for rows.Next() {
		item, err := scanCollageItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if items == nil {
		items = []*models.CollageItem{}
	}

	return items, rows.Err()
}

// CountForPhoto returns how many items on the album's collage reference the
// photo
func (r *CollageItemRepository) CountForPhoto(ctx context.Context, albumID, photoID string) (int, error) {
	query := r.bind("SELECT COUNT(*) FROM collage_items WHERE album_id = ? AND photo_id = ?")

	var count int
	err := r.db.QueryRowContext(ctx, query, albumID, photoID).Scan(&count)
	return count, err
}

// Add inserts a new collage item
func (r *CollageItemRepository) Add(ctx context.Context, item *models.CollageItem) error {
	query := r.bind(`
		INSERT INTO collage_items (` + collageItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	var albumID interface{}
	if item.AlbumID != nil {
		albumID = *item.AlbumID
	}

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		albumID,
		item.PhotoID,
		item.PositionX,
		item.PositionY,
		item.Rotation,
		item.Scale,
		item.ZIndex,
		item.DisplayMode,
		item.CaptionText,
		item.CreatedBy,
		item.CreatedAt,
		item.UpdatedAt,
	)

	return err
}

// Update writes the item's full mutable state. The row is replaced as a
// unit, which is what makes concurrent updates last-writer-wins.
func (r *CollageItemRepository) Update(ctx context.Context, item *models.CollageItem) error {
	query := r.bind(`
		UPDATE collage_items
		SET position_x = ?, position_y = ?, rotation = ?, scale = ?,
		    z_index = ?, display_mode = ?, caption_text = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		item.PositionX,
		item.PositionY,
		item.Rotation,
		item.Scale,
		item.ZIndex,
		item.DisplayMode,
		item.CaptionText,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrItemNotFound
	}
	return nil
}

// Delete removes a collage item by ID
func (r *CollageItemRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.bind("DELETE FROM collage_items WHERE id = ?"), id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

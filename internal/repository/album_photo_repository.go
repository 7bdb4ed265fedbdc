package repository

import (
	"context"
	"database/sql"

	"github.com/collagesync/server/internal/models"
)

// AlbumPhotoRepository handles album membership persistence
type AlbumPhotoRepository struct {
	db   *sql.DB
	bind bindFunc
}

// NewAlbumPhotoRepository creates a new AlbumPhotoRepository
func NewAlbumPhotoRepository(db *sql.DB, driver string) *AlbumPhotoRepository {
	return &AlbumPhotoRepository{db: db, bind: binderFor(driver)}
}

// Add inserts an album-photo association. Adding the same photo twice is
// rejected by the unique constraint.
func (r *AlbumPhotoRepository) Add(ctx context.Context, ap *models.AlbumPhoto) error {
	query := r.bind(`
		INSERT INTO album_photos (id, album_id, photo_id, added_by, added_at, in_collage)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		ap.ID,
		ap.AlbumID,
		ap.PhotoID,
		ap.AddedBy,
		ap.AddedAt,
		ap.InCollage,
	)

	return err
}

// SetInCollage updates the membership's collage flag
func (r *AlbumPhotoRepository) SetInCollage(ctx context.Context, albumID, photoID string, inCollage bool) error {
	query := r.bind("UPDATE album_photos SET in_collage = ? WHERE album_id = ? AND photo_id = ?")

	_, err := r.db.ExecContext(ctx, query, inCollage, albumID, photoID)
	return err
}

// Remove deletes an album-photo association
func (r *AlbumPhotoRepository) Remove(ctx context.Context, albumID, photoID string) (bool, error) {
	query := r.bind("DELETE FROM album_photos WHERE album_id = ? AND photo_id = ?")

	result, err := r.db.ExecContext(ctx, query, albumID, photoID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// GetEntries retrieves the album's memberships with photo details, in the
// order the photos were added
func (r *AlbumPhotoRepository) GetEntries(ctx context.Context, albumID string) ([]*models.AlbumPhotoWithDetails, error) {
	query := r.bind(`
		SELECT ap.id, ap.album_id, ap.photo_id, ap.added_by, ap.added_at, ap.in_collage,
		       p.` + joinPhotoColumns() + `
		FROM album_photos ap
		JOIN photos p ON p.id = ap.photo_id
		WHERE ap.album_id = ?
		ORDER BY ap.added_at
	`)

	rows, err := r.db.QueryContext(ctx, query, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AlbumPhotoWithDetails
	for rows.Next() {
		entry := &models.AlbumPhotoWithDetails{Photo: &models.Photo{}}
		p := entry.Photo
		var uploadedBy sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.AlbumID, &entry.PhotoID, &entry.AddedBy, &entry.AddedAt, &entry.InCollage,
			&p.ID, &p.OriginalFilename, &p.StoredPath, &p.ThumbnailPath, &p.FileHash,
			&p.FileSize, &p.Width, &p.Height, &p.DateTaken, &uploadedBy, &p.UploadedAt,
		)
		if err != nil {
			return nil, err
		}
		p.UploadedBy = uploadedBy.String
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetPhotoCount returns the number of photos in the album
func (r *AlbumPhotoRepository) GetPhotoCount(ctx context.Context, albumID string) (int, error) {
	query := r.bind("SELECT COUNT(*) FROM album_photos WHERE album_id = ?")

	var count int
	err := r.db.QueryRowContext(ctx, query, albumID).Scan(&count)
	return count, err
}

// Contains reports whether the photo is already in the album
func (r *AlbumPhotoRepository) Contains(ctx context.Context, albumID, photoID string) (bool, error) {
	query := r.bind("SELECT COUNT(*) FROM album_photos WHERE album_id = ? AND photo_id = ?")

	var count int
	if err := r.db.QueryRowContext(ctx, query, albumID, photoID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// joinPhotoColumns prefixes each photo column with the join alias
func joinPhotoColumns() string {
	return `id, p.original_filename, p.stored_path, p.thumbnail_path, p.file_hash, p.file_size, p.width, p.height, p.date_taken, p.uploaded_by, p.uploaded_at`
}

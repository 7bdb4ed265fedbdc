package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/collagesync/server/internal/models"
)

const photoColumns = `id, original_filename, stored_path, thumbnail_path, file_hash, file_size, width, height, date_taken, uploaded_by, uploaded_at`

// PhotoRepository handles photo persistence
type PhotoRepository struct {
	db   *sql.DB
	bind bindFunc
}

// NewPhotoRepository creates a new PhotoRepository
func NewPhotoRepository(db *sql.DB, driver string) *PhotoRepository {
	return &PhotoRepository{db: db, bind: binderFor(driver)}
}

func scanPhoto(row interface{ Scan(...interface{}) error }) (*models.Photo, error) {
	var photo models.Photo
	var uploadedBy sql.NullString
	err := row.Scan(
		&photo.ID,
		&photo.OriginalFilename,
		&photo.StoredPath,
		&photo.ThumbnailPath,
		&photo.FileHash,
		&photo.FileSize,
		&photo.Width,
		&photo.Height,
		&photo.DateTaken,
		&uploadedBy,
		&photo.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	photo.UploadedBy = uploadedBy.String
	return &photo, nil
}

// GetByID retrieves a photo by its ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := r.bind(`SELECT ` + photoColumns + ` FROM photos WHERE id = ?`)

	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// GetByHash retrieves a photo by its file hash
func (r *PhotoRepository) GetByHash(ctx context.Context, hash string) (*models.Photo, error) {
	query := r.bind(`SELECT ` + photoColumns + ` FROM photos WHERE file_hash = ?`)

	photo, err := scanPhoto(r.db.QueryRowContext(ctx, query, strings.ToLower(hash)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// GetExistingHashes returns which hashes from the list already exist
func (r *PhotoRepository) GetExistingHashes(ctx context.Context, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return []string{}, nil
	}

	placeholders := make([]string, len(hashes))
	args := make([]interface{}, len(hashes))
	for i, h := range hashes {
		placeholders[i] = "?"
		args[i] = strings.ToLower(h)
	}

	query := r.bind(`SELECT file_hash FROM photos WHERE file_hash IN (` + strings.Join(placeholders, ",") + `)`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		existing = append(existing, hash)
	}

	if existing == nil {
		existing = []string{}
	}

	return existing, rows.Err()
}

// GetAll retrieves photos with pagination, newest first
func (r *PhotoRepository) GetAll(ctx context.Context, skip, take int) ([]*models.Photo, error) {
	query := r.bind(`
		SELECT ` + photoColumns + `
		FROM photos
		ORDER BY date_taken DESC
		LIMIT ? OFFSET ?
	`)

	rows, err := r.db.QueryContext(ctx, query, take, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPhotos(rows)
}

// GetByIDs retrieves the photos for a set of ids. Missing ids are simply
// absent from the result.
func (r *PhotoRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Photo, error) {
	if len(ids) == 0 {
		return []*models.Photo{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := r.bind(`SELECT ` + photoColumns + ` FROM photos WHERE id IN (` + strings.Join(placeholders, ",") + `)`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPhotos(rows)
}

func collectPhotos(rows *sql.Rows) ([]*models.Photo, error) {
	var photos []*models.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}

	if photos == nil {
		photos = []*models.Photo{}
	}

	return photos, rows.Err()
}

// GetCount returns the total number of photos
func (r *PhotoRepository) GetCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count)
	return count, err
}

// Add inserts a new photo
func (r *PhotoRepository) Add(ctx context.Context, photo *models.Photo) error {
	query := r.bind(`
		INSERT INTO photos (` + photoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	var uploadedBy interface{}
	if photo.UploadedBy != "" {
		uploadedBy = photo.UploadedBy
	}

	_, err := r.db.ExecContext(ctx, query,
		photo.ID,
		photo.OriginalFilename,
		photo.StoredPath,
		photo.ThumbnailPath,
		photo.FileHash,
		photo.FileSize,
		photo.Width,
		photo.Height,
		photo.DateTaken,
		uploadedBy,
		photo.UploadedAt,
	)

	return err
}

// Delete removes a photo by ID
func (r *PhotoRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.bind("DELETE FROM photos WHERE id = ?"), id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

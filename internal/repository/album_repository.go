package repository

import (
	"context"
	"database/sql"

	"github.com/collagesync/server/internal/models"
)

const albumColumns = `id, name, description, cover_photo_id, created_by, created_at, updated_at`

// AlbumRepository handles album persistence
type AlbumRepository struct {
	db   *sql.DB
	bind bindFunc
}

// NewAlbumRepository creates a new AlbumRepository
func NewAlbumRepository(db *sql.DB, driver string) *AlbumRepository {
	return &AlbumRepository{db: db, bind: binderFor(driver)}
}

func scanAlbum(row interface{ Scan(...interface{}) error }) (*models.Album, error) {
	var album models.Album
	var description, coverPhotoID sql.NullString
	err := row.Scan(
		&album.ID,
		&album.Name,
		&description,
		&coverPhotoID,
		&album.CreatedBy,
		&album.CreatedAt,
		&album.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		album.Description = &description.String
	}
	if coverPhotoID.Valid {
		album.CoverPhotoID = &coverPhotoID.String
	}
	return &album, nil
}

// GetByID retrieves an album by its ID
func (r *AlbumRepository) GetByID(ctx context.Context, id string) (*models.Album, error) {
	query := r.bind(`SELECT ` + albumColumns + ` FROM albums WHERE id = ?`)

	album, err := scanAlbum(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return album, nil
}

// GetAll retrieves every album with its photo count, newest first
func (r *AlbumRepository) GetAll(ctx context.Context) ([]*models.Album, error) {
	query := `
		SELECT a.id, a.name, a.description, a.cover_photo_id, a.created_by, a.created_at, a.updated_at,
		       COUNT(ap.id)
		FROM albums a
		LEFT JOIN album_photos ap ON ap.album_id = a.id
		GROUP BY a.id
		ORDER BY a.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []*models.Album
	for rows.Next() {
		var album models.Album
		var description, coverPhotoID sql.NullString
		if err := rows.Scan(
			&album.ID,
			&album.Name,
			&description,
			&coverPhotoID,
			&album.CreatedBy,
			&album.CreatedAt,
			&album.UpdatedAt,
			&album.PhotoCount,
		); err != nil {
			return nil, err
		}
		if description.Valid {
			album.Description = &description.String
		}
		if coverPhotoID.Valid {
			album.CoverPhotoID = &coverPhotoID.String
		}
		albums = append(albums, &album)
	}

	if albums == nil {
		albums = []*models.Album{}
	}

	return albums, rows.Err()
}

// Add inserts a new album
func (r *AlbumRepository) Add(ctx context.Context, album *models.Album) error {
	query := r.bind(`
		INSERT INTO albums (` + albumColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		album.ID,
		album.Name,
		album.Description,
		album.CoverPhotoID,
		album.CreatedBy,
		album.CreatedAt,
		album.UpdatedAt,
	)

	return err
}

// Update writes the album's mutable fields
func (r *AlbumRepository) Update(ctx context.Context, album *models.Album) error {
	query := r.bind(`
		UPDATE albums
		SET name = ?, description = ?, cover_photo_id = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		album.Name,
		album.Description,
		album.CoverPhotoID,
		album.UpdatedAt,
		album.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrAlbumNotFound
	}
	return nil
}

// Delete removes an album by ID. Memberships and collage items cascade.
func (r *AlbumRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.bind("DELETE FROM albums WHERE id = ?"), id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

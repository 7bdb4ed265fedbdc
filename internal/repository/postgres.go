package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		google_sub TEXT,
		api_key_hash TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE INDEX IF NOT EXISTS idx_users_api_key_hash ON users(api_key_hash);

	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		original_filename TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		thumbnail_path TEXT NOT NULL DEFAULT '',
		file_hash TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		date_taken TIMESTAMP NOT NULL,
		uploaded_by TEXT REFERENCES users(id),
		uploaded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_photos_hash ON photos(file_hash);
	CREATE INDEX IF NOT EXISTS idx_photos_date ON photos(date_taken);

	CREATE TABLE IF NOT EXISTS albums (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		cover_photo_id TEXT REFERENCES photos(id) ON DELETE SET NULL,
		created_by TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS album_photos (
		id TEXT PRIMARY KEY,
		album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
		photo_id TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
		added_by TEXT NOT NULL REFERENCES users(id),
		added_at TIMESTAMP NOT NULL DEFAULT NOW(),
		in_collage BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE(album_id, photo_id)
	);

	CREATE INDEX IF NOT EXISTS idx_album_photos_album_id ON album_photos(album_id);
	CREATE INDEX IF NOT EXISTS idx_album_photos_photo_id ON album_photos(photo_id);

	CREATE TABLE IF NOT EXISTS collage_items (
		id TEXT PRIMARY KEY,
		album_id TEXT REFERENCES albums(id) ON DELETE CASCADE,
		photo_id TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
		position_x DOUBLE PRECISION NOT NULL,
		position_y DOUBLE PRECISION NOT NULL,
		rotation DOUBLE PRECISION NOT NULL DEFAULT 0,
		scale DOUBLE PRECISION NOT NULL DEFAULT 1,
		z_index DOUBLE PRECISION NOT NULL,
		display_mode TEXT NOT NULL DEFAULT 'polaroid',
		caption_text TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_collage_items_album_id ON collage_items(album_id);
	CREATE INDEX IF NOT EXISTS idx_collage_items_photo_id ON collage_items(photo_id);
	`

	_, err := db.Exec(schema)
	return err
}

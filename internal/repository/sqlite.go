package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Users table (whitelisted household members)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		google_sub TEXT,
		api_key_hash TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_users_api_key_hash ON users(api_key_hash);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	-- Photos table
	CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		original_filename TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		thumbnail_path TEXT NOT NULL DEFAULT '',
		file_hash TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		date_taken DATETIME NOT NULL,
		uploaded_by TEXT REFERENCES users(id),
		uploaded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_photos_hash ON photos(file_hash);
	CREATE INDEX IF NOT EXISTS idx_photos_date ON photos(date_taken);

	-- Albums table
	CREATE TABLE IF NOT EXISTS albums (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		cover_photo_id TEXT REFERENCES photos(id) ON DELETE SET NULL,
		created_by TEXT NOT NULL REFERENCES users(id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Album photos (junction table)
	CREATE TABLE IF NOT EXISTS album_photos (
		id TEXT PRIMARY KEY,
		album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
		photo_id TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
		added_by TEXT NOT NULL REFERENCES users(id),
		added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		in_collage INTEGER NOT NULL DEFAULT 0,
		UNIQUE(album_id, photo_id)
	);

	CREATE INDEX IF NOT EXISTS idx_album_photos_album_id ON album_photos(album_id);
	CREATE INDEX IF NOT EXISTS idx_album_photos_photo_id ON album_photos(photo_id);

	-- Collage items. album_id is NULL for the aggregate collage. The whole
	-- row is the last-writer-wins unit.
	CREATE TABLE IF NOT EXISTS collage_items (
		id TEXT PRIMARY KEY,
		album_id TEXT REFERENCES albums(id) ON DELETE CASCADE,
		photo_id TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
		position_x REAL NOT NULL,
		position_y REAL NOT NULL,
		rotation REAL NOT NULL DEFAULT 0,
		scale REAL NOT NULL DEFAULT 1,
		z_index REAL NOT NULL,
		display_mode TEXT NOT NULL DEFAULT 'polaroid',
		caption_text TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL REFERENCES users(id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_collage_items_album_id ON collage_items(album_id);
	CREATE INDEX IF NOT EXISTS idx_collage_items_photo_id ON collage_items(photo_id);
	`

	_, err := db.Exec(schema)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/collagesync/server/internal/models"
)

const userColumns = `id, email, display_name, google_sub, api_key_hash, password_hash, created_at, is_active`

// UserRepository handles user persistence
type UserRepository struct {
	db   *sql.DB
	bind bindFunc
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB, driver string) *UserRepository {
	return &UserRepository{db: db, bind: binderFor(driver)}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	var googleSub sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&googleSub,
		&user.APIKeyHash,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.IsActive,
	)
	if err != nil {
		return nil, err
	}
	user.GoogleSub = googleSub.String
	return &user, nil
}

// GetByID retrieves a user by their ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := r.bind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by their email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := r.bind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByAPIKeyHash retrieves a user by the hash of their API key
func (r *UserRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, error) {
	query := r.bind(`SELECT ` + userColumns + ` FROM users WHERE api_key_hash = ? AND is_active = ?`)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, hash, true))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetAll retrieves every user
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if users == nil {
		users = []*models.User{}
	}

	return users, rows.Err()
}

// Add inserts a new user
func (r *UserRepository) Add(ctx context.Context, user *models.User) error {
	query := r.bind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	var googleSub interface{}
	if user.GoogleSub != "" {
		googleSub = user.GoogleSub
	}

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		googleSub,
		user.APIKeyHash,
		user.PasswordHash,
		user.CreatedAt,
		user.IsActive,
	)

	return err
}

// Update writes the user's mutable fields
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := r.bind(`
		UPDATE users
		SET display_name = ?, google_sub = ?, api_key_hash = ?, password_hash = ?, is_active = ?
		WHERE id = ?
	`)

	var googleSub interface{}
	if user.GoogleSub != "" {
		googleSub = user.GoogleSub
	}

	result, err := r.db.ExecContext(ctx, query,
		user.DisplayName,
		googleSub,
		user.APIKeyHash,
		user.PasswordHash,
		user.IsActive,
		user.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is one whitelisted household member. Accounts are created lazily on
// the first Google sign-in of a whitelisted email; there is no public
// registration.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	GoogleSub    string    `json:"-"`                // Google account subject, set on first sign-in
	APIKey       string    `json:"apiKey,omitempty"` // Only shown on creation
	APIKeyHash   string    `json:"-"`                // Never exposed
	PasswordHash string    `json:"-"`                // Never exposed
	CreatedAt    time.Time `json:"createdAt"`
	IsActive     bool      `json:"isActive"`
}

// UserResponse is the safe response format (no API key)
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
	IsActive    bool      `json:"isActive"`
}

// NewUser creates a new user with a generated API key
func NewUser(email, displayName string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)

	if email == "" {
		return nil, ErrEmptyEmail
	}
	if displayName == "" {
		return nil, ErrEmptyDisplayName
	}

	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	return &User{
		ID:          uuid.New().String(),
		Email:       email,
		DisplayName: displayName,
		APIKey:      apiKey,
		APIKeyHash:  HashAPIKey(apiKey),
		CreatedAt:   time.Now().UTC(),
		IsActive:    true,
	}, nil
}

// ToResponse converts User to UserResponse (safe for API)
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		IsActive:    u.IsActive,
	}
}

// GenerateAPIKey creates a secure random API key (exported)
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// HashAPIKey creates a SHA256 hash of an API key
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// SetPassword hashes and sets a local fallback password using bcrypt (cost
// 12). The fallback lets a member in when Google sign-in is unreachable.
func (u *User) SetPassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u.PasswordHash = string(hash)
	return nil
}

// VerifyPassword checks if the provided password matches the hash (constant-time via bcrypt)
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// HasPassword returns true if user has a fallback password set
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// User errors
var (
	ErrEmptyEmail       = UserError{"email cannot be empty"}
	ErrEmptyDisplayName = UserError{"display name cannot be empty"}
	ErrUserNotFound     = UserError{"user not found"}
	ErrEmailNotAllowed  = UserError{"email is not on the whitelist"}
	ErrInvalidAPIKey    = UserError{"invalid API key"}
	ErrPasswordTooShort = UserError{"password must be at least 8 characters"}
	ErrInvalidPassword  = UserError{"invalid password"}
	ErrUserInactive     = UserError{"user account is deactivated"}
)

type UserError struct {
	Message string
}

func (e UserError) Error() string {
	return e.Message
}

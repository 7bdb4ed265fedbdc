package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string       `json:"serverAddress"`
	DatabasePath  string       `json:"databasePath"`
	DatabaseURL   string       `json:"databaseUrl"`
	PhotoStorage  PhotoStorage `json:"photoStorage"`
	Auth          Auth         `json:"auth"`
	Presence      Presence     `json:"presence"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// PhotoStorage configuration
type PhotoStorage struct {
	BasePath          string   `json:"basePath"`
	MaxFileSizeMB     int64    `json:"maxFileSizeMB"`
	AllowedExtensions []string `json:"allowedExtensions"`
}

// Auth holds the whitelist and sign-in configuration
type Auth struct {
	// WhitelistEmails is the closed set of people allowed in. Empty means
	// nobody can sign in.
	WhitelistEmails []string `json:"whitelistEmails"`

	GoogleClientID     string `json:"googleClientId"`
	GoogleClientSecret string `json:"googleClientSecret"`
	GoogleRedirectURL  string `json:"googleRedirectUrl"`

	JWTSecret            string `json:"jwtSecret"`
	SessionDurationHours int    `json:"sessionDurationHours"`
}

// Presence configuration. Presence is disabled when RedisAddr is empty.
type Presence struct {
	RedisAddr     string `json:"redisAddr"`
	RedisPassword string `json:"redisPassword"`
	RedisDB       int    `json:"redisDb"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "collagesync.db",
		PhotoStorage: PhotoStorage{
			BasePath:      "./photos",
			MaxFileSizeMB: 50,
			AllowedExtensions: []string{
				".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic", ".heif",
			},
		},
		Auth: Auth{
			SessionDurationHours: 24 * 30,
		},
	}
}

// Load loads configuration from .env, config file, and environment, in
// increasing precedence
func Load() (*Config, error) {
	// Missing .env is fine; real env vars win over its contents
	godotenv.Load()

	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if basePath := os.Getenv("PHOTO_STORAGE_PATH"); basePath != "" {
		cfg.PhotoStorage.BasePath = basePath
	}

	if emails := os.Getenv("WHITELIST_EMAILS"); emails != "" {
		cfg.Auth.WhitelistEmails = splitEmails(emails)
	}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		cfg.Auth.GoogleClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		cfg.Auth.GoogleClientSecret = secret
	}
	if url := os.Getenv("GOOGLE_REDIRECT_URL"); url != "" {
		cfg.Auth.GoogleRedirectURL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if hours := os.Getenv("SESSION_DURATION_HOURS"); hours != "" {
		if v, err := strconv.Atoi(hours); err == nil && v > 0 {
			cfg.Auth.SessionDurationHours = v
		}
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Presence.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Presence.RedisPassword = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if v, err := strconv.Atoi(db); err == nil && v >= 0 {
			cfg.Presence.RedisDB = v
		}
	}

	// Ensure photo storage directory exists
	if err := os.MkdirAll(cfg.PhotoStorage.BasePath, 0755); err != nil {
		return nil, err
	}

	// Make base path absolute
	absPath, err := filepath.Abs(cfg.PhotoStorage.BasePath)
	if err != nil {
		return nil, err
	}
	cfg.PhotoStorage.BasePath = absPath

	return cfg, nil
}

func splitEmails(s string) []string {
	parts := strings.Split(s, ",")
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			emails = append(emails, p)
		}
	}
	return emails
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/repository"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Session token errors
var (
	ErrInvalidToken = models.UserError{Message: "invalid session token"}
	ErrExpiredToken = models.UserError{Message: "session token has expired"}
)

// SessionClaims are the JWT claims carried by a session token
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// googleUserInfo is the subset of the userinfo response we read
type googleUserInfo struct {
	Sub   string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthService handles sign-in for the whitelisted household members.
// The primary flow is Google OAuth: exchange the authorization code, read
// the userinfo email, check it against the whitelist, and create the
// account lazily on first sign-in. A bcrypt fallback password covers the
// case where Google is unreachable from the home network.
type AuthService struct {
	users           repository.UserRepo
	whitelist       map[string]bool
	oauthConfig     *oauth2.Config
	jwtSecret       []byte
	sessionDuration time.Duration
	logger          *observability.Logger
}

// NewAuthService creates a new AuthService. whitelistEmails is the set of
// addresses allowed to sign in; everything else is rejected before any
// account exists.
func NewAuthService(
	users repository.UserRepo,
	whitelistEmails []string,
	clientID, clientSecret, redirectURL string,
	jwtSecret string,
	sessionDurationHours int,
) *AuthService {
	if sessionDurationHours <= 0 {
		sessionDurationHours = 24 * 30
	}

	whitelist := make(map[string]bool, len(whitelistEmails))
	for _, email := range whitelistEmails {
		whitelist[strings.TrimSpace(strings.ToLower(email))] = true
	}

	return &AuthService{
		users:     users,
		whitelist: whitelist,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		jwtSecret:       []byte(jwtSecret),
		sessionDuration: time.Duration(sessionDurationHours) * time.Hour,
		logger:          observability.WithField("component", "auth_service"),
	}
}

// AuthCodeURL returns the Google consent page URL for the given state
func (s *AuthService) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// HandleGoogleCallback completes the code flow: exchanges the authorization
// code, reads the Google account's email, and signs the member in. A
// whitelisted email without an account gets one created here, API key
// included; the key is only present in the response on that first sign-in.
func (s *AuthService) HandleGoogleCallback(ctx context.Context, code string) (*models.SessionResponse, *models.User, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("code exchange failed: %w", err)
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	email := strings.TrimSpace(strings.ToLower(info.Email))
	if !s.whitelist[email] {
		s.logger.WithContext(ctx).Warnf("sign-in rejected for non-whitelisted email %s", email)
		return nil, nil, models.ErrEmailNotAllowed
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	if user == nil {
		name := info.Name
		if name == "" {
			name = email
		}
		user, err = models.NewUser(email, name)
		if err != nil {
			return nil, nil, err
		}
		user.GoogleSub = info.Sub
		if err := s.users.Add(ctx, user); err != nil {
			return nil, nil, err
		}
		s.logger.WithContext(ctx).Infof("created account for %s on first sign-in", email)
	} else {
		if !user.IsActive {
			return nil, nil, models.ErrUserInactive
		}
		if user.GoogleSub == "" {
			user.GoogleSub = info.Sub
			if err := s.users.Update(ctx, user); err != nil {
				return nil, nil, err
			}
		}
	}

	session, err := s.issueSession(user)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// LoginWithPassword is the fallback login for when Google sign-in is
// unreachable. It only works for accounts that already exist and have set
// a password.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*models.SessionResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.VerifyPassword(password) {
		// Same error for unknown email and wrong password
		return nil, models.ErrInvalidPassword
	}
	if !user.IsActive {
		return nil, models.ErrUserInactive
	}

	return s.issueSession(user)
}

// SetPassword sets the user's fallback password
func (s *AuthService) SetPassword(ctx context.Context, userID, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return models.ErrUserNotFound
	}

	if err := user.SetPassword(password); err != nil {
		return err
	}
	return s.users.Update(ctx, user)
}

// RotateAPIKey replaces the user's API key and returns the new plaintext
// key. The old key stops working immediately.
func (s *AuthService) RotateAPIKey(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", models.ErrUserNotFound
	}

	apiKey, err := models.GenerateAPIKey()
	if err != nil {
		return "", err
	}

	user.APIKeyHash = models.HashAPIKey(apiKey)
	if err := s.users.Update(ctx, user); err != nil {
		return "", err
	}

	s.logger.WithContext(ctx).Infof("rotated API key for user %s", userID)
	return apiKey, nil
}

// ValidateAPIKey resolves a plaintext API key to its active user
func (s *AuthService) ValidateAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, models.ErrInvalidAPIKey
	}

	user, err := s.users.GetByAPIKeyHash(ctx, models.HashAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrInvalidAPIKey
	}
	return user, nil
}

// ValidateSession parses and verifies a session token
func (s *AuthService) ValidateSession(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// issueSession signs a session token for the user
func (s *AuthService) issueSession(user *models.User) (*models.SessionResponse, error) {
	now := time.Now()
	claims := &SessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    "collagesync",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionDuration)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &models.SessionResponse{
		Token: signed,
		User:  user.ToResponse(),
	}, nil
}

// fetchUserInfo reads the Google userinfo endpoint with the exchanged token
func (s *AuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	client.Timeout = 10 * time.Second

	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo request failed: status=%d body=%s", resp.StatusCode, body)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo response carried no email")
	}
	return &info, nil
}

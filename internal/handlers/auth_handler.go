package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/collagesync/server/internal/middleware"
	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/services"
)

const oauthStateCookie = "oauth_state"

// AuthHandler handles sign-in, sessions, and API key management
type AuthHandler struct {
	auth    *services.AuthService
	metrics *observability.BusinessMetrics
	logger  *observability.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth *services.AuthService, metrics *observability.BusinessMetrics) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		metrics: metrics,
		logger:  observability.WithField("component", "auth_handler"),
	}
}

// GoogleSignIn redirects to Google's consent screen
// @Summary Start Google sign-in
// @Description Redirect to Google's OAuth consent screen. The state value is stored in a short-lived cookie and checked on callback.
// @Tags auth
// @Success 302 "Redirect to Google"
// @Router /api/auth/google [get]
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to start sign-in.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback completes the Google sign-in code flow
// @Summary Complete Google sign-in
// @Description Exchange the authorization code for a session. First sign-in of a whitelisted email creates the account; the response then includes the user's API key, shown only this once.
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code from Google"
// @Param state query string true "State value from the sign-in redirect"
// @Success 200 {object} models.SessionResponse "Session token and user"
// @Failure 400 {object} models.ErrorResponse "Missing code or state mismatch"
// @Failure 403 {object} models.ErrorResponse "Email not on the whitelist"
// @Router /api/auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		respondError(w, http.StatusBadRequest, "Sign-in state mismatch. Start again.")
		return
	}
	// One shot per state value
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/api/auth", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "Authorization code is required.")
		return
	}

	session, user, err := h.auth.HandleGoogleCallback(r.Context(), code)
	if err != nil {
		h.recordAuth(r, "google", false)
		switch {
		case errors.Is(err, models.ErrEmailNotAllowed):
			respondError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, models.ErrUserInactive):
			respondError(w, http.StatusForbidden, err.Error())
		default:
			h.logger.WithContext(r.Context()).Errorf("google callback failed: %v", err)
			respondError(w, http.StatusInternalServerError, "Sign-in failed.")
		}
		return
	}

	h.recordAuth(r, "google", true)
	h.setSessionCookie(w, session.Token)

	// A freshly created account still carries its plaintext API key; the
	// UserResponse strips it, so surface it alongside once
	if user.APIKey != "" {
		respondJSON(w, http.StatusOK, struct {
			models.SessionResponse
			APIKey string `json:"apiKey"`
		}{SessionResponse: *session, APIKey: user.APIKey})
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// Login signs in with the local fallback password
// @Summary Password sign-in
// @Description Sign in with the email/password fallback for when Google is unreachable. The password must have been set beforehand via /api/auth/password.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.PasswordLoginRequest true "Credentials"
// @Success 200 {object} models.SessionResponse "Session token and user"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	session, err := h.auth.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordAuth(r, "password", false)
		switch {
		case errors.Is(err, models.ErrInvalidPassword):
			respondError(w, http.StatusUnauthorized, "Invalid email or password.")
		case errors.Is(err, models.ErrUserInactive):
			respondError(w, http.StatusForbidden, err.Error())
		default:
			h.logger.WithContext(r.Context()).Errorf("password login failed: %v", err)
			respondError(w, http.StatusInternalServerError, "Sign-in failed.")
		}
		return
	}

	h.recordAuth(r, "password", true)
	h.setSessionCookie(w, session.Token)
	respondJSON(w, http.StatusOK, session)
}

// SetPassword sets the caller's fallback password
// @Summary Set fallback password
// @Tags auth
// @Accept json
// @Param request body models.SetPasswordRequest true "New password (min 8 characters)"
// @Success 204 "Password set"
// @Failure 400 {object} models.ErrorResponse "Password too short"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/auth/password [post]
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var req models.SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.auth.SetPassword(r.Context(), user.ID, req.Password); err != nil {
		if errors.Is(err, models.ErrPasswordTooShort) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithContext(r.Context()).Errorf("set password failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to set password.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RotateKey replaces the caller's API key
// @Summary Rotate API key
// @Description Generate a new API key for the caller and invalidate the old one. The new key is shown only in this response.
// @Tags auth
// @Produce json
// @Success 200 {object} models.RotateKeyResponse "New API key"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/auth/rotate-key [post]
func (h *AuthHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	apiKey, err := h.auth.RotateAPIKey(r.Context(), user.ID)
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("API key rotation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to rotate API key.")
		return
	}

	respondJSON(w, http.StatusOK, models.RotateKeyResponse{APIKey: apiKey})
}

// Me returns the authenticated user
// @Summary Get current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.UserResponse "Current user"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}
	respondJSON(w, http.StatusOK, user.ToResponse())
}

// Logout clears the session cookie
// @Summary Sign out
// @Tags auth
// @Success 204 "Signed out"
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) recordAuth(r *http.Request, method string, success bool) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordAuthAttempt(r.Context(), method, success)
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

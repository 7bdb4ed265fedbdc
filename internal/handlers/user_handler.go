package handlers

import (
	"net/http"

	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/repository"
)

// UserHandler handles household member endpoints
type UserHandler struct {
	users  repository.UserRepo
	logger *observability.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users repository.UserRepo) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: observability.WithField("component", "user_handler"),
	}
}

// List returns every household member
// @Summary List household members
// @Description List everyone who has signed in, so collage items and presence entries can be attributed by name.
// @Tags users
// @Produce json
// @Success 200 {array} models.UserResponse "Household members"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /api/users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.GetAll(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Errorf("user list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	out := make([]models.UserResponse, len(users))
	for i, u := range users {
		out[i] = u.ToResponse()
	}

	respondJSON(w, http.StatusOK, out)
}

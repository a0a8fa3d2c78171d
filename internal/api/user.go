package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/middleware"
	"github.com/lalith-99/confide/internal/repository"
	"go.uber.org/zap"
)

type UserHandler struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserHandler(repo repository.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{repo: repo, logger: logger}
}

// GetMe handles GET /v1/users/me
//
// A valid token for a user that no longer exists is a 404, not a 500: the
// row may have been deleted after the token was issued.
func (h *UserHandler) GetMe(c *gin.Context) {
	h.respondUser(c, middleware.GetUserID(c))
}

// Get handles GET /v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, h.logger, "id")
	if !ok {
		return
	}
	h.respondUser(c, id)
}

func (h *UserHandler) respondUser(c *gin.Context, id uuid.UUID) {
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, apperrors.NewInternal(err))
		return
	}
	if user == nil {
		writeError(c, h.logger, apperrors.NewNotFound("user", id.String()))
		return
	}
	c.JSON(http.StatusOK, user)
}

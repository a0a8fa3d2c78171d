package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/confide/internal/access"
	"github.com/lalith-99/confide/internal/middleware"
	"go.uber.org/zap"
)

type FriendHandler struct {
	relationships *access.Relationships
	logger        *zap.Logger
}

func NewFriendHandler(relationships *access.Relationships, logger *zap.Logger) *FriendHandler {
	return &FriendHandler{relationships: relationships, logger: logger}
}

// Propose handles POST /v1/friends/:id
func (h *FriendHandler) Propose(c *gin.Context) {
	otherID, ok := uuidParam(c, h.logger, "id")
	if !ok {
		return
	}
	if err := h.relationships.Propose(c.Request.Context(), middleware.GetUserID(c), otherID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Accept handles POST /v1/friends/:id/accept, where :id sent the request.
func (h *FriendHandler) Accept(c *gin.Context) {
	otherID, ok := uuidParam(c, h.logger, "id")
	if !ok {
		return
	}
	if err := h.relationships.Accept(c.Request.Context(), middleware.GetUserID(c), otherID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/confide/internal/access"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/middleware"
	"github.com/lalith-99/confide/internal/realtime"
	"go.uber.org/zap"
)

type DMHandler struct {
	gate     *access.Gate
	threads  *access.Threads
	hub      *realtime.Hub
	upgrader *websocket.Upgrader
	logger   *zap.Logger
}

func NewDMHandler(gate *access.Gate, threads *access.Threads, hub *realtime.Hub, upgrader *websocket.Upgrader, logger *zap.Logger) *DMHandler {
	return &DMHandler{gate: gate, threads: threads, hub: hub, upgrader: upgrader, logger: logger}
}

// Access handles GET /v1/dm/access/:id
func (h *DMHandler) Access(c *gin.Context) {
	targetID, ok := uuidParam(c, h.logger, "id")
	if !ok {
		return
	}
	allowed, err := h.gate.CanContact(c.Request.Context(), middleware.GetUserID(c), targetID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

type openThreadRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required"`
}

// OpenThread handles POST /v1/dm/threads
//
// Opening twice, or from the other side, returns the same thread_id.
func (h *DMHandler) OpenThread(c *gin.Context) {
	var req openThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperrors.NewInvalidArgument("target_user_id is required"))
		return
	}
	targetID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		writeError(c, h.logger, apperrors.NewInvalidArgument("invalid target_user_id"))
		return
	}

	thread, err := h.threads.Open(c.Request.Context(), middleware.GetUserID(c), targetID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread_id": thread.ID})
}

// ListThreads handles GET /v1/dm/threads
func (h *DMHandler) ListThreads(c *gin.Context) {
	threads, err := h.threads.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

// ListMessages handles GET /v1/dm/threads/:id/messages?before=123&limit=50
//
// before is a message id cursor (0 = latest); limit defaults to 50 and is
// capped at 500.
func (h *DMHandler) ListMessages(c *gin.Context) {
	threadID, ok := uuidParam(c, h.logger, "id")
	if !ok {
		return
	}

	var before int64
	if b := c.Query("before"); b != "" {
		v, err := strconv.ParseInt(b, 10, 64)
		if err != nil || v < 0 {
			writeError(c, h.logger, apperrors.NewInvalidArgument("invalid 'before' parameter"))
			return
		}
		before = v
	}

	limit := access.DefaultMessageLimit
	if l := c.Query("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			writeError(c, h.logger, apperrors.NewInvalidArgument("invalid 'limit' parameter"))
			return
		}
		limit = v
	}

	msgs, err := h.threads.ListMessages(c.Request.Context(), middleware.GetUserID(c), threadID, before, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

// SendMessage handles POST /v1/dm/threads/:id/messages
func (h *DMHandler) SendMessage(c *gin.Context) {
	threadID, ok := uuidParam(c, h.logger, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperrors.NewInvalidArgument("invalid request body"))
		return
	}

	msg, err := h.threads.SendMessage(c.Request.Context(), middleware.GetUserID(c), threadID, req.Body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Stream handles GET /v1/dm/threads/:id/ws
//
// Membership is checked before the upgrade so failures are plain HTTP
// errors. After the upgrade the socket only receives new messages.
func (h *DMHandler) Stream(c *gin.Context) {
	threadID, ok := uuidParam(c, h.logger, "id")
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)
	if _, err := h.threads.Member(c.Request.Context(), userID, threadID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	realtime.NewClient(h.hub, conn, threadID, userID, h.logger).Serve()
}

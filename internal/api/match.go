package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/confide/internal/match"
	"github.com/lalith-99/confide/internal/middleware"
	"go.uber.org/zap"
)

type MatchHandler struct {
	matcher *match.Matcher
	logger  *zap.Logger
}

func NewMatchHandler(matcher *match.Matcher, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{matcher: matcher, logger: logger}
}

// List handles GET /v1/matches
//
// Always a JSON array; a caller with nothing published gets [].
func (h *MatchHandler) List(c *gin.Context) {
	profiles, err := h.matcher.GetMatches(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

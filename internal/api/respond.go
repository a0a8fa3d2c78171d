package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"go.uber.org/zap"
)

// writeError renders err as {"error", "code"} with the matching status.
// Internal errors are logged with their cause; the client only sees
// "internal error".
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := apperrors.From(err)
	if appErr.Code == apperrors.ErrInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(appErr.Status, gin.H{"error": appErr.Message, "code": appErr.Code})
}

// uuidParam parses a path parameter, writing 400 when it is not a UUID.
func uuidParam(c *gin.Context, logger *zap.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, logger, apperrors.NewInvalidArgument("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/lalith-99/confide/internal/errors"
	"github.com/lalith-99/confide/internal/middleware"
	"github.com/lalith-99/confide/internal/payment"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments *payment.Service
	logger   *zap.Logger
}

func NewPaymentHandler(payments *payment.Service, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

type unlockRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required"`
}

// Unlock handles POST /v1/payments/unlock
func (h *PaymentHandler) Unlock(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, apperrors.NewInvalidArgument("target_user_id is required"))
		return
	}
	targetID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		writeError(c, h.logger, apperrors.NewInvalidArgument("invalid target_user_id"))
		return
	}

	res, err := h.payments.Checkout(c.Request.Context(), middleware.GetUserID(c), targetID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Notification handles POST /v1/payments/midtrans/notification
//
// Public: Midtrans authenticates with the body signature, not a token.
func (h *PaymentHandler) Notification(c *gin.Context) {
	var n payment.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		writeError(c, h.logger, apperrors.NewInvalidArgument("invalid notification body"))
		return
	}

	res, err := h.payments.HandleNotification(c.Request.Context(), n)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

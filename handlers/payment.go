package handlers

import (
	"net/http"

	"rentwheels/models"
	"rentwheels/services/payment"
	"rentwheels/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler exposes settlement and verification.
type PaymentHandler struct {
	Service payment.PaymentService
}

func NewPaymentHandler(svc payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: svc}
}

// SettleHandler handles POST /payments/settle.
func (h *PaymentHandler) SettleHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req models.SettleRequest
	if !bindJSON(c, &req, false) {
		return
	}

	res, err := h.Service.Settle(c.Request.Context(), payment.SettleInput{
		BookingID:  req.BookingID,
		CustomerID: caller.UID,
		Amount:     req.Amount,
		Method:     req.Method,
		Details:    req.MethodDetails,
	})
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// VerifyHandler handles POST /payments/verify.
func (h *PaymentHandler) VerifyHandler(c *gin.Context) {
	var req models.VerifyRequest
	if !bindJSON(c, &req, false) {
		return
	}
	res, err := h.Service.Verify(c.Request.Context(), req.ProviderReference)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ConfirmCashHandler handles POST /bookings/:id/confirm-cash.
func (h *PaymentHandler) ConfirmCashHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	b, err := h.Service.ConfirmCash(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, b)
}

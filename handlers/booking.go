package handlers

import (
	"context"
	"net/http"

	"rentwheels/models"
	"rentwheels/services/booking"
	"rentwheels/services/identity"
	"rentwheels/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the booking lifecycle.
type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

type createBookingResponse struct {
	BookingID     string `json:"bookingId"`
	InvoiceNumber string `json:"invoiceNumber"`
	TotalPrice    int64  `json:"totalPrice"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

// CreateBookingHandler handles POST /bookings.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var input models.BookingInput
	if !bindJSON(c, &input, false) {
		return
	}

	b, err := h.Service.CreateBooking(c.Request.Context(), input, caller.UID)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusCreated, createBookingResponse{
		BookingID:     b.ID,
		InvoiceNumber: b.InvoiceNumber,
		TotalPrice:    b.TotalPrice,
		Currency:      b.Currency,
		Status:        b.Status,
	})
}

// GetBookingHandler handles GET /bookings/:id.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GetInvoiceHandler handles GET /bookings/:id/invoice.
func (h *BookingHandler) GetInvoiceHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	inv, err := h.Service.GetInvoice(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

type transitionFunc func(ctx context.Context, bookingID string, caller *identity.Identity, reason string) (*models.Booking, error)

// ApproveHandler handles POST /bookings/:id/approve.
func (h *BookingHandler) ApproveHandler(c *gin.Context) {
	h.transition(c, func(ctx context.Context, id string, caller *identity.Identity, _ string) (*models.Booking, error) {
		return h.Service.Approve(ctx, id, caller)
	})
}

func (h *BookingHandler) RejectHandler(c *gin.Context) {
	h.transition(c, h.Service.Reject)
}

func (h *BookingHandler) CancelHandler(c *gin.Context) {
	h.transition(c, h.Service.Cancel)
}

func (h *BookingHandler) CompleteHandler(c *gin.Context) {
	h.transition(c, func(ctx context.Context, id string, caller *identity.Identity, _ string) (*models.Booking, error) {
		return h.Service.Complete(ctx, id, caller)
	})
}

func (h *BookingHandler) transition(c *gin.Context, apply transitionFunc) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var in models.TransitionInput
	if !bindJSON(c, &in, true) {
		return
	}
	b, err := apply(c.Request.Context(), c.Param("id"), caller, in.Reason)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, b)
}

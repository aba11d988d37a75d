package handlers

import (
	"net/http"
	"strconv"

	"rentwheels/models"
	"rentwheels/services/notification"
	"rentwheels/utils"

	"github.com/gin-gonic/gin"
)

// NotificationHandler exposes the dispatcher.
type NotificationHandler struct {
	Service notification.NotificationService
}

func NewNotificationHandler(svc notification.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: svc}
}

// SendHandler handles POST /notifications/send (admin).
func (h *NotificationHandler) SendHandler(c *gin.Context) {
	var req models.SendNotificationRequest
	if !bindJSON(c, &req, false) {
		return
	}
	res, err := h.Service.SendByID(c.Request.Context(), req.ID, notification.SendOptions{
		Force:    req.Force,
		Channels: req.Channels,
	})
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

// RetryHandler handles POST /notifications/retry (admin).
func (h *NotificationHandler) RetryHandler(c *gin.Context) {
	var req models.RetryNotificationsRequest
	if !bindJSON(c, &req, true) {
		return
	}
	res, err := h.Service.RetryFailed(c.Request.Context(), req.Limit)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// MarkReadHandler handles POST /notifications/:id/read.
func (h *NotificationHandler) MarkReadHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	if err := h.Service.MarkRead(c.Request.Context(), c.Param("id"), caller); err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
}

// ListHandler handles GET /notifications for the caller.
func (h *NotificationHandler) ListHandler(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.RespondError(c, getLogger(c), utils.NewValidationError("invalid_limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	list, err := h.Service.ListForUser(c.Request.Context(), caller.UID, limit)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

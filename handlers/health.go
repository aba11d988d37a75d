package handlers

import (
	"net/http"

	"rentwheels/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last dependency check. Liveness only: a degraded
// backend is reported in the body, not the status code.
type HealthHandler struct {
	Monitor *utils.HealthMonitor
}

func (h *HealthHandler) HealthHandler(c *gin.Context) {
	if h.Monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	status := h.Monitor.Status()
	label := "ok"
	if !status.Healthy {
		label = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": label, "checks": status.Checks, "checkedAt": status.CheckedAt})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers liveness probes for the broadcast server.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health reports the service as up. The video mixer polls this before
// switching the overlay scene live.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "penstream-broadcast",
	})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/penstream/broadcast/internal/queue"
)

// QueueHandler exposes the run-of-show queue and the playout sync signal.
type QueueHandler struct {
	manager *queue.Manager
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(manager *queue.Manager) *QueueHandler {
	return &QueueHandler{manager: manager}
}

// GetQueue handles GET /api/v1/queue.
func (h *QueueHandler) GetQueue(c *gin.Context) {
	items, err := h.manager.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load queue: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// AddItemRequest is the POST /api/v1/queue payload.
type AddItemRequest struct {
	Type      string                 `json:"type"`
	Heading   string                 `json:"heading" binding:"required"`
	Content   string                 `json:"content"`
	Duration  int                    `json:"duration"`
	Priority  string                 `json:"priority"`
	ExtraData map[string]interface{} `json:"extra_data"`
}

// AddItem handles POST /api/v1/queue. Media is resolved from the heading
// when the payload carries no video_url.
func (h *QueueHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	item, err := h.manager.Add(c.Request.Context(), queue.AddParams{
		Type:      req.Type,
		Heading:   req.Heading,
		Content:   req.Content,
		Duration:  req.Duration,
		Priority:  req.Priority,
		ExtraData: req.ExtraData,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to add item: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, item)
}

// Sync handles POST /sync: the broadcast screen reports which item is
// currently on air.
func (h *QueueHandler) Sync(c *gin.Context) {
	var status map[string]interface{}
	if err := c.ShouldBindJSON(&status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	if err := h.manager.SetPlayout(status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"synced": true,
	})
}

package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/halcyon/model-bridge-api/internal/analytics"
	"github.com/halcyon/model-bridge-api/pkg/api"
)

// UsageHandler exposes the audit store. Only mounted when persistence is
// enabled.
type UsageHandler struct {
	usage analytics.Service
}

func NewUsageHandler(usage analytics.Service) *UsageHandler {
	return &UsageHandler{usage: usage}
}

func (h *UsageHandler) Overview(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	stats, err := h.usage.GetUsageOverview(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to load usage stats", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"object": "list", "data": stats})
}

func (h *UsageHandler) RecentRequests(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.usage.GetRecentRequests(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to load request logs", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"object": "list", "data": logs})
}

func (h *UsageHandler) Resolutions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	publicName := c.Query("model")

	logs, err := h.usage.GetResolutionHistory(c.Request.Context(), publicName, limit)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to load resolution logs", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"object": "list", "data": logs})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckDeviceStatus handles GET /api/devices/:id/status. It probes the
// device immediately, persists the observed status, and returns both the
// probe outcome and the (possibly updated) device record.
func (h *Handler) CheckDeviceStatus(c *gin.Context) {
	report, err := h.svc.CheckStatusNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(report, "Status checked"))
}

// Index handles GET /api, listing the primary routes.
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, success(gin.H{
		"endpoints": []gin.H{
			{"method": "GET", "path": "/api/health", "description": "Health check"},
			{"method": "GET", "path": "/api/devices", "description": "List devices"},
			{"method": "POST", "path": "/api/devices", "description": "Create device"},
			{"method": "GET", "path": "/api/devices/:id", "description": "Get device by id"},
			{"method": "PUT", "path": "/api/devices/:id", "description": "Update device (full)"},
			{"method": "PATCH", "path": "/api/devices/:id", "description": "Update device (partial)"},
			{"method": "DELETE", "path": "/api/devices/:id", "description": "Delete device"},
			{"method": "GET", "path": "/api/devices/:id/status", "description": "Check device reachability"},
		},
	}, "ok"))
}

// Health handles GET /api/health.
func (h *Handler) Health(pingEnabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, success(gin.H{
			"uptime":       true,
			"ping_enabled": pingEnabled,
		}, "ok"))
	}
}

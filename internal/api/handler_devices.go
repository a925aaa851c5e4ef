package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"device-inventory-backend/internal/validate"
)

// filterKeys are the query parameters accepted by the device listing.
var filterKeys = []string{"name", "ip_address", "device_type", "location", "status"}

// ListDevices handles GET /api/devices. Recognized query parameters are
// applied as exact-match filters; anything else is ignored.
func (h *Handler) ListDevices(c *gin.Context) {
	filters := make(map[string]string)
	for _, key := range filterKeys {
		if val := c.Query(key); val != "" {
			filters[key] = val
		}
	}

	devices, err := h.svc.ListDevices(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(devices, "ok"))
}

// CreateDevice handles POST /api/devices.
func (h *Handler) CreateDevice(c *gin.Context) {
	var payload validate.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, fail("Request body must be valid JSON.", "VALIDATION_ERROR"))
		return
	}

	device, err := h.svc.CreateDevice(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, success(device, "Device created"))
}

// GetDevice handles GET /api/devices/:id.
func (h *Handler) GetDevice(c *gin.Context) {
	device, err := h.svc.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(device, "ok"))
}

// UpdateDevice handles PUT and PATCH /api/devices/:id. Both verbs share
// partial-update semantics: only supplied fields are validated and written.
func (h *Handler) UpdateDevice(c *gin.Context) {
	var payload validate.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, fail("Request body must be valid JSON.", "VALIDATION_ERROR"))
		return
	}

	device, err := h.svc.UpdateDevice(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(device, "Device updated"))
}

// DeleteDevice handles DELETE /api/devices/:id. Deleting an id that
// matches nothing is a 404; a malformed id is a 400.
func (h *Handler) DeleteDevice(c *gin.Context) {
	deleted, err := h.svc.DeleteDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, fail("Device not found.", "NOT_FOUND"))
		return
	}
	c.Status(http.StatusNoContent)
}

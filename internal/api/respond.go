package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"device-inventory-backend/internal/service"
	"device-inventory-backend/internal/store"
	"device-inventory-backend/internal/validate"
)

// success builds the standard success envelope.
func success(data any, message string) gin.H {
	resp := gin.H{"status": "success", "message": message}
	if data != nil {
		resp["data"] = data
	}
	return resp
}

// fail builds the standard error envelope.
func fail(message, code string) gin.H {
	return gin.H{"status": "error", "message": message, "code": code}
}

// respondError maps a domain error kind to an HTTP status and envelope.
// The transport layer is the only place this mapping lives.
func respondError(c *gin.Context, err error) {
	var fieldErrs *validate.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		body := fail(err.Error(), "VALIDATION_ERROR")
		body["details"] = fieldErrs.Fields
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, store.ErrInvalidID):
		c.JSON(http.StatusBadRequest, fail("Invalid device id.", "INVALID_ID"))
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, fail("Device not found.", "NOT_FOUND"))
	case errors.Is(err, store.ErrDuplicateIP):
		c.JSON(http.StatusConflict, fail("Duplicate IP address.", "DUPLICATE_IP"))
	case errors.Is(err, service.ErrInvalidDevice):
		c.JSON(http.StatusBadRequest, fail("Device has no IP address.", "INVALID_DEVICE"))
	default:
		c.JSON(http.StatusInternalServerError, fail("Internal server error.", "INTERNAL_ERROR"))
	}
}

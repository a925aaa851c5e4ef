package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"device-inventory-backend/internal/service"
	"device-inventory-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *service.DeviceService
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(svc *service.DeviceService, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		svc:     svc,
		store:   s,
		webpush: webpushOptions,
	}
}

// Package service orchestrates single-device use cases on top of the
// validator, the device store and the prober. Error kinds from those layers
// propagate unchanged so the transport layer can map each to a status code.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"device-inventory-backend/internal/model"
	"device-inventory-backend/internal/ping"
	"device-inventory-backend/internal/store"
	"device-inventory-backend/internal/validate"
)

// ErrInvalidDevice means a device record is missing a field required for
// the requested operation, e.g. a status check on a device without an IP.
var ErrInvalidDevice = errors.New("device has no IP address")

// StatusReport pairs the probe outcome of a manual check with the device
// record. If persisting the result failed, Device is the pre-check snapshot.
type StatusReport struct {
	Device *model.Device `json:"device"`
	Ping   ping.Result   `json:"ping"`
}

// DeviceService implements the device record lifecycle operations.
type DeviceService struct {
	store    store.Store
	prober   ping.Prober
	notifier ping.ChangeNotifier
	timeout  time.Duration
}

// NewDeviceService creates a service with the given collaborators. notifier
// may be nil; timeout bounds each manual reachability probe.
func NewDeviceService(st store.Store, prober ping.Prober, notifier ping.ChangeNotifier, timeout time.Duration) *DeviceService {
	return &DeviceService{
		store:    st,
		prober:   prober,
		notifier: notifier,
		timeout:  timeout,
	}
}

// ListDevices returns devices matching the exact-match filters. Unknown
// filter keys are ignored by the store.
func (s *DeviceService) ListDevices(ctx context.Context, filters map[string]string) ([]model.Device, error) {
	return s.store.List(ctx, filters)
}

// GetDevice fetches one device by id.
func (s *DeviceService) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	return s.store.GetByID(ctx, id)
}

// CreateDevice validates the payload and inserts a new device. The store's
// unique index makes the duplicate-IP check atomic against concurrent
// creates.
func (s *DeviceService) CreateDevice(ctx context.Context, payload validate.Payload) (*model.Device, error) {
	fields, err := validate.ValidateCreate(payload)
	if err != nil {
		return nil, err
	}

	device := &model.Device{
		Name:       *fields.Name,
		IPAddress:  *fields.IPAddress,
		DeviceType: *fields.DeviceType,
		Location:   *fields.Location,
	}
	if fields.Status != nil {
		device.Status = *fields.Status
	}
	return s.store.Create(ctx, device)
}

// UpdateDevice applies the supplied fields to an existing device. PUT and
// PATCH share these partial semantics: only supplied fields are validated
// and written, everything else keeps its stored value.
func (s *DeviceService) UpdateDevice(ctx context.Context, id string, payload validate.Payload) (*model.Device, error) {
	fields, err := validate.ValidateUpdate(payload)
	if err != nil {
		return nil, err
	}

	updates := store.Updates{
		Name:       fields.Name,
		IPAddress:  fields.IPAddress,
		DeviceType: fields.DeviceType,
		Location:   fields.Location,
		Status:     fields.Status,
	}
	return s.store.Update(ctx, id, updates)
}

// DeleteDevice removes a device by id. Deleting an id that matches nothing
// reports false, not an error.
func (s *DeviceService) DeleteDevice(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}

// CheckStatusNow probes a device on demand and persists the observed
// status and last_ping. If the persist step fails the probe result is
// still returned, paired with the pre-check snapshot.
func (s *DeviceService) CheckStatusNow(ctx context.Context, id string) (*StatusReport, error) {
	device, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if device.IPAddress == "" {
		return nil, ErrInvalidDevice
	}

	result := s.prober.Probe(ctx, device.IPAddress, s.timeout)

	now := time.Now().UTC()
	updates := store.Updates{
		Status:   &result.Status,
		LastPing: &now,
	}
	updated, err := s.store.Update(ctx, id, updates)
	if err != nil {
		log.Printf("Failed to persist status check for device %s: %v", id, err)
		updated = device
	} else if s.notifier != nil && device.Status != result.Status {
		s.notifier.Dispatch(device.ID, device.Status, result.Status)
	}

	return &StatusReport{Device: updated, Ping: result}, nil
}

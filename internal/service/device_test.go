package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"device-inventory-backend/internal/model"
	"device-inventory-backend/internal/ping"
	"device-inventory-backend/internal/store"
	"device-inventory-backend/internal/validate"
)

// memStore is an in-memory store.Store with unique-IP enforcement.
type memStore struct {
	nextID     int64
	devices    map[int64]model.Device
	failUpdate bool
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, devices: make(map[int64]model.Device)}
}

func (s *memStore) parse(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, store.ErrInvalidID
	}
	return n, nil
}

func (s *memStore) ipTaken(ip string, excludeID int64) bool {
	for _, d := range s.devices {
		if d.IPAddress == ip && d.ID != excludeID {
			return true
		}
	}
	return false
}

func (s *memStore) List(_ context.Context, filters map[string]string) ([]model.Device, error) {
	out := make([]model.Device, 0, len(s.devices))
	for _, d := range s.devices {
		if ip, ok := filters["ip_address"]; ok && d.IPAddress != ip {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*model.Device, error) {
	key, err := s.parse(id)
	if err != nil {
		return nil, err
	}
	d, ok := s.devices[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (s *memStore) Create(_ context.Context, device *model.Device) (*model.Device, error) {
	if s.ipTaken(device.IPAddress, 0) {
		return nil, store.ErrDuplicateIP
	}
	device.ID = s.nextID
	s.nextID++
	s.devices[device.ID] = *device
	return device, nil
}

func (s *memStore) Update(_ context.Context, id string, updates store.Updates) (*model.Device, error) {
	key, err := s.parse(id)
	if err != nil {
		return nil, err
	}
	if s.failUpdate {
		return nil, errors.New("simulated store failure")
	}
	d, ok := s.devices[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	if updates.IPAddress != nil {
		if s.ipTaken(*updates.IPAddress, key) {
			return nil, store.ErrDuplicateIP
		}
		d.IPAddress = *updates.IPAddress
	}
	if updates.Name != nil {
		d.Name = *updates.Name
	}
	if updates.DeviceType != nil {
		d.DeviceType = *updates.DeviceType
	}
	if updates.Location != nil {
		d.Location = *updates.Location
	}
	if updates.Status != nil {
		d.Status = *updates.Status
	}
	if updates.LastPing != nil {
		t := *updates.LastPing
		d.LastPing = &t
	}
	s.devices[key] = d
	return &d, nil
}

func (s *memStore) Delete(_ context.Context, id string) (bool, error) {
	key, err := s.parse(id)
	if err != nil {
		return false, err
	}
	_, ok := s.devices[key]
	delete(s.devices, key)
	return ok, nil
}

func (s *memStore) DB() *gorm.DB { return nil }

// stubProber returns a canned result for every probe.
type stubProber struct {
	result ping.Result
	calls  int
}

func (p *stubProber) Probe(_ context.Context, _ string, _ time.Duration) ping.Result {
	p.calls++
	return p.result
}

func offlineResult() ping.Result {
	return ping.Result{Status: model.StatusOffline, Timestamp: time.Now().UTC()}
}

// recordingNotifier captures dispatched status transitions.
type recordingNotifier struct {
	transitions []string
}

func (n *recordingNotifier) Dispatch(deviceID int64, oldStatus, newStatus string) {
	n.transitions = append(n.transitions,
		strconv.FormatInt(deviceID, 10)+":"+oldStatus+"->"+newStatus)
}

func strPtr(s string) *string { return &s }

func createPayload() validate.Payload {
	return validate.Payload{
		Name:       strPtr("Core Router"),
		IPAddress:  strPtr("10.0.0.1"),
		DeviceType: strPtr("router"),
		Location:   strPtr("HQ"),
	}
}

func TestCreateDevice(t *testing.T) {
	t.Run("valid create returns device resolvable by id", func(t *testing.T) {
		st := newMemStore()
		svc := NewDeviceService(st, &stubProber{result: offlineResult()}, nil, time.Second)

		device, err := svc.CreateDevice(context.Background(), createPayload())
		require.NoError(t, err)
		assert.NotZero(t, device.ID)
		assert.Equal(t, "10.0.0.1", device.IPAddress)

		got, err := svc.GetDevice(context.Background(), strconv.FormatInt(device.ID, 10))
		require.NoError(t, err)
		assert.Equal(t, device.ID, got.ID)
		assert.Equal(t, "Core Router", got.Name)
	})

	t.Run("validation failure surfaces field errors", func(t *testing.T) {
		st := newMemStore()
		svc := NewDeviceService(st, &stubProber{result: offlineResult()}, nil, time.Second)

		_, err := svc.CreateDevice(context.Background(), validate.Payload{Name: strPtr("")})

		var fieldErrs *validate.FieldErrors
		require.ErrorAs(t, err, &fieldErrs)
		assert.Empty(t, st.devices, "nothing may be persisted on validation failure")
	})

	t.Run("duplicate ip fails and persists exactly one record", func(t *testing.T) {
		st := newMemStore()
		svc := NewDeviceService(st, &stubProber{result: offlineResult()}, nil, time.Second)

		_, err := svc.CreateDevice(context.Background(), createPayload())
		require.NoError(t, err)

		second := createPayload()
		second.Name = strPtr("Shadow Router")
		_, err = svc.CreateDevice(context.Background(), second)
		assert.ErrorIs(t, err, store.ErrDuplicateIP)
		assert.Len(t, st.devices, 1)
	})
}

func TestUpdateDevice(t *testing.T) {
	setup := func(t *testing.T) (*DeviceService, *memStore, string) {
		st := newMemStore()
		svc := NewDeviceService(st, &stubProber{result: offlineResult()}, nil, time.Second)
		device, err := svc.CreateDevice(context.Background(), createPayload())
		require.NoError(t, err)
		return svc, st, strconv.FormatInt(device.ID, 10)
	}

	t.Run("partial update leaves other fields untouched", func(t *testing.T) {
		svc, _, id := setup(t)

		updated, err := svc.UpdateDevice(context.Background(), id,
			validate.Payload{Location: strPtr("Branch Office")})
		require.NoError(t, err)
		assert.Equal(t, "Branch Office", updated.Location)
		assert.Equal(t, "Core Router", updated.Name)
		assert.Equal(t, "10.0.0.1", updated.IPAddress)
		assert.Equal(t, "router", updated.DeviceType)
	})

	t.Run("updating ip to another device's ip is a conflict", func(t *testing.T) {
		svc, st, id := setup(t)

		other := createPayload()
		other.Name = strPtr("Edge Switch")
		other.IPAddress = strPtr("10.0.0.2")
		other.DeviceType = strPtr("switch")
		_, err := svc.CreateDevice(context.Background(), other)
		require.NoError(t, err)

		_, err = svc.UpdateDevice(context.Background(), id,
			validate.Payload{IPAddress: strPtr("10.0.0.2")})
		assert.ErrorIs(t, err, store.ErrDuplicateIP)

		key, _ := strconv.ParseInt(id, 10, 64)
		assert.Equal(t, "10.0.0.1", st.devices[key].IPAddress, "stored IP must be unchanged")
	})

	t.Run("empty payload is a validation error", func(t *testing.T) {
		svc, _, id := setup(t)
		_, err := svc.UpdateDevice(context.Background(), id, validate.Payload{})
		var fieldErrs *validate.FieldErrors
		assert.ErrorAs(t, err, &fieldErrs)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.UpdateDevice(context.Background(), "9999",
			validate.Payload{Location: strPtr("Anywhere")})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestDeleteDevice(t *testing.T) {
	st := newMemStore()
	svc := NewDeviceService(st, &stubProber{result: offlineResult()}, nil, time.Second)

	device, err := svc.CreateDevice(context.Background(), createPayload())
	require.NoError(t, err)
	id := strconv.FormatInt(device.ID, 10)

	deleted, err := svc.DeleteDevice(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteDevice(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deleted, "second delete reports false, not an error")
}

func TestCheckStatusNow(t *testing.T) {
	t.Run("offline probe persists status and last_ping", func(t *testing.T) {
		st := newMemStore()
		prober := &stubProber{result: offlineResult()}
		svc := NewDeviceService(st, prober, nil, time.Second)

		device, err := svc.CreateDevice(context.Background(), createPayload())
		require.NoError(t, err)
		id := strconv.FormatInt(device.ID, 10)

		before := time.Now().UTC()
		report, err := svc.CheckStatusNow(context.Background(), id)
		require.NoError(t, err)

		assert.Equal(t, model.StatusOffline, report.Ping.Status)
		assert.Nil(t, report.Ping.LatencyMS)
		assert.Equal(t, model.StatusOffline, report.Device.Status)
		require.NotNil(t, report.Device.LastPing)
		assert.WithinDuration(t, before, *report.Device.LastPing, 5*time.Second)

		stored := st.devices[device.ID]
		assert.Equal(t, model.StatusOffline, stored.Status)
		require.NotNil(t, stored.LastPing)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		st := newMemStore()
		svc := NewDeviceService(st, &stubProber{result: offlineResult()}, nil, time.Second)

		_, err := svc.CheckStatusNow(context.Background(), "123")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("device without ip is invalid for a status check", func(t *testing.T) {
		st := newMemStore()
		st.devices[5] = model.Device{ID: 5, Name: "Ghost", DeviceType: "other", Location: "HQ"}
		svc := NewDeviceService(st, &stubProber{result: offlineResult()}, nil, time.Second)

		_, err := svc.CheckStatusNow(context.Background(), "5")
		assert.ErrorIs(t, err, ErrInvalidDevice)
	})

	t.Run("status flip notifies subscribers", func(t *testing.T) {
		st := newMemStore()
		notifier := &recordingNotifier{}
		svc := NewDeviceService(st, &stubProber{result: offlineResult()}, notifier, time.Second)

		payload := createPayload()
		payload.Status = strPtr("online")
		device, err := svc.CreateDevice(context.Background(), payload)
		require.NoError(t, err)
		id := strconv.FormatInt(device.ID, 10)

		_, err = svc.CheckStatusNow(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, []string{id + ":online->offline"}, notifier.transitions)

		// A second check observes the same status; no further dispatch.
		_, err = svc.CheckStatusNow(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, notifier.transitions, 1)
	})

	t.Run("persist failure does not notify", func(t *testing.T) {
		st := newMemStore()
		notifier := &recordingNotifier{}
		svc := NewDeviceService(st, &stubProber{result: offlineResult()}, notifier, time.Second)

		payload := createPayload()
		payload.Status = strPtr("online")
		device, err := svc.CreateDevice(context.Background(), payload)
		require.NoError(t, err)
		st.failUpdate = true

		_, err = svc.CheckStatusNow(context.Background(), strconv.FormatInt(device.ID, 10))
		require.NoError(t, err)
		assert.Empty(t, notifier.transitions, "unpersisted transitions must not be announced")
	})

	t.Run("persist failure still returns the probe result", func(t *testing.T) {
		st := newMemStore()
		prober := &stubProber{result: offlineResult()}
		svc := NewDeviceService(st, prober, nil, time.Second)

		device, err := svc.CreateDevice(context.Background(), createPayload())
		require.NoError(t, err)
		st.failUpdate = true

		report, err := svc.CheckStatusNow(context.Background(), strconv.FormatInt(device.ID, 10))
		require.NoError(t, err, "a failed persist must not fail the whole check")
		assert.Equal(t, model.StatusOffline, report.Ping.Status)
		assert.Equal(t, device.ID, report.Device.ID)
		assert.Nil(t, report.Device.LastPing, "snapshot predates the check")
		assert.Empty(t, report.Device.Status)
	})
}

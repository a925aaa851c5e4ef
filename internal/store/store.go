package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"device-inventory-backend/internal/model"
)

// Updates carries the fields a device update may touch. Nil pointers are
// left out of the UPDATE statement entirely, so omitted fields keep their
// stored values.
type Updates struct {
	Name       *string
	IPAddress  *string
	DeviceType *string
	Location   *string
	Status     *string
	LastPing   *time.Time
}

// IsEmpty reports whether the update would touch nothing.
func (u Updates) IsEmpty() bool {
	return u.Name == nil && u.IPAddress == nil && u.DeviceType == nil &&
		u.Location == nil && u.Status == nil && u.LastPing == nil
}

func (u Updates) columns() map[string]any {
	vals := make(map[string]any)
	if u.Name != nil {
		vals["name"] = *u.Name
	}
	if u.IPAddress != nil {
		vals["ip_address"] = *u.IPAddress
	}
	if u.DeviceType != nil {
		vals["device_type"] = *u.DeviceType
	}
	if u.Location != nil {
		vals["location"] = *u.Location
	}
	if u.Status != nil {
		vals["status"] = *u.Status
	}
	if u.LastPing != nil {
		vals["last_ping"] = *u.LastPing
	}
	return vals
}

// Store defines the persistence operations for device records.
type Store interface {
	List(ctx context.Context, filters map[string]string) ([]model.Device, error)
	GetByID(ctx context.Context, id string) (*model.Device, error)
	Create(ctx context.Context, device *model.Device) (*model.Device, error)
	Update(ctx context.Context, id string, updates Updates) (*model.Device, error)
	Delete(ctx context.Context, id string) (bool, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// allowedFilters are the only filter keys passed through to the database.
// Anything else is dropped so callers can never inject raw query fragments.
var allowedFilters = map[string]string{
	"name":        "name",
	"ip_address":  "ip_address",
	"device_type": "device_type",
	"location":    "location",
	"status":      "status",
}

// parseID converts an external string id into the store's key type.
func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return n, nil
}

// isDuplicateErr recognizes a unique-constraint violation on ip_address.
// TranslateError covers postgres; the string checks cover drivers that do
// not implement error translation.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func (s *gormStore) List(ctx context.Context, filters map[string]string) ([]model.Device, error) {
	q := s.db.WithContext(ctx).Model(&model.Device{})
	for key, val := range filters {
		col, ok := allowedFilters[key]
		if !ok || val == "" {
			continue
		}
		q = q.Where(col+" = ?", val)
	}

	var devices []model.Device
	if err := q.Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

func (s *gormStore) GetByID(ctx context.Context, id string) (*model.Device, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var device model.Device
	if err := s.db.WithContext(ctx).First(&device, "id = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch device %s: %w", id, err)
	}
	return &device, nil
}

func (s *gormStore) Create(ctx context.Context, device *model.Device) (*model.Device, error) {
	if err := s.db.WithContext(ctx).Create(device).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, ErrDuplicateIP
		}
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return device, nil
}

// Update applies the supplied fields in a single UPDATE .. RETURNING
// statement. The check-and-set is atomic in the database; there is no
// read-modify-write window for concurrent writers to race through.
func (s *gormStore) Update(ctx context.Context, id string, updates Updates) (*model.Device, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	vals := updates.columns()
	if len(vals) == 0 {
		return s.GetByID(ctx, id)
	}

	var device model.Device
	res := s.db.WithContext(ctx).
		Model(&device).
		Clauses(clause.Returning{}).
		Where("id = ?", key).
		Updates(vals)
	if res.Error != nil {
		if isDuplicateErr(res.Error) {
			return nil, ErrDuplicateIP
		}
		return nil, fmt.Errorf("failed to update device %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &device, nil
}

func (s *gormStore) Delete(ctx context.Context, id string) (bool, error) {
	key, err := parseID(id)
	if err != nil {
		return false, err
	}

	res := s.db.WithContext(ctx).Delete(&model.Device{}, "id = ?", key)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete device %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

package model

import "time"

// Allowed device types, stored lowercase.
const (
	DeviceTypeRouter = "router"
	DeviceTypeSwitch = "switch"
	DeviceTypeServer = "server"
	DeviceTypeOther  = "other"
)

// StatusOnline and StatusOffline are the values written by reachability checks.
// The status column itself is free text.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Device represents a network device record.
type Device struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id,string"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	IPAddress  string     `gorm:"column:ip_address;size:15;not null;uniqueIndex:uniq_ip_address" json:"ip_address"`
	DeviceType string     `gorm:"size:16;not null;index:idx_device_type" json:"device_type"`
	Location   string     `gorm:"size:100;not null" json:"location"`
	Status     string     `gorm:"size:32;index:idx_status" json:"status,omitempty"`
	LastPing   *time.Time `gorm:"column:last_ping" json:"last_ping,omitempty"`
	CreatedAt  time.Time  `json:"-"`
	UpdatedAt  time.Time  `json:"-"`
}

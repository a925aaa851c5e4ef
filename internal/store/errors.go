package store

import "errors"

var (
	// ErrInvalidID means the identifier is not well formed for this store.
	ErrInvalidID = errors.New("invalid device id")

	// ErrNotFound means the identifier is well formed but matches no device.
	ErrNotFound = errors.New("device not found")

	// ErrDuplicateIP means the ip_address unique constraint was violated.
	ErrDuplicateIP = errors.New("a device with this IP address already exists")
)

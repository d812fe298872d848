package storage

import (
	"context"
	"errors"
)

// Key is the fixed name the session snapshot lives under on every device.
const Key = "gameSyState"

var ErrNotFound = errors.New("snapshot not found")

type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// DeviceKey scopes Key to one device, the way a browser scopes local storage
// to one origin.
func DeviceKey(device string) string { return device + ":" + Key }

// Package storage persists the small amount of per-device state the portal
// keeps between runs (selected location, session, development login).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeyLocation    = "portal.location"
	KeyMockAuth    = "portal.mock_auth"
	KeyMockProfile = "portal.mock_profile"
	KeySession     = "portal.session"
	KeySettings    = "portal.settings"
)

// ErrCorrupt is returned by GetJSON when a stored value cannot be decoded.
var ErrCorrupt = errors.New("stored value is corrupt")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the value stored at key into target. A missing key reports
// found=false with a nil error.
func GetJSON(ctx context.Context, s Store, key string, target any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keychain service name session records are stored under.
const DefaultKeyringService = "spotx"

// KeyringStore implements [models.KeyValueStore] on the operating system keychain.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a [KeyringStore] for service, defaulting to [DefaultKeyringService].
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Get(key string) ([]byte, error) {
	value, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from keyring: %w", key, err)
	}
	return []byte(value), nil
}

func (s *KeyringStore) Set(key string, value []byte) error {
	if err := keyring.Set(s.service, key, string(value)); err != nil {
		return fmt.Errorf("failed to write %s to keyring: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}

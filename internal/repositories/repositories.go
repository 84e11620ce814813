package repositories

import (
	"fmt"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
)

var (
	_ models.KeyValueStore = (*StateRepository)(nil)
	_ models.KeyValueStore = (*KeyringStore)(nil)
	_ models.KeyValueStore = (*FileStore)(nil)
	_ models.KeyValueStore = (*MemoryStore)(nil)
)

// NewStore builds the backend selected by cfg.
//
// The returned closer releases backend resources and is never nil.
func NewStore(cfg shared.StorageConfig) (models.KeyValueStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case shared.StorageSQLite:
		db, err := shared.OpenMigrated(shared.ExpandPath(cfg.Path))
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		return NewStateRepository(db), db.Close, nil
	case shared.StorageKeyring:
		return NewKeyringStore(""), noop, nil
	case shared.StorageFile:
		return NewFileStore(shared.ExpandPath(cfg.Dir)), noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

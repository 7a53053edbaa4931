package storage

import (
	"errors"
	"fmt"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// ErrSQLiteUnavailable is returned for the sqlite backend in builds without
// the sqlite tag.
var ErrSQLiteUnavailable = errors.New("sqlite backend unavailable in this build; rebuild with -tags sqlite")

// DefaultStoreKind is sqlite when compiled in, memory otherwise.
func DefaultStoreKind() string {
	if sqliteAvailable {
		return KindSQLite
	}
	return KindMemory
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

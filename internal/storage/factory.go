package storage

import (
	"os"

	"github.com/pkg/errors"
)

const (
	KindFile   = "file"
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// DefaultStoreKind honours TTT_STORE and falls back to the file backend.
func DefaultStoreKind() string {
	if kind := os.Getenv("TTT_STORE"); kind != "" {
		return kind
	}
	return KindFile
}

// NewStore builds a backend. location is a directory for the file store and a
// database path for sqlite; memory ignores it.
func NewStore(kind, location string) (Store, error) {
	switch kind {
	case "", KindFile:
		return NewFileStore(location), nil
	case KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return NewSQLiteStore(location), nil
	default:
		return nil, errors.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreKinds(t *testing.T) {
	store, err := NewStore(KindMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewStore("", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = NewStore(KindSQLite, "ttt.db")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	require.Error(t, err)
}

func TestDefaultStoreKind(t *testing.T) {
	t.Setenv("TTT_STORE", "")
	assert.Equal(t, KindFile, DefaultStoreKind())
	t.Setenv("TTT_STORE", KindSQLite)
	assert.Equal(t, KindSQLite, DefaultStoreKind())
}

func TestCloseIfSupportedNoCloser(t *testing.T) {
	assert.NoError(t, CloseIfSupported(NewMemoryStore()))
}

package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskStoreOutOfOrderWrites(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	require.NoError(t, store.CreateEmpty("abc.part"))

	size, err := store.Size("abc.part")
	require.NoError(t, err)
	require.EqualValues(t, 0, size)

	// Second chunk lands before the first
	require.NoError(t, store.WriteAt("abc.part", 4, []byte("world")))
	require.NoError(t, store.WriteAt("abc.part", 0, []byte("hell")))

	size, err = store.Size("abc.part")
	require.NoError(t, err)
	require.EqualValues(t, 9, size)

	content, err := os.ReadFile(store.FullPath("abc.part"))
	require.NoError(t, err)
	require.Equal(t, "hellworld", string(content))
}

func TestDiskStoreWriteAtMissingFile(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	require.Error(t, store.WriteAt("nope.part", 0, []byte("x")))
}

func TestDiskStoreDelete(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	require.NoError(t, store.CreateEmpty("abc.part"))
	require.NoError(t, store.Delete("abc.part"))

	_, err := store.Size("abc.part")
	require.Error(t, err)
	require.Error(t, store.Delete("abc.part"))
}

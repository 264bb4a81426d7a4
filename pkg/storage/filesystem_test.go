package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBlobStoreRoundTrip(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save([]byte("payload"), "doc.pdf", "2025|CS|A|5|B1")
	require.NoError(t, err)
	require.NotEmpty(t, path)

	data, err := store.Fetch(path)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)

	require.NoError(t, store.Delete(path))
	_, err = store.Fetch(path)
	require.Error(t, err)

	// deleting twice is not an error
	require.NoError(t, store.Delete(path))
}

func TestLocalBlobStoreSameNameGetsDistinctPaths(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	first, err := store.Save([]byte("member one"), "assignment.pdf", "2026|XI|A|Odd|2026")
	require.NoError(t, err)
	second, err := store.Save([]byte("member two"), "assignment.pdf", "2026|XI|A|Odd|2026")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	data, err := store.Fetch(first)
	require.NoError(t, err)
	require.Equal(t, []byte("member one"), data)

	require.NoError(t, store.Delete(second))
	data, err = store.Fetch(first)
	require.NoError(t, err)
	require.Equal(t, []byte("member one"), data, "deleting one blob must not touch the other")
}

func TestLocalBlobStoreSanitizesHint(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.Save([]byte("x"), "../escape.pdf", "../../etc")
	require.NoError(t, err)
	require.NotContains(t, path, "..")

	data, err := store.Fetch(path)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), data)
}

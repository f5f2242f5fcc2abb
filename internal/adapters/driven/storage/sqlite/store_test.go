package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

// steppingClock advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestNewStore_AppliesMigrations(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	versions, err := store.appliedVersions()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err, "reopening skips applied migrations")
	defer reopened.Close()

	versions, err = reopened.appliedVersions()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)
}

func TestNewStore_CreatesDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, filepath.Join(dir, DatabaseFile))
}

func TestTimeFormat_SortsAsText(t *testing.T) {
	early := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	late := early.Add(1500 * time.Millisecond)

	assert.Less(t, formatTime(early), formatTime(late))

	parsed, err := parseTime(formatTime(late))
	require.NoError(t, err)
	assert.True(t, late.Equal(parsed))

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}

func TestFloat32Blob(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	assert.Equal(t, v, bytesToFloat32Slice(float32SliceToBytes(v)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/errors"
)

// isolate points HOME at an empty directory so a developer's own config
// file does not leak into the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOYAGE_API_KEY", "")
	t.Setenv("LEXSYNC_EMBEDDING_API_KEY", "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexsync.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.File)
	assert.Equal(t, "lexsync/1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, 2*time.Minute, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, 30, cfg.Normattiva.PollAttempts)
	assert.Equal(t, 3*time.Second, cfg.Normattiva.PollInterval)
	assert.Equal(t, "it", cfg.EurLex.Language)
	assert.Equal(t, 500, cfg.EurLex.MinBodySize)
	assert.Equal(t, 50, cfg.Store.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Store.BatchDelay)
	assert.Equal(t, "voyage-law-2", cfg.Embedding.Model)
	assert.Empty(t, cfg.Embedding.APIKey)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
data_dir = "/srv/lexsync"

[http]
request_interval = "500ms"

[eurlex]
language = "en"

[store]
batch_size = 10
batch_delay = "0s"

[metrics]
textfile = "/var/lib/node_exporter/lexsync.prom"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "/srv/lexsync", cfg.DataDir)
	assert.Equal(t, 500*time.Millisecond, cfg.HTTP.RequestInterval)
	assert.Equal(t, "en", cfg.EurLex.Language)
	assert.Equal(t, 10, cfg.Store.BatchSize)
	assert.Equal(t, time.Duration(0), cfg.Store.BatchDelay)
	assert.Equal(t, "/var/lib/node_exporter/lexsync.prom", cfg.Metrics.Textfile)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries, "unset keys keep their default")
}

func TestLoad_HomeFile(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".lexsync"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".lexsync", ConfigFile), []byte("[cache]\nsize = 8\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Cache.Size)
	assert.Equal(t, filepath.Join(home, ".lexsync", ConfigFile), cfg.File)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[store]\nbatch_size = 10\n")
	t.Setenv("LEXSYNC_STORE_BATCH_SIZE", "25")
	t.Setenv("LEXSYNC_NORMATTIVA_POLL_INTERVAL", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Store.BatchSize)
	assert.Equal(t, time.Second, cfg.Normattiva.PollInterval)
}

func TestLoad_EmbeddingKey(t *testing.T) {
	isolate(t)
	t.Setenv("VOYAGE_API_KEY", "pa-voyage")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "pa-voyage", cfg.Embedding.APIKey)

	t.Setenv("LEXSYNC_EMBEDDING_API_KEY", "pa-lexsync")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "pa-lexsync", cfg.Embedding.APIKey, "the prefixed variable wins")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.NotEmpty(t, errors.FlattenHints(err))
}

func TestLoad_BadSyntax(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[store\nbatch_size = ")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[store]
batch_size = -1

[eurlex]
language = "ita"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Contains(t, err.Error(), "store.batch_size")
	assert.Contains(t, err.Error(), "eurlex.language")
}

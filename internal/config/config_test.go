package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 30.0, cfg.Ingest.WindowSeconds)
	assert.Equal(t, 120.0, cfg.Query.GapTolerance)
	assert.Equal(t, 15, cfg.Query.TopK)
	assert.Equal(t, "cohere", cfg.Embedding.Provider)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
qdrant:
  host: qdrant
ingest:
  window_seconds: 45
query:
  gap_tolerance_seconds: 0
cassandra:
  hosts: [db-1, db-2]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "qdrant", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port, "unset fields keep defaults")
	assert.Equal(t, 45.0, cfg.Ingest.WindowSeconds)
	assert.Equal(t, 0.0, cfg.Query.GapTolerance, "zero tolerance is a valid setting")
	assert.Equal(t, []string{"db-1", "db-2"}, cfg.Cassandra.Hosts)
	assert.Equal(t, "video_chunks", cfg.Cassandra.Table)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("qdrant:\n  port: 7000\n"), 0o644))

	t.Setenv("QDRANT_PORT", "6999")
	t.Setenv("CASSANDRA_HOSTS", "a,b,c")
	t.Setenv("SERVER_MODE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6999, cfg.Qdrant.Port)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Cassandra.Hosts)
	assert.True(t, cfg.Server.ServerMode)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("qdrant: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

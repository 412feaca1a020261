package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KGRAPH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, int32(1), cfg.PostgresPoolMin)
	assert.Equal(t, int32(20), cfg.PostgresPoolMax)
	assert.Equal(t, 0.85, cfg.UpsertThreshold)
	assert.Equal(t, int64(10), cfg.VocabularyChangeThreshold)
	assert.Equal(t, 4, cfg.ProviderPolicies["anthropic"].MaxConcurrentRequests)
	assert.Equal(t, 8, cfg.ProviderPolicies["anthropic"].MaxRetries)
}

func TestLoadYAMLFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.yaml")
	content := []byte(`
environment: staging
object_store_bucket: kgraph-staging
upsert_threshold: 0.9
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("KGRAPH_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Staging, cfg.Environment)
	assert.Equal(t, "kgraph-staging", cfg.ObjectStoreBucket)
	assert.Equal(t, 0.9, cfg.UpsertThreshold)
	// fields the file does not mention keep their defaults
	assert.Equal(t, int32(20), cfg.PostgresPoolMax)
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(path, []byte("object_store_bucket: from-file\n"), 0o644))
	t.Setenv("KGRAPH_CONFIG", path)
	t.Setenv("OBJECT_STORE_BUCKET", "from-env")
	t.Setenv("ANTHROPIC_MAX_CONCURRENT", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.ObjectStoreBucket)
	assert.Equal(t, 2, cfg.ProviderPolicies["anthropic"].MaxConcurrentRequests)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("KGRAPH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("APP_ENV", "parallel-universe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRejectsPoolMaxBelowMin(t *testing.T) {
	t.Setenv("KGRAPH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("POSTGRES_POOL_MIN", "10")
	t.Setenv("POSTGRES_POOL_MAX", "5")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownYAMLKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(path, []byte("no_such_knob: true\n"), 0o644))
	t.Setenv("KGRAPH_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}

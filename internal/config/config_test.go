package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tablemesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
table_name: orders
table_base_path: s3://bucket/orders
target_table_formats: [delta, iceberg]
iceberg_catalog_uri: http://localhost:8181
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultIncrementalMaxCommits, cfg.IncrementalMaxCommits)
	assert.Equal(t, DefaultSyncTimeoutMs, cfg.SyncTimeoutMs)
	require.NotNil(t, cfg.IncrementalSyncEnabled)
	assert.True(t, *cfg.IncrementalSyncEnabled)
}

func TestLoadRejectsMissingTableName(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
table_base_path: s3://bucket/orders
target_table_formats: [delta]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ConfigError))
}

func TestLoadRejectsDuplicateTargets(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
table_name: orders
table_base_path: s3://bucket/orders
target_table_formats: [delta, delta]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ConfigError))
}

func TestLoadRequiresIcebergCatalogURIWhenIcebergTargeted(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
table_name: orders
table_base_path: s3://bucket/orders
target_table_formats: [iceberg]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ConfigError))
}

func TestTargetsParsesEveryConfiguredFormat(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
table_name: orders
table_base_path: s3://bucket/orders
target_table_formats: [delta, hudi]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	targets, err := cfg.Targets()
	require.NoError(t, err)
	assert.Equal(t, []model.TableFormat{model.FormatDelta, model.FormatHudi}, targets)
}

func TestParseFormatIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	tf, err := ParseFormat(" Delta ")
	require.NoError(t, err)
	assert.Equal(t, model.FormatDelta, tf)

	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/csvkit/pkg/csvwriter"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(MapConfigSource{})
	require.NoError(t, err)

	assert.Equal(t, csvwriter.DefaultOptions(), cfg.CSVOptions())
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "csv-exports", cfg.BlobContainer)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, "exports", cfg.ExportDir)
}

func TestLoadConfig_CSVOverrides(t *testing.T) {
	cfg, err := LoadConfig(MapConfigSource{
		"CSV_DELIMITER":  "|",
		"CSV_ENCLOSURE":  "'",
		"CSV_ESCAPE":     "none",
		"CSV_HAS_HEADER": "false",
		"CSV_USE_CRLF":   "true",
	})
	require.NoError(t, err)

	assert.Equal(t, csvwriter.Options{
		Delimiter: '|',
		Enclosure: '\'',
		Escape:    0,
		HasHeader: false,
		UseCRLF:   true,
	}, cfg.CSVOptions())
}

func TestLoadConfig_BackslashEscape(t *testing.T) {
	cfg, err := LoadConfig(MapConfigSource{"CSV_ESCAPE": `\`})
	require.NoError(t, err)
	assert.Equal(t, '\\', cfg.CSVOptions().Escape)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]MapConfigSource{
		"Multi-character delimiter": {"CSV_DELIMITER": "||"},
		"Delimiter equals enclosure": {"CSV_DELIMITER": `"`},
		"Delimiter equals escape":    {"CSV_DELIMITER": ";", "CSV_ESCAPE": ";"},
		"Unknown log level":          {"LOG_LEVEL": "verbose"},
		"Port out of range":          {"HTTP_PORT": "70000"},
		"Short JWT secret":           {"JWT_SECRET": "too-short"},
	}

	for name, source := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(source)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "CSV_DELIMITER: \";\"\nHTTP_PORT: 9090\ncsv:\n  nested: value\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("HTTP_PORT", "9191")

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ';', cfg.CSVOptions().Delimiter)
	assert.Equal(t, 9191, cfg.HTTPPort, "environment wins over file")

	source, err := NewFileConfigSource(path)
	require.NoError(t, err)
	val, ok := source.Get("csv.nested")
	assert.True(t, ok)
	assert.Equal(t, "value", val)
}

func TestNewFileConfigSource_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1"), 0o644))

	_, err := NewFileConfigSource(path)
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
host = "0.0.0.0"
port = 8125
refresh-interval = "10s"

[backend]
enabled = ["primary", "db"]

[backend.available.primary]
type = "console"

[backend.available.db]
type = "postgresql"
host = "localhost"
port = 5432
user = "metcod"
password = "secret"
db-name = "metrics"
`

func writeSample(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeSample(t, sample)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, uint16(8125), cfg.Port)
	assert.Equal(t, "10s", cfg.RefreshInterval.String())
	require.Len(t, cfg.Backends.Enabled, 2)
	assert.Equal(t, "primary", cfg.Backends.Enabled[0].Name)
	assert.Equal(t, BackendConsole, cfg.Backends.Enabled[0].Config.Type)
	assert.Equal(t, "db", cfg.Backends.Enabled[1].Name)
	assert.Equal(t, BackendPostgreSQL, cfg.Backends.Enabled[1].Config.Type)
	assert.Equal(t, "localhost", cfg.Backends.Enabled[1].Config.Host)
}

func TestLoadRejectsUnknownEnabledBackend(t *testing.T) {
	path := writeSample(t, `
host = "0.0.0.0"
port = 8125
refresh-interval = "10s"

[backend]
enabled = ["missing"]

[backend.available.primary]
type = "console"
`)

	_, err := Load(path)
	assert.ErrorContains(t, err, `"missing"`)
}

func TestEnvOverridesHostAndPort(t *testing.T) {
	path := writeSample(t, sample)

	t.Setenv("METCOD_HOST", "127.0.0.1")
	t.Setenv("METCOD_PORT", "9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, uint16(9000), cfg.Port)
}

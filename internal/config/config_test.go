package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/your-org/facematch/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "server:\n  api_key: secret\n"))
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "secret", cfg.Server.APIKey)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, 128, cfg.Recognition.Dimension)
	require.Equal(t, config.SourceFile, cfg.Recognition.Source)
	require.Equal(t, "data/labels.csv", cfg.Recognition.LabelsPath)
	require.Zero(t, cfg.Recognition.MaxDistance)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadYAMLValues(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
database:
  host: db
  name: facematch
  user: fm
  password: pw
recognition:
  source: postgres
  max_distance: 0.8
  reload_interval: 30s
logging:
  format: text
`))
	require.NoError(t, err)

	require.Equal(t, "postgres://fm:pw@db:5432/facematch?sslmode=disable", cfg.Database.DSN())
	require.Equal(t, config.SourceDatabase, cfg.Recognition.Source)
	require.Equal(t, 0.8, cfg.Recognition.MaxDistance)
	require.Equal(t, 30*time.Second, cfg.Recognition.ReloadInterval)
	require.Equal(t, "text", cfg.Logging.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FM_SERVER_PORT", "9000")
	t.Setenv("FM_REFERENCE_SOURCE", "minio")
	t.Setenv("FM_MAX_DISTANCE", "0.25")
	t.Setenv("FM_RELOAD_INTERVAL", "1m")
	t.Setenv("FM_WORKER_COUNT", "not-a-number")

	cfg, err := config.Load(writeConfig(t, "server:\n  port: 8081\n"))
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, config.SourceObject, cfg.Recognition.Source)
	require.Equal(t, 0.25, cfg.Recognition.MaxDistance)
	require.Equal(t, time.Minute, cfg.Recognition.ReloadInterval)
	require.Equal(t, 4, cfg.Recognition.WorkerCount)
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	_, err := config.Load(writeConfig(t, "recognition:\n  source: redis\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-server/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, config.DriverFS, cfg.Storage.Driver)
	assert.Equal(t, "students", cfg.Storage.Path)
	assert.Equal(t, "./public", cfg.PublicDir)
	assert.Equal(t, ":5678", cfg.HTTPServer.Addr)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
env: "prod"
storage:
  driver: "sqlite"
  path: "/var/lib/students.db"
public_dir: "/srv/public"
http_server:
  address: "0.0.0.0:9000"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, config.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/students.db", cfg.Storage.Path)
	assert.Equal(t, "/srv/public", cfg.PublicDir)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: "fs"
http_server:
  address: ":5678"
`)
	t.Setenv("STORAGE_DRIVER", "bolt")
	t.Setenv("HTTP_SERVER_ADDR", ":7000")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.DriverBolt, cfg.Storage.Driver)
	assert.Equal(t, ":7000", cfg.Addr)
}

func TestLoad_UnknownDriverRejected(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: "postgres"
`)

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestLoad_UnknownEnvRejected(t *testing.T) {
	t.Setenv("ENV", "qa")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "does not exist")
}

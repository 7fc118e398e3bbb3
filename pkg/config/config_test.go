package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DATABASE_FILE_PATH", "DB_PATH", "SERVER_PORT", "PORT", "SERVER_HOST", "HOST", "ENVIRONMENT", "NODE_ENV"} {
		t.Setenv(name, "")
	}
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
}

func TestNew_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.ServerHost)
	assert.Equal(t, 3001, cfg.ServerPort)
	assert.Equal(t, "./data/books.db", cfg.DatabaseFilePath)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5, cfg.DatabaseConnectRetryCount)
	assert.Equal(t, 2*time.Second, cfg.DatabaseConnectRetryDelay)
	assert.Equal(t, 5*time.Second, cfg.DatabaseBusyTimeout)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.False(t, cfg.TrustProxy)
	assert.Zero(t, cfg.RateLimitPerSecond)
	assert.False(t, cfg.IsProduction())
}

func TestNew_ShortAliases(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "4000")
	t.Setenv("DB_PATH", "/tmp/alias.db")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("HOST", "0.0.0.0")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.ServerPort)
	assert.Equal(t, "/tmp/alias.db", cfg.DatabaseFilePath)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.True(t, cfg.IsProduction())
}

func TestNew_LongNameBeatsAlias(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "4000")
	t.Setenv("SERVER_PORT", "5000")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.ServerPort)
}

func TestNew_WithConfigFile(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
database_file_path: /data/books.db
server_port: 8080
database_debug: true
database_busy_timeout: 10s
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
	t.Setenv("CONFIG_FILE", configPath)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/books.db", cfg.DatabaseFilePath)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.True(t, cfg.DatabaseDebug)
	assert.Equal(t, 10*time.Second, cfg.DatabaseBusyTimeout)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
database_file_path: /data/from-file.db
server_port: 8080
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_FILE_PATH", "/data/from-env.db")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/from-env.db", cfg.DatabaseFilePath)
	assert.Equal(t, 9090, cfg.ServerPort)
}

func TestNew_InvalidPort(t *testing.T) {
	isolate(t)
	t.Setenv("SERVER_PORT", "70000")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server_port")
}

func TestNewForTest(t *testing.T) {
	cfg := NewForTest()
	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 1, cfg.DatabaseConnectRetryCount)
	assert.True(t, cfg.IsTest())
}

func TestNew_MissingDatabasePath(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database_file_path: \"\"\n"), 0644))
	t.Setenv("CONFIG_FILE", configPath)

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_file_path")
}

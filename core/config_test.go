package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CONFIG_FILE", "PORT", "SESSION_KEY", "COOKIE_ENCRYPTION_KEY", "COOKIE_SECURE", "LOG_DIR",
		"DATABASE_URL", "POSTGRES_URL", "REDIS_URL", "HASH_WORKERS", "PBKDF2_ITERATIONS",
		"MIGRATE_ON_START", "STATIC_DIR",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, MinPBKDF2Iterations, cfg.PBKDF2Iterations)
	assert.GreaterOrEqual(t, cfg.HashWorkers, 1)
	assert.LessOrEqual(t, cfg.HashWorkers, 4)
	assert.Empty(t, cfg.SessionKey)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("COOKIE_ENCRYPTION_KEY", "legacy")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("POSTGRES_URL", "postgres://db/todo")
	t.Setenv("HASH_WORKERS", "0")
	t.Setenv("PBKDF2_ITERATIONS", "5")
	t.Setenv("MIGRATE_ON_START", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "legacy", cfg.SessionKey)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "postgres://db/todo", cfg.DatabaseURL)
	assert.Equal(t, 1, cfg.HashWorkers)
	assert.Equal(t, MinPBKDF2Iterations, cfg.PBKDF2Iterations)
	assert.True(t, cfg.MigrateOnStart)

	t.Setenv("SESSION_KEY", "primary")
	t.Setenv("DATABASE_URL", "postgres://primary/todo")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.SessionKey)
	assert.Equal(t, "postgres://primary/todo", cfg.DatabaseURL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "todo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
redis_url: redis://cache:6379/1
hash_workers: 3
pbkdf2_iterations: 200000
cookie_secure: false
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, 3, cfg.HashWorkers)
	assert.Equal(t, 200000, cfg.PBKDF2Iterations)
	assert.False(t, cfg.CookieSecure)
}

func TestLoadWithFile_Errors(t *testing.T) {
	clearConfigEnv(t)

	_, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("port: [unclosed"), 0o600))
	_, err = LoadWithFile(bad)
	assert.ErrorContains(t, err, "parse config file")
}

func TestSetupLogging_WritesFile(t *testing.T) {
	dir := t.TempDir()
	closer, err := SetupLogging(Config{LogDir: dir}, "")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = SetupLogging(Config{}, "")
	})
	require.NoError(t, closer.Close())

	_, err = os.Stat(filepath.Join(dir, "todo.log"))
	assert.NoError(t, err)
}

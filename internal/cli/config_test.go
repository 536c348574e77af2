package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typist/internal/store"
)

// clearConfigEnv unsets every TYPIST_* variable the config layer reads.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TYPIST_BACKEND",
		"TYPIST_SQLITE_PATH",
		"TYPIST_FILE_DIR",
		"TYPIST_REDIS_ADDR",
		"TYPIST_REDIS_PASSWORD",
		"TYPIST_REDIS_DB",
		"TYPIST_REDIS_PREFIX",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "typist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := loadConfig(&RootOptions{})
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "typist.db", cfg.SQLitePath)
	assert.Equal(t, "typist-data", cfg.FileDir)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, store.DefaultRedisPrefix, cfg.Redis.Prefix)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, t.TempDir(), `
backend: redis
redis:
  addr: cache.internal:6380
  db: 3
  prefix: "app:"
`)

	cfg, err := loadConfig(&RootOptions{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "app:", cfg.Redis.Prefix)
	assert.Equal(t, "typist.db", cfg.SQLitePath, "unset keys keep their defaults")
}

func TestLoadConfig_WorkingDirectoryFile(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "backend: file\nfile:\n  dir: slots\n")
	t.Chdir(dir)

	cfg, err := loadConfig(&RootOptions{})
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "slots", cfg.FileDir)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, t.TempDir(), "backend: redis\nsqlite:\n  path: from-file.db\n")
	t.Setenv("TYPIST_BACKEND", "sqlite")
	t.Setenv("TYPIST_SQLITE_PATH", "from-env.db")

	cfg, err := loadConfig(&RootOptions{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "from-env.db", cfg.SQLitePath)
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("TYPIST_BACKEND", "redis")

	cfg, err := loadConfig(&RootOptions{Backend: BackendMemory})
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
}

func TestLoadConfig_InvalidBackend(t *testing.T) {
	clearConfigEnv(t)
	t.Chdir(t.TempDir())

	_, err := loadConfig(&RootOptions{Backend: "localStorage"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid backend "localStorage"`)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	clearConfigEnv(t)

	_, err := loadConfig(&RootOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfigFile(t, t.TempDir(), "backend: [unterminated\n")

	_, err := loadConfig(&RootOptions{ConfigFile: path})
	require.Error(t, err)
}

func TestOpenGateway(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()
	dir := t.TempDir()

	t.Run("memory", func(t *testing.T) {
		gw, closeFn, err := openGateway(ctx, &Config{Backend: BackendMemory}, logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &store.MemoryGateway{}, gw)
	})

	t.Run("sqlite", func(t *testing.T) {
		gw, closeFn, err := openGateway(ctx, &Config{Backend: BackendSQLite, SQLitePath: filepath.Join(dir, "typist.db")}, logger)
		require.NoError(t, err)
		assert.IsType(t, &store.SQLiteGateway{}, gw)
		assert.NoError(t, closeFn())
	})

	t.Run("file", func(t *testing.T) {
		slotDir := filepath.Join(dir, "slots")
		gw, closeFn, err := openGateway(ctx, &Config{Backend: BackendFile, FileDir: slotDir}, logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &store.FileGateway{}, gw)
		assert.DirExists(t, slotDir)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := openGateway(ctx, &Config{Backend: "tape"}, logger)
		require.Error(t, err)
	})
}

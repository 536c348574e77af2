package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/typist/internal/store"
)

const (
	configFileName = "typist"
	configFileType = "yaml"
	envPrefix      = "TYPIST"

	cfgKeyBackend       = "backend"
	cfgKeySQLitePath    = "sqlite.path"
	cfgKeyFileDir       = "file.dir"
	cfgKeyRedisAddr     = "redis.addr"
	cfgKeyRedisPassword = "redis.password"
	cfgKeyRedisDB       = "redis.db"
	cfgKeyRedisPrefix   = "redis.prefix"

	defaultBackend    = "sqlite"
	defaultSQLitePath = "typist.db"
	defaultFileDir    = "typist-data"
	defaultRedisAddr  = "localhost:6379"
)

// Backend names accepted by the backend key and --backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// ValidBackends lists the accepted backends.
var ValidBackends = []string{BackendMemory, BackendSQLite, BackendFile, BackendRedis}

// Config is the resolved storage configuration.
type Config struct {
	Backend    string
	SQLitePath string
	FileDir    string
	Redis      store.RedisConfig
}

// loadConfig resolves configuration from, in increasing precedence: defaults,
// the config file, TYPIST_* environment variables and the --backend flag.
//
// Without --config, ./typist.yaml is read if it exists; a missing file is not
// an error. An explicit --config must exist.
func loadConfig(opts *RootOptions) (*Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeySQLitePath, defaultSQLitePath)
	v.SetDefault(cfgKeyFileDir, defaultFileDir)
	v.SetDefault(cfgKeyRedisAddr, defaultRedisAddr)
	v.SetDefault(cfgKeyRedisPassword, "")
	v.SetDefault(cfgKeyRedisDB, 0)
	v.SetDefault(cfgKeyRedisPrefix, store.DefaultRedisPrefix)

	// TYPIST_SQLITE_PATH overrides sqlite.path
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || opts.ConfigFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if opts.Backend != "" {
		v.Set(cfgKeyBackend, opts.Backend)
	}

	cfg := &Config{
		Backend:    v.GetString(cfgKeyBackend),
		SQLitePath: v.GetString(cfgKeySQLitePath),
		FileDir:    v.GetString(cfgKeyFileDir),
		Redis: store.RedisConfig{
			Addr:     v.GetString(cfgKeyRedisAddr),
			Password: v.GetString(cfgKeyRedisPassword),
			DB:       v.GetInt(cfgKeyRedisDB),
			Prefix:   v.GetString(cfgKeyRedisPrefix),
		},
	}

	if !isValidBackend(cfg.Backend) {
		return nil, fmt.Errorf("invalid backend %q: must be one of %v", cfg.Backend, ValidBackends)
	}
	return cfg, nil
}

func isValidBackend(backend string) bool {
	for _, b := range ValidBackends {
		if b == backend {
			return true
		}
	}
	return false
}

// openGateway opens the configured backend. The returned close function
// releases its resources and is never nil.
func openGateway(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Gateway, func() error, error) {
	nop := func() error { return nil }

	switch cfg.Backend {
	case BackendMemory:
		logger.Warn("memory backend selected: state is lost when the process exits")
		return store.NewMemoryGateway(), nop, nil

	case BackendSQLite:
		logger.Debug("opening database", "path", cfg.SQLitePath)
		gw, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return gw, gw.Close, nil

	case BackendFile:
		logger.Debug("opening slot directory", "dir", cfg.FileDir)
		gw, err := store.OpenFile(cfg.FileDir)
		if err != nil {
			return nil, nil, err
		}
		return gw, nop, nil

	case BackendRedis:
		logger.Debug("connecting to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		gw := store.NewRedisGateway(cfg.Redis)
		if err := gw.Ping(ctx); err != nil {
			_ = gw.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return gw, gw.Close, nil

	default:
		return nil, nil, fmt.Errorf("invalid backend %q", cfg.Backend)
	}
}

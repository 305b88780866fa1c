// Package config loads objgraph settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/matzehuels/objgraph/pkg/codec"
	"github.com/matzehuels/objgraph/pkg/serial"
)

// AppName names the configuration, cache and data directories.
const AppName = "objgraph"

// Store backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendNull   = "null"
)

// Config holds application configuration.
type Config struct {
	Log    LogConfig
	Store  StoreConfig
	Mongo  MongoConfig
	Codec  CodecConfig
	Serial SerialConfig

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
	// File enables a rotating log file in addition to stderr.
	File       string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
}

// StoreConfig holds snapshot store settings.
type StoreConfig struct {
	Backend       string
	Dir           string
	TTL           time.Duration
	Prefix        string
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

// MongoConfig holds document store settings. An empty URI disables the
// docs commands.
type MongoConfig struct {
	URI      string
	Database string
}

// CodecConfig holds encoding settings.
type CodecConfig struct {
	Default string
}

// SerialConfig holds marshaller settings.
type SerialConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// OBJGRAPH_ with dots replaced by underscores, e.g. OBJGRAPH_STORE_BACKEND.
//
// The file is path if given, else $OBJGRAPH_CONFIG, else config.toml in
// the user config directory. An explicitly named file must exist; the
// default one is optional.
func Load(path string) (Config, error) {
	v := viper.New()

	cacheDir := userDir("XDG_CACHE_HOME", ".cache")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.dir", filepath.Join(cacheDir, "store"))
	v.SetDefault("store.ttl", time.Duration(0))
	v.SetDefault("store.prefix", AppName+":")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.sqlite_path", filepath.Join(cacheDir, AppName+".db"))
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", AppName)
	v.SetDefault("codec.default", "json")
	v.SetDefault("serial.max_depth", serial.DefaultMaxDepth)

	v.SetConfigType("toml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv("OBJGRAPH_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(userDir("XDG_CONFIG_HOME", ".config"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("OBJGRAPH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case !explicit && errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.File = v.ConfigFileUsed()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that viper cannot type-check.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Store.Backend {
	case BackendFile, BackendRedis, BackendSQLite, BackendNull:
	default:
		return fmt.Errorf("store.backend: unknown backend %q (want file, redis, sqlite or null)", c.Store.Backend)
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("store.ttl: must not be negative")
	}
	if _, err := codec.Lookup(c.Codec.Default); err != nil {
		return fmt.Errorf("codec.default: %w", err)
	}
	if c.Serial.MaxDepth <= 0 {
		return fmt.Errorf("serial.max_depth: must be positive")
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// userDir returns $env/objgraph, or ~/fallback/objgraph when env is unset.
func userDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, fallback, AppName)
}

package config

import (
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" default:"./data/books.db"`
	Environment               string        `koanf:"environment" default:"development"`
	RateLimitBurst            int           `koanf:"rate_limit_burst" default:"20"`
	RateLimitPerSecond        float64       `koanf:"rate_limit_per_second"`
	ServerHost                string        `koanf:"server_host" default:"localhost"`
	ServerPort                int           `koanf:"server_port" default:"3001"`
	TrustProxy                bool          `koanf:"trust_proxy"`
}

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "./config.yaml"
)

// aliases maps the short environment variable names the service has always
// accepted onto config keys. The long names win when both are set.
var aliases = map[string]string{
	"DB_PATH":  "database_file_path",
	"HOST":     "server_host",
	"NODE_ENV": "environment",
	"PORT":     "server_port",
}

// New builds the config from defaults, then the YAML config file (if any),
// then environment variables.
func New() (*Config, error) {
	k := koanf.New(".")

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, errors.WithStack(err)
	}
	for name, key := range aliases {
		if v, ok := os.LookupEnv(name); ok && v != "" && os.Getenv(strings.ToUpper(key)) == "" {
			if err := k.Set(key, v); err != nil {
				return nil, errors.WithStack(err)
			}
		}
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config backed by an in-memory database.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.Environment = "test"
	cfg.ServerHost = "127.0.0.1"
	return cfg
}

func (cfg *Config) validate() error {
	if cfg.DatabaseFilePath == "" {
		return errors.New("missing required config: database_file_path (set DATABASE_FILE_PATH or DB_PATH)")
	}
	if cfg.ServerPort < 0 || cfg.ServerPort > 65535 {
		return errors.Errorf("invalid server_port %d", cfg.ServerPort)
	}
	return nil
}

// envValue maps SERVER_PORT to server_port. Empty variables are skipped so
// they don't clobber defaults.
func envValue(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	return strcase.ToSnake(key), value
}

// IsProduction reports whether the service runs with the production label.
func (cfg *Config) IsProduction() bool {
	return cfg.Environment == "production"
}

// IsTest reports whether test-only routes should be exposed.
func (cfg *Config) IsTest() bool {
	return cfg.Environment == "test"
}

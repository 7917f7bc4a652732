package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"clearance-server-go/db"
)

// Config is the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StorageConfig selects the backend and names the persisted records
type StorageConfig struct {
	Driver         string `mapstructure:"driver"` // redis or memory
	DepartmentsKey string `mapstructure:"departments_key"`
	StudentsKey    string `mapstructure:"students_key"`
	ChangesChannel string `mapstructure:"changes_channel"`
}

// Keys converts the storage names for the db package
func (s StorageConfig) Keys() db.Keys {
	return db.Keys{
		Departments: s.DepartmentsKey,
		Students:    s.StudentsKey,
		Changes:     s.ChangesChannel,
	}
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Options converts the connection settings for the db package
func (r RedisConfig) Options() db.RedisOptions {
	return db.RedisOptions{Addr: r.Addr, Password: r.Password, DB: r.DB}
}

// LogConfig logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Load reads configuration. Precedence: environment (CLEARANCE_*, after
// loading .env) > config file > defaults.
func Load(path string) (*Config, error) {
	// Missing .env is fine; existing variables are not overridden
	_ = godotenv.Load()

	v := viper.New()

	keys := db.DefaultKeys()
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("storage.driver", "redis")
	v.SetDefault("storage.departments_key", keys.Departments)
	v.SetDefault("storage.students_key", keys.Students)
	v.SetDefault("storage.changes_channel", keys.Changes)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLEARANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid config: server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	switch c.Storage.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid config: storage.driver must be redis or memory, got %q", c.Storage.Driver)
	}
	if c.Storage.DepartmentsKey == "" || c.Storage.StudentsKey == "" || c.Storage.ChangesChannel == "" {
		return errors.New("invalid config: storage keys cannot be empty")
	}
	if c.Storage.DepartmentsKey == c.Storage.StudentsKey {
		return errors.New("invalid config: storage.departments_key and storage.students_key must differ")
	}
	return nil
}

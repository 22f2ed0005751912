// Package config loads ficore settings from a TOML file and the environment.
//
// Environment variables override the file:
//
//	MONGO_URI            [mongo].uri
//	FICORE_DATABASE      [mongo].database
//	LOG_LEVEL            [log].level
//	PORT                 [http].port
//	ADMIN_USERNAME       [admin].username
//	ADMIN_EMAIL          [admin].email
//	ADMIN_PASSWORD       [admin].password
//	FICORE_AUDIT_TABLE   [audit].table (and selects the dynamodb sink)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ficoreafrica/ficore/store"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "ficore.toml"

// Audit sinks.
const (
	SinkMongo  = "mongo"
	SinkDynamo = "dynamodb"
	SinkNone   = "none"
)

// Config is the complete runtime configuration.
type Config struct {
	Mongo MongoConfig `toml:"mongo"`
	Log   LogConfig   `toml:"log"`
	HTTP  HTTPConfig  `toml:"http"`
	Admin AdminConfig `toml:"admin"`
	Audit AuditConfig `toml:"audit"`
}

// MongoConfig configures the database client.
type MongoConfig struct {
	URI                    string `toml:"uri"`
	Database               string `toml:"database"`
	MinPoolSize            uint64 `toml:"min_pool_size"`
	MaxPoolSize            uint64 `toml:"max_pool_size"`
	ServerSelectionTimeout string `toml:"server_selection_timeout"`
	UserCacheSize          int    `toml:"user_cache_size"`
}

// LogConfig selects the log level and format ("text" or "json").
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// HTTPConfig configures the ops endpoint.
type HTTPConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// AdminConfig is the account bootstrapped at startup. Nothing is created
// when Password is empty.
type AdminConfig struct {
	Username string `toml:"username"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// AuditConfig selects where tool usage goes.
type AuditConfig struct {
	Sink    string `toml:"sink"`
	Table   string `toml:"table"`
	Shards  int    `toml:"shards"`
	TTL     string `toml:"ttl"`
	Timeout string `toml:"timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	sc := store.DefaultConfig()
	return Config{
		Mongo: MongoConfig{
			URI:                    sc.URI,
			Database:               sc.Database,
			MinPoolSize:            sc.MinPoolSize,
			MaxPoolSize:            sc.MaxPoolSize,
			ServerSelectionTimeout: sc.ServerSelectionTimeout.String(),
			UserCacheSize:          sc.UserCacheSize,
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		HTTP:  HTTPConfig{Host: "0.0.0.0", Port: 8080, Metrics: true},
		Admin: AdminConfig{Username: "admin", Email: "admin@ficore.local"},
		Audit: AuditConfig{Sink: SinkMongo, Table: "ficore_tool_usage", Shards: 1, TTL: "2160h", Timeout: "2s"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing DefaultPath is not an error.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		path = DefaultPath
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if !(errors.Is(err, fs.ErrNotExist) && path == DefaultPath) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("MONGO_URI", &c.Mongo.URI)
	str("FICORE_DATABASE", &c.Mongo.Database)
	str("LOG_LEVEL", &c.Log.Level)
	str("ADMIN_USERNAME", &c.Admin.Username)
	str("ADMIN_EMAIL", &c.Admin.Email)
	str("ADMIN_PASSWORD", &c.Admin.Password)
	if v, ok := lookup("FICORE_AUDIT_TABLE"); ok && v != "" {
		c.Audit.Table = v
		c.Audit.Sink = SinkDynamo
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.HTTP.Port = port
	}
	c.Admin.Username = strings.ToLower(c.Admin.Username)
	return nil
}

// Validate checks enumerations and durations.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	switch c.Audit.Sink {
	case SinkMongo, SinkNone:
	case SinkDynamo:
		if c.Audit.Table == "" {
			errs = append(errs, errors.New("audit.table: required for the dynamodb sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.sink: unknown sink %q", c.Audit.Sink))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port: %d out of range", c.HTTP.Port))
	}
	for name, v := range map[string]string{
		"mongo.server_selection_timeout": c.Mongo.ServerSelectionTimeout,
		"audit.ttl":                      c.Audit.TTL,
		"audit.timeout":                  c.Audit.Timeout,
	} {
		if _, err := duration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Store returns the repository configuration.
func (c Config) Store() store.Config {
	timeout, _ := duration(c.Mongo.ServerSelectionTimeout)
	return store.Config{
		URI:                    c.Mongo.URI,
		Database:               c.Mongo.Database,
		MinPoolSize:            c.Mongo.MinPoolSize,
		MaxPoolSize:            c.Mongo.MaxPoolSize,
		ServerSelectionTimeout: timeout,
		UserCacheSize:          c.Mongo.UserCacheSize,
	}
}

// Addr is the ops HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// AuditTTL is how long DynamoDB keeps audit entries.
func (c Config) AuditTTL() time.Duration {
	d, _ := duration(c.Audit.TTL)
	return d
}

// AuditTimeout bounds a single audit write.
func (c Config) AuditTimeout() time.Duration {
	d, _ := duration(c.Audit.Timeout)
	return d
}

// duration parses s; empty means zero, which consumers replace with their
// own default.
func duration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

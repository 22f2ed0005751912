package store

import (
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds configuration for the Store.
type Config struct {
	// URI is the MongoDB connection string.
	// Default: "mongodb://localhost:27017"
	URI string

	// Database is the database holding every collection.
	// Default: "ficodb"
	Database string

	// MinPoolSize and MaxPoolSize bound the connection pool.
	// Default: 5 and 50
	MinPoolSize uint64
	MaxPoolSize uint64

	// ServerSelectionTimeout bounds how long an operation waits for a
	// reachable server before failing with ErrUnavailable.
	// Default: 5s
	ServerSelectionTimeout time.Duration

	// UserCacheSize is the number of user lookups kept in memory.
	// Default: 128
	UserCacheSize int
}

// DefaultConfig returns the settings the web application runs with.
func DefaultConfig() Config {
	return Config{
		URI:                    "mongodb://localhost:27017",
		Database:               "ficodb",
		MinPoolSize:            5,
		MaxPoolSize:            50,
		ServerSelectionTimeout: 5 * time.Second,
		UserCacheSize:          128,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.URI == "" {
		c.URI = "mongodb://localhost:27017"
	}
	if c.Database == "" {
		c.Database = "ficodb"
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 50
	}
	if c.MinPoolSize > c.MaxPoolSize {
		c.MinPoolSize = c.MaxPoolSize
	}
	if c.ServerSelectionTimeout <= 0 {
		c.ServerSelectionTimeout = 5 * time.Second
	}
	if c.UserCacheSize < 1 {
		c.UserCacheSize = 128
	}
}

// ClientOptions returns driver options for c.
func (c Config) ClientOptions() *options.ClientOptions {
	c.validate()
	return options.Client().
		ApplyURI(c.URI).
		SetMinPoolSize(c.MinPoolSize).
		SetMaxPoolSize(c.MaxPoolSize).
		SetServerSelectionTimeout(c.ServerSelectionTimeout)
}

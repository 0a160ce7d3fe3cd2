package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"linklander/backend/internal/graph"
	"linklander/backend/internal/search"
	apperrors "linklander/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Storage
	StoreBackend string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// SQLite
	SQLitePath string

	// UniqueLinkNames installs a uniqueness constraint on Link.name
	UniqueLinkNames bool

	// Search
	SearchProvider string

	// Title resolution for links added without a title
	FetchTitles       bool
	TitleFetchTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		StoreBackend:      getEnv("STORE_BACKEND", graph.BackendSQLite),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:     getEnv("NEO4J_DATABASE", "neo4j"),
		SQLitePath:        getEnv("SQLITE_PATH", "linklander.db"),
		UniqueLinkNames:   getEnvBool("UNIQUE_LINK_NAMES", false),
		SearchProvider:    getEnv("SEARCH_PROVIDER", search.KindAdvanced),
		FetchTitles:       getEnvBool("FETCH_TITLES", false),
		TitleFetchTimeout: time.Duration(getEnvInt("TITLE_FETCH_TIMEOUT_MS", 3000)) * time.Millisecond,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case graph.BackendNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigValidationFailed("NEO4J_URI", "is required for the neo4j backend")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigValidationFailed("NEO4J_USER", "is required for the neo4j backend")
		}
	case graph.BackendSQLite:
		if c.SQLitePath == "" {
			return apperrors.NewConfigValidationFailed("SQLITE_PATH", "is required for the sqlite backend")
		}
	default:
		return apperrors.NewConfigValidationFailed("STORE_BACKEND", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}
	switch c.SearchProvider {
	case search.KindAdvanced, search.KindDefault:
	default:
		return apperrors.NewConfigValidationFailed("SEARCH_PROVIDER", fmt.Sprintf("unknown provider %q", c.SearchProvider))
	}
	if c.TitleFetchTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("TITLE_FETCH_TIMEOUT_MS", "must be positive")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}

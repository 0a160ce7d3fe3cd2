package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by Open
const (
	BackendNeo4j  = "neo4j"
	BackendSQLite = "sqlite"
)

// OpenConfig selects and configures a backend
type OpenConfig struct {
	Backend    string
	Neo4j      Neo4jConfig
	SQLitePath string
}

// Open connects to the configured backend
func Open(ctx context.Context, cfg OpenConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendNeo4j:
		logger.Info("Opening Neo4j store", zap.String("uri", cfg.Neo4j.URI), zap.String("database", cfg.Neo4j.Database))
		return NewNeo4j(ctx, cfg.Neo4j, logger)
	case BackendSQLite:
		logger.Info("Opening SQLite store", zap.String("path", cfg.SQLitePath))
		return NewSQLite(ctx, cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

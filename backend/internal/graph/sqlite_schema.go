package graph

import (
	"fmt"
	"strings"
)

// SQLite schema DDL constants

const schemaNodes = `
CREATE TABLE IF NOT EXISTS nodes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    label TEXT NOT NULL
)`

// properties keeps one row per (node, key); kind records the canonical scalar type of value
const schemaProperties = `
CREATE TABLE IF NOT EXISTS properties (
    node_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    key TEXT NOT NULL,
    kind TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (node_id, key)
)`

const schemaEdges = `
CREATE TABLE IF NOT EXISTS edges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    to_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    kind TEXT NOT NULL
)`

// Index definitions
const indexNodesLabel = `CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label)`
const indexPropertiesLookup = `CREATE INDEX IF NOT EXISTS idx_properties_lookup ON properties(label, key, value)`
const indexEdgesFrom = `CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id, kind)`
const indexEdgesTo = `CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, kind)`

// SQLite pragmas
const pragmaWAL = `PRAGMA journal_mode=WAL`
const pragmaFK = `PRAGMA foreign_keys=ON`
const pragmaBusyTimeout = `PRAGMA busy_timeout=5000`
const pragmaSynchronous = `PRAGMA synchronous=NORMAL`

// allSchemaStatements returns all schema DDL in order
func allSchemaStatements() []string {
	return []string{
		schemaNodes,
		schemaProperties,
		schemaEdges,
		indexNodesLabel,
		indexPropertiesLookup,
		indexEdgesFrom,
		indexEdgesTo,
	}
}

// allPragmas returns all pragma statements
func allPragmas() []string {
	return []string{
		pragmaWAL,
		pragmaFK,
		pragmaBusyTimeout,
		pragmaSynchronous,
	}
}

func uniqueIndexName(ref PropertyRef) string {
	return fmt.Sprintf("uq_%s_%s", strings.ToLower(ref.Label), strings.ToLower(ref.Key))
}

// uniqueIndexStatement builds a partial unique index for one label/key pair.
// Label and key are checked identifiers, so they can appear as literals.
func uniqueIndexStatement(ref PropertyRef) string {
	return fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON properties(value) WHERE label = '%s' AND key = '%s'`,
		uniqueIndexName(ref), ref.Label, ref.Key,
	)
}

func dropUniqueIndexStatement(ref PropertyRef) string {
	return `DROP INDEX IF EXISTS ` + uniqueIndexName(ref)
}

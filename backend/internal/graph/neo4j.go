package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const constraintValidationFailed = "Neo.ClientError.Schema.ConstraintValidationFailed"

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore implements Store on a Neo4j server
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewNeo4j connects to Neo4j and verifies connectivity
func NewNeo4j(ctx context.Context, cfg Neo4jConfig, logger *zap.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	return NewNeo4jWithDriver(driver, cfg.Database, logger), nil
}

// NewNeo4jWithDriver wraps an existing driver; the store takes ownership of it
func NewNeo4jWithDriver(driver neo4j.DriverWithContext, database string, logger *zap.Logger) *Neo4jStore {
	return &Neo4jStore{driver: driver, database: database, logger: logger}
}

// Close closes the Neo4j driver connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema drops relaxed constraints, then creates uniqueness constraints and range indexes.
// Schema commands cannot share a transaction with data writes, so they run auto-commit.
func (s *Neo4jStore) EnsureSchema(ctx context.Context, schema Schema) error {
	if err := schema.validate(); err != nil {
		return err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)

	var statements []string
	for _, ref := range schema.Relaxed {
		statements = append(statements, fmt.Sprintf(
			"DROP CONSTRAINT %s_%s_unique IF EXISTS",
			strings.ToLower(ref.Label), strings.ToLower(ref.Key),
		))
	}
	for _, ref := range schema.Unique {
		statements = append(statements, fmt.Sprintf(
			"CREATE CONSTRAINT %s_%s_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			strings.ToLower(ref.Label), strings.ToLower(ref.Key), ref.Label, ref.Key,
		))
	}
	for _, ref := range schema.Indexed {
		statements = append(statements, fmt.Sprintf(
			"CREATE INDEX %s_%s_idx IF NOT EXISTS FOR (n:%s) ON (n.%s)",
			strings.ToLower(ref.Label), strings.ToLower(ref.Key), ref.Label, ref.Key,
		))
	}

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("applying schema %q: %w", stmt, translateNeo4jError(err))
		}
		s.logger.Debug("Schema statement applied", zap.String("statement", stmt))
	}
	return nil
}

// Read runs fn in a read transaction
func (s *Neo4jStore) Read(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, neo4j.AccessModeRead, fn)
}

// Write runs fn in a write transaction committed only when fn succeeds
func (s *Neo4jStore) Write(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, neo4j.AccessModeWrite, fn)
}

// run uses an explicit transaction so that a failure surfaces once;
// the managed ExecuteRead/ExecuteWrite helpers would retry transient errors.
func (s *Neo4jStore) run(ctx context.Context, mode neo4j.AccessMode, fn func(tx Tx) error) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
	defer session.Close(ctx)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// Close rolls back unless Commit already succeeded
	defer tx.Close(ctx)

	if err := fn(&neo4jTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", translateNeo4jError(err))
	}
	return nil
}

// ============================================================================
// Transaction
// ============================================================================

type neo4jTx struct {
	tx neo4j.ExplicitTransaction
}

func (t *neo4jTx) CreateNode(ctx context.Context, label string, props Properties) (NodeHandle, error) {
	if err := checkIdentifier("label", label); err != nil {
		return NodeHandle{}, err
	}
	normalized, err := props.Normalized()
	if err != nil {
		return NodeHandle{}, err
	}

	query := fmt.Sprintf(`CREATE (n:%s) SET n = $props RETURN elementId(n) AS id`, label)
	record, err := t.single(ctx, query, map[string]any{"props": map[string]any(normalized)})
	if err != nil {
		return NodeHandle{}, fmt.Errorf("creating %s node: %w", label, err)
	}
	return NodeHandle{ID: recordString(record, "id"), Label: label}, nil
}

func (t *neo4jTx) SetProperty(ctx context.Context, node NodeHandle, key string, value any) error {
	if err := checkIdentifier("property", key); err != nil {
		return err
	}
	normalized, err := Normalize(value)
	if err != nil {
		return err
	}

	query := `
		MATCH (n) WHERE elementId(n) = $id
		SET n += $props
		RETURN count(n) AS updated
	`
	record, err := t.single(ctx, query, map[string]any{
		"id":    node.ID,
		"props": map[string]any{key: normalized},
	})
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if recordInt(record, "updated") == 0 {
		return ErrNodeNotFound
	}
	return nil
}

func (t *neo4jTx) GetProperty(ctx context.Context, node NodeHandle, key string) (any, error) {
	props, err := t.Properties(ctx, node)
	if err != nil {
		return nil, err
	}
	return props[key], nil
}

func (t *neo4jTx) Properties(ctx context.Context, node NodeHandle) (Properties, error) {
	result, err := t.tx.Run(ctx, `MATCH (n) WHERE elementId(n) = $id RETURN properties(n) AS props`, map[string]any{"id": node.ID})
	if err != nil {
		return nil, translateNeo4jError(err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, translateNeo4jError(err)
		}
		return nil, ErrNodeNotFound
	}
	raw, _ := result.Record().Get("props")
	props, _ := raw.(map[string]any)
	return Properties(props), nil
}

func (t *neo4jTx) Match(ctx context.Context, pattern Pattern) ([]Row, error) {
	if err := pattern.validate(); err != nil {
		return nil, err
	}
	query, params := buildCypherMatch(pattern)

	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", pattern.Label, translateNeo4jError(err))
	}

	var rows []Row
	for result.Next(ctx) {
		record := result.Record()
		row := Row{Node: NodeHandle{ID: recordString(record, "node"), Label: pattern.Label}}
		if pattern.Traverse != nil {
			row.Related = NodeHandle{ID: recordString(record, "related"), Label: pattern.Traverse.Label}
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, translateNeo4jError(err)
	}
	return rows, nil
}

func (t *neo4jTx) CreateEdge(ctx context.Context, from, to NodeHandle, kind string) error {
	if err := checkIdentifier("edge", kind); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		MATCH (a) WHERE elementId(a) = $from
		MATCH (b) WHERE elementId(b) = $to
		CREATE (a)-[:%s]->(b)
		RETURN count(*) AS created
	`, kind)
	record, err := t.single(ctx, query, map[string]any{"from": from.ID, "to": to.ID})
	if err != nil {
		return fmt.Errorf("creating %s edge: %w", kind, err)
	}
	if recordInt(record, "created") == 0 {
		return ErrNodeNotFound
	}
	return nil
}

func (t *neo4jTx) DeleteEdges(ctx context.Context, from, to NodeHandle, kind string) (int, error) {
	if err := checkIdentifier("edge", kind); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		OPTIONAL MATCH (a)-[r:%s]->(b)
		WHERE elementId(a) = $from AND elementId(b) = $to
		WITH collect(r) AS rels
		FOREACH (rel IN rels | DELETE rel)
		RETURN size(rels) AS deleted
	`, kind)
	record, err := t.single(ctx, query, map[string]any{"from": from.ID, "to": to.ID})
	if err != nil {
		return 0, fmt.Errorf("deleting %s edges: %w", kind, err)
	}
	return int(recordInt(record, "deleted")), nil
}

func (t *neo4jTx) DeleteNode(ctx context.Context, node NodeHandle) error {
	query := `
		MATCH (n) WHERE elementId(n) = $id
		DETACH DELETE n
		RETURN count(*) AS deleted
	`
	record, err := t.single(ctx, query, map[string]any{"id": node.ID})
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	if recordInt(record, "deleted") == 0 {
		return ErrNodeNotFound
	}
	return nil
}

func (t *neo4jTx) single(ctx context.Context, query string, params map[string]any) (*neo4j.Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, translateNeo4jError(err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return nil, translateNeo4jError(err)
	}
	return record, nil
}

// ============================================================================
// Query building
// ============================================================================

// buildCypherMatch renders a validated pattern. Labels, edge kinds and property
// keys are checked identifiers and are rendered inline so Neo4j can use its
// property indexes; values travel as parameters.
func buildCypherMatch(p Pattern) (string, map[string]any) {
	var sb strings.Builder
	params := map[string]any{}
	var where []string

	fmt.Fprintf(&sb, "MATCH (n:%s)", p.Label)
	if t := p.Traverse; t != nil {
		if t.Direction == Outgoing {
			fmt.Fprintf(&sb, "-[r:%s]->(m:%s)", t.Edge, t.Label)
		} else {
			fmt.Fprintf(&sb, "<-[r:%s]-(m:%s)", t.Edge, t.Label)
		}
	}

	if p.Anchor != "" {
		where = append(where, "elementId(n) = $anchor")
		params["anchor"] = p.Anchor
	}
	if p.Where != nil {
		where = append(where, cypherPredicate("n", p.Where.Key, "nValue", p.Where.Mode))
		params["nValue"] = p.Where.Value
	}
	if t := p.Traverse; t != nil && t.Where != nil {
		where = append(where, cypherPredicate("m", t.Where.Key, "mValue", t.Where.Mode))
		params["mValue"] = t.Where.Value
	}

	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	if p.Traverse != nil {
		sb.WriteString(" RETURN elementId(n) AS node, elementId(m) AS related")
	} else {
		sb.WriteString(" RETURN elementId(n) AS node")
	}
	return sb.String(), params
}

func cypherPredicate(alias, key, valueParam string, mode MatchMode) string {
	if mode == Contains {
		return fmt.Sprintf("toLower(toString(%s.%s)) CONTAINS toLower($%s)", alias, key, valueParam)
	}
	return fmt.Sprintf("%s.%s = $%s", alias, key, valueParam)
}

func recordString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func recordInt(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	return 0
}

func translateNeo4jError(err error) error {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && neoErr.Code == constraintValidationFailed {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}

package graph

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"modernc.org/sqlite"
)

// foldFunc names the SQL function used for case-insensitive matching.
// SQLite's built-in lower() folds ASCII only.
const foldFunc = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, foldValue)
}

func foldValue(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return strings.ToLower(fmt.Sprint(v)), nil
	}
}

// SQLiteStore implements Store on a relational schema:
// nodes, a key/value properties table and an edges junction table.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLite opens (or creates) the database at dbPath and applies the base schema
func NewSQLite(ctx context.Context, dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	for _, pragma := range allPragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	for _, stmt := range allSchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the SQLite connection
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// EnsureSchema drops relaxed unique indexes and installs a partial unique index per constraint.
// Indexed properties are already covered by idx_properties_lookup.
func (s *SQLiteStore) EnsureSchema(ctx context.Context, schema Schema) error {
	if err := schema.validate(); err != nil {
		return err
	}
	for _, ref := range schema.Relaxed {
		if _, err := s.db.ExecContext(ctx, dropUniqueIndexStatement(ref)); err != nil {
			return fmt.Errorf("dropping unique index on %s.%s: %w", ref.Label, ref.Key, err)
		}
	}
	for _, ref := range schema.Unique {
		if _, err := s.db.ExecContext(ctx, uniqueIndexStatement(ref)); err != nil {
			return fmt.Errorf("creating unique index on %s.%s: %w", ref.Label, ref.Key, translateSQLiteError(err))
		}
		s.logger.Debug("Unique constraint ensured",
			zap.String("label", ref.Label),
			zap.String("key", ref.Key),
		)
	}
	return nil
}

// Read runs fn in a transaction that is always rolled back
func (s *SQLiteStore) Read(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{tx: tx})
}

// Write runs fn in a transaction committed only when fn succeeds
func (s *SQLiteStore) Write(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning write transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", translateSQLiteError(err))
	}
	return nil
}

// ============================================================================
// Transaction
// ============================================================================

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) CreateNode(ctx context.Context, label string, props Properties) (NodeHandle, error) {
	if err := checkIdentifier("label", label); err != nil {
		return NodeHandle{}, err
	}
	normalized, err := props.Normalized()
	if err != nil {
		return NodeHandle{}, err
	}

	res, err := t.tx.ExecContext(ctx, `INSERT INTO nodes (label) VALUES (?)`, label)
	if err != nil {
		return NodeHandle{}, fmt.Errorf("inserting node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return NodeHandle{}, err
	}

	node := NodeHandle{ID: strconv.FormatInt(id, 10), Label: label}
	for key, value := range normalized {
		if err := t.upsertProperty(ctx, id, label, key, value); err != nil {
			return NodeHandle{}, err
		}
	}
	return node, nil
}

func (t *sqliteTx) SetProperty(ctx context.Context, node NodeHandle, key string, value any) error {
	if err := checkIdentifier("property", key); err != nil {
		return err
	}
	normalized, err := Normalize(value)
	if err != nil {
		return err
	}
	id, label, err := t.resolve(ctx, node)
	if err != nil {
		return err
	}
	return t.upsertProperty(ctx, id, label, key, normalized)
}

func (t *sqliteTx) GetProperty(ctx context.Context, node NodeHandle, key string) (any, error) {
	id, _, err := t.resolve(ctx, node)
	if err != nil {
		return nil, err
	}

	var kind, raw string
	err = t.tx.QueryRowContext(ctx,
		`SELECT kind, value FROM properties WHERE node_id = ? AND key = ?`, id, key,
	).Scan(&kind, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeScalar(kind, raw)
}

func (t *sqliteTx) Properties(ctx context.Context, node NodeHandle) (Properties, error) {
	id, _, err := t.resolve(ctx, node)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.QueryContext(ctx, `SELECT key, kind, value FROM properties WHERE node_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	props := Properties{}
	for rows.Next() {
		var key, kind, raw string
		if err := rows.Scan(&key, &kind, &raw); err != nil {
			return nil, err
		}
		value, err := decodeScalar(kind, raw)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", key, err)
		}
		props[key] = value
	}
	return props, rows.Err()
}

func (t *sqliteTx) Match(ctx context.Context, pattern Pattern) ([]Row, error) {
	if err := pattern.validate(); err != nil {
		return nil, err
	}
	query, args := buildSQLiteMatch(pattern)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", pattern.Label, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var nodeID int64
		var relatedID sql.NullInt64
		if err := rows.Scan(&nodeID, &relatedID); err != nil {
			return nil, err
		}
		row := Row{Node: NodeHandle{ID: strconv.FormatInt(nodeID, 10), Label: pattern.Label}}
		if relatedID.Valid {
			row.Related = NodeHandle{ID: strconv.FormatInt(relatedID.Int64, 10), Label: pattern.Traverse.Label}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (t *sqliteTx) CreateEdge(ctx context.Context, from, to NodeHandle, kind string) error {
	if err := checkIdentifier("edge", kind); err != nil {
		return err
	}
	fromID, _, err := t.resolve(ctx, from)
	if err != nil {
		return err
	}
	toID, _, err := t.resolve(ctx, to)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx, `INSERT INTO edges (from_id, to_id, kind) VALUES (?, ?, ?)`, fromID, toID, kind)
	if err != nil {
		return fmt.Errorf("inserting edge: %w", translateSQLiteError(err))
	}
	return nil
}

func (t *sqliteTx) DeleteEdges(ctx context.Context, from, to NodeHandle, kind string) (int, error) {
	fromID, err := parseNodeID(from)
	if err != nil {
		return 0, err
	}
	toID, err := parseNodeID(to)
	if err != nil {
		return 0, err
	}

	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM edges WHERE from_id = ? AND to_id = ? AND kind = ?`, fromID, toID, kind)
	if err != nil {
		return 0, fmt.Errorf("deleting edges: %w", err)
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

// DeleteNode detaches the node from every edge, then removes it and its properties
func (t *sqliteTx) DeleteNode(ctx context.Context, node NodeHandle) error {
	id, _, err := t.resolve(ctx, node)
	if err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
		return fmt.Errorf("detaching node: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM properties WHERE node_id = ?`, id); err != nil {
		return fmt.Errorf("deleting properties: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	return nil
}

func (t *sqliteTx) resolve(ctx context.Context, node NodeHandle) (int64, string, error) {
	id, err := parseNodeID(node)
	if err != nil {
		return 0, "", err
	}
	var label string
	err = t.tx.QueryRowContext(ctx, `SELECT label FROM nodes WHERE id = ?`, id).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNodeNotFound
	}
	if err != nil {
		return 0, "", err
	}
	return id, label, nil
}

func (t *sqliteTx) upsertProperty(ctx context.Context, id int64, label, key string, value any) error {
	kind, raw := encodeScalar(value)
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO properties (node_id, label, key, kind, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(node_id, key) DO UPDATE SET kind = excluded.kind, value = excluded.value
	`, id, label, key, kind, raw)
	if err != nil {
		return fmt.Errorf("writing property %s: %w", key, translateSQLiteError(err))
	}
	return nil
}

// ============================================================================
// Query building and encoding
// ============================================================================

// buildSQLiteMatch renders a validated pattern. Only fixed SQL fragments and
// checked identifiers are concatenated; every value is a bound argument.
func buildSQLiteMatch(p Pattern) (string, []any) {
	var sb strings.Builder
	var args []any
	var where []string

	sb.WriteString(`SELECT n.id, `)
	if p.Traverse != nil {
		sb.WriteString(`m.id`)
	} else {
		sb.WriteString(`NULL`)
	}
	sb.WriteString(` FROM nodes n`)

	if p.Where != nil {
		sb.WriteString(` JOIN properties p ON p.node_id = n.id AND p.key = ?`)
		args = append(args, p.Where.Key)
	}

	if t := p.Traverse; t != nil {
		if t.Direction == Outgoing {
			sb.WriteString(` JOIN edges e ON e.from_id = n.id AND e.kind = ? JOIN nodes m ON m.id = e.to_id AND m.label = ?`)
		} else {
			sb.WriteString(` JOIN edges e ON e.to_id = n.id AND e.kind = ? JOIN nodes m ON m.id = e.from_id AND m.label = ?`)
		}
		args = append(args, t.Edge, t.Label)
		if t.Where != nil {
			sb.WriteString(` JOIN properties q ON q.node_id = m.id AND q.key = ?`)
			args = append(args, t.Where.Key)
		}
	}

	where = append(where, `n.label = ?`)
	args = append(args, p.Label)
	if p.Anchor != "" {
		anchor, err := strconv.ParseInt(p.Anchor, 10, 64)
		if err != nil {
			anchor = -1
		}
		where = append(where, `n.id = ?`)
		args = append(args, anchor)
	}
	if p.Where != nil {
		where = append(where, sqlitePredicate("p", p.Where.Mode))
		args = append(args, p.Where.Value)
	}
	if t := p.Traverse; t != nil && t.Where != nil {
		where = append(where, sqlitePredicate("q", t.Where.Mode))
		args = append(args, t.Where.Value)
	}

	sb.WriteString(` WHERE `)
	sb.WriteString(strings.Join(where, ` AND `))
	if p.Traverse != nil {
		sb.WriteString(` ORDER BY n.id, e.id`)
	} else {
		sb.WriteString(` ORDER BY n.id`)
	}
	return sb.String(), args
}

func sqlitePredicate(alias string, mode MatchMode) string {
	if mode == Contains {
		return `instr(` + foldFunc + `(` + alias + `.value), ` + foldFunc + `(?)) > 0`
	}
	return alias + `.value = ?`
}

func encodeScalar(value any) (kind, raw string) {
	switch v := value.(type) {
	case int64:
		return "int", strconv.FormatInt(v, 10)
	case float64:
		return "float", strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return "bool", strconv.FormatBool(v)
	default:
		return "string", fmt.Sprint(v)
	}
}

func decodeScalar(kind, raw string) (any, error) {
	switch kind {
	case "int":
		return strconv.ParseInt(raw, 10, 64)
	case "float":
		return strconv.ParseFloat(raw, 64)
	case "bool":
		return strconv.ParseBool(raw)
	case "string":
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown property kind %q", kind)
	}
}

func parseNodeID(node NodeHandle) (int64, error) {
	id, err := strconv.ParseInt(node.ID, 10, 64)
	if err != nil {
		return 0, ErrNodeNotFound
	}
	return id, nil
}

func translateSQLiteError(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}

package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ============================================================================
// Store contracts
// ============================================================================

// Store is a transactional labeled-property graph.
// All reads and writes happen inside the function passed to Read or Write;
// the transaction is committed when fn returns nil and rolled back otherwise,
// including when fn panics.
type Store interface {
	EnsureSchema(ctx context.Context, schema Schema) error
	Read(ctx context.Context, fn func(tx Tx) error) error
	Write(ctx context.Context, fn func(tx Tx) error) error
	Close(ctx context.Context) error
}

// Tx is the set of graph operations valid inside one transaction scope.
// Handles returned by a Tx must not be used after the scope ends.
type Tx interface {
	CreateNode(ctx context.Context, label string, props Properties) (NodeHandle, error)
	SetProperty(ctx context.Context, node NodeHandle, key string, value any) error
	GetProperty(ctx context.Context, node NodeHandle, key string) (any, error)
	Properties(ctx context.Context, node NodeHandle) (Properties, error)
	Match(ctx context.Context, pattern Pattern) ([]Row, error)
	CreateEdge(ctx context.Context, from, to NodeHandle, kind string) error
	DeleteEdges(ctx context.Context, from, to NodeHandle, kind string) (int, error)
	DeleteNode(ctx context.Context, node NodeHandle) error
}

// NodeHandle identifies a node for the lifetime of one transaction
type NodeHandle struct {
	ID    string
	Label string
}

// IsZero reports whether h refers to no node
func (h NodeHandle) IsZero() bool {
	return h.ID == ""
}

// ============================================================================
// Schema
// ============================================================================

// PropertyRef names one property of one label
type PropertyRef struct {
	Label string
	Key   string
}

// Schema lists the constraints and indexes a store must provide
type Schema struct {
	Unique  []PropertyRef
	Indexed []PropertyRef
	// Relaxed lists uniqueness constraints to drop when a previous run installed them
	Relaxed []PropertyRef
}

func (s Schema) validate() error {
	refs := append(append(append([]PropertyRef{}, s.Unique...), s.Indexed...), s.Relaxed...)
	for _, ref := range refs {
		if err := checkIdentifier("label", ref.Label); err != nil {
			return err
		}
		if err := checkIdentifier("property", ref.Key); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Pattern matching
// ============================================================================

// MatchMode selects how a Predicate compares a property to its value
type MatchMode int

const (
	// Exact requires the stored string to equal Value
	Exact MatchMode = iota + 1
	// Contains requires the stored string to contain Value, ignoring case
	Contains
)

// Direction of a traversal relative to the matched node
type Direction int

const (
	Outgoing Direction = iota + 1
	Incoming
)

// Predicate filters nodes on one property
type Predicate struct {
	Key   string
	Value string
	Mode  MatchMode
}

// Traversal extends a match across one edge to a node with Label
type Traversal struct {
	Edge      string
	Direction Direction
	Label     string
	Where     *Predicate
}

// Pattern describes "nodes labeled Label [with id Anchor] [whose property matches Where]
// [connected through Traverse to related nodes]".
// Values are always bound as parameters; labels, edge kinds and keys must be identifiers.
type Pattern struct {
	Label    string
	Anchor   string
	Where    *Predicate
	Traverse *Traversal
}

// Row is one match; Related is zero unless the pattern traverses
type Row struct {
	Node    NodeHandle
	Related NodeHandle
}

func (p Pattern) validate() error {
	if err := checkIdentifier("label", p.Label); err != nil {
		return err
	}
	if err := p.Where.validate(); err != nil {
		return err
	}
	if t := p.Traverse; t != nil {
		if err := checkIdentifier("edge", t.Edge); err != nil {
			return err
		}
		if err := checkIdentifier("label", t.Label); err != nil {
			return err
		}
		if t.Direction != Outgoing && t.Direction != Incoming {
			return fmt.Errorf("%w: traversal direction %d", ErrInvalidPattern, t.Direction)
		}
		if err := t.Where.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Predicate) validate() error {
	if p == nil {
		return nil
	}
	if err := checkIdentifier("property", p.Key); err != nil {
		return err
	}
	if p.Mode != Exact && p.Mode != Contains {
		return fmt.Errorf("%w: match mode %d", ErrInvalidPattern, p.Mode)
	}
	return nil
}

// ============================================================================
// Errors
// ============================================================================

var (
	// ErrNodeNotFound is returned when a handle no longer resolves to a node
	ErrNodeNotFound = errors.New("graph: node not found")
	// ErrConstraint is returned when a write violates a uniqueness constraint
	ErrConstraint = errors.New("graph: constraint violation")
	// ErrInvalidPattern is returned for labels, keys or edges that are not plain identifiers
	ErrInvalidPattern = errors.New("graph: invalid pattern")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %s %q is not an identifier", ErrInvalidPattern, kind, name)
	}
	return nil
}

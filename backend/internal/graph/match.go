package graph

import "context"

// ============================================================================
// Pattern helpers
// ============================================================================

// FindExact returns the nodes labeled label whose key equals value
func FindExact(ctx context.Context, tx Tx, label, key, value string) ([]NodeHandle, error) {
	return nodesOf(tx.Match(ctx, Pattern{
		Label: label,
		Where: &Predicate{Key: key, Value: value, Mode: Exact},
	}))
}

// FindContains returns the nodes labeled label whose key contains substring, ignoring case
func FindContains(ctx context.Context, tx Tx, label, key, substring string) ([]NodeHandle, error) {
	return nodesOf(tx.Match(ctx, Pattern{
		Label: label,
		Where: &Predicate{Key: key, Value: substring, Mode: Contains},
	}))
}

// FindOne returns the first node labeled label whose key equals value, or ErrNodeNotFound
func FindOne(ctx context.Context, tx Tx, label, key, value string) (NodeHandle, error) {
	nodes, err := FindExact(ctx, tx, label, key, value)
	if err != nil {
		return NodeHandle{}, err
	}
	if len(nodes) == 0 {
		return NodeHandle{}, ErrNodeNotFound
	}
	return nodes[0], nil
}

// AllNodes returns every node labeled label
func AllNodes(ctx context.Context, tx Tx, label string) ([]NodeHandle, error) {
	return nodesOf(tx.Match(ctx, Pattern{Label: label}))
}

// Neighbors returns the nodes labeled label reachable from node across one edge of kind
func Neighbors(ctx context.Context, tx Tx, node NodeHandle, kind string, dir Direction, label string) ([]NodeHandle, error) {
	rows, err := tx.Match(ctx, Pattern{
		Label:    node.Label,
		Anchor:   node.ID,
		Traverse: &Traversal{Edge: kind, Direction: dir, Label: label},
	})
	if err != nil {
		return nil, err
	}
	related := make([]NodeHandle, 0, len(rows))
	for _, row := range rows {
		related = append(related, row.Related)
	}
	return related, nil
}

// EdgeExists reports whether at least one edge of kind runs from -> to
func EdgeExists(ctx context.Context, tx Tx, from, to NodeHandle, kind string) (bool, error) {
	related, err := Neighbors(ctx, tx, from, kind, Outgoing, to.Label)
	if err != nil {
		return false, err
	}
	for _, n := range related {
		if n.ID == to.ID {
			return true, nil
		}
	}
	return false, nil
}

func nodesOf(rows []Row, err error) ([]NodeHandle, error) {
	if err != nil {
		return nil, err
	}
	nodes := make([]NodeHandle, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, row.Node)
	}
	return nodes, nil
}

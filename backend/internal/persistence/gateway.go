package persistence

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"linklander/backend/internal/constants"
	"linklander/backend/internal/entity"
	"linklander/backend/internal/graph"
	apperrors "linklander/backend/pkg/errors"
)

// Options configures optional store constraints
type Options struct {
	// EnforceUniqueLinkNames installs a uniqueness constraint on Link.name
	EnforceUniqueLinkNames bool
}

// Gateway is the caller-facing API over the link/tag graph.
// Every call runs in its own store transaction; no state is held between calls.
// Counter updates are read-modify-write, so the gateway assumes a single writer.
type Gateway struct {
	store     graph.Store
	logger    *zap.Logger
	validator *inputValidator
	opts      Options
}

// New creates a gateway over store. Call EnsureSchema once before serving traffic.
func New(store graph.Store, log *zap.Logger, opts Options) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		store:     store,
		logger:    log.Named("persistence"),
		validator: newInputValidator(),
		opts:      opts,
	}
}

// EnsureSchema installs the constraints and indexes the gateway relies on
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	schema := graph.Schema{
		Unique: []graph.PropertyRef{
			{Label: constants.LabelTag, Key: constants.PropName},
			{Label: constants.LabelLink, Key: constants.PropUUID},
			{Label: constants.LabelTag, Key: constants.PropUUID},
		},
		Indexed: []graph.PropertyRef{
			{Label: constants.LabelLink, Key: constants.PropURL},
		},
	}
	linkName := graph.PropertyRef{Label: constants.LabelLink, Key: constants.PropName}
	if g.opts.EnforceUniqueLinkNames {
		schema.Unique = append(schema.Unique, linkName)
	} else {
		schema.Relaxed = append(schema.Relaxed, linkName)
	}

	if err := g.store.EnsureSchema(ctx, schema); err != nil {
		return g.fail("ensure schema", err)
	}
	g.logger.Info("Schema ensured",
		zap.Int("constraints", len(schema.Unique)),
		zap.Int("indexes", len(schema.Indexed)),
		zap.Bool("unique_link_names", g.opts.EnforceUniqueLinkNames),
	)
	return nil
}

// fail logs a store failure with its context and wraps it as a StorageError.
// Errors already in the taxonomy pass through unchanged.
func (g *Gateway) fail(op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	if apperrors.TypeOf(err) != "" {
		return err
	}
	g.logger.Error("Store operation failed",
		append(fields, zap.String("operation", op), zap.Error(err))...,
	)
	return apperrors.NewStorage(op, err)
}

// failWrite is fail plus translation of uniqueness violations into ConstraintViolation
func (g *Gateway) failWrite(op, entityName string, values map[string]string, err error) error {
	if errors.Is(err, graph.ErrConstraint) {
		g.logger.Error("Constraint violation",
			zap.String("operation", op),
			zap.String("entity", entityName),
			zap.Any("fields", values),
			zap.Error(err),
		)
		return apperrors.NewConstraintViolation(entityName, values, err)
	}
	return g.fail(op, err, zap.String("entity", entityName), zap.Any("fields", values))
}

// ============================================================================
// Lookup and decoding helpers shared by the link and tag operations
// ============================================================================

// findByUUID resolves one node by uuid or returns NotFoundError
func findByUUID(ctx context.Context, tx graph.Tx, label, id string) (graph.NodeHandle, error) {
	if !entity.IsUUID(id) {
		return graph.NodeHandle{}, apperrors.NewNotFound(entityName(label), constants.PropUUID, id)
	}
	node, err := graph.FindOne(ctx, tx, label, constants.PropUUID, id)
	if errors.Is(err, graph.ErrNodeNotFound) {
		return graph.NodeHandle{}, apperrors.NewNotFound(entityName(label), constants.PropUUID, id)
	}
	return node, err
}

// findFirst resolves the first node whose key equals value or returns NotFoundError
func findFirst(ctx context.Context, tx graph.Tx, label, key, value string) (graph.NodeHandle, error) {
	node, err := graph.FindOne(ctx, tx, label, key, value)
	if errors.Is(err, graph.ErrNodeNotFound) {
		return graph.NodeHandle{}, apperrors.NewNotFound(entityName(label), key, value)
	}
	return node, err
}

// find returns every node whose key matches value under mode
func find(ctx context.Context, tx graph.Tx, label, key, value string, mode entity.DeletionMode) ([]graph.NodeHandle, error) {
	if mode == entity.Soft {
		return graph.FindContains(ctx, tx, label, key, value)
	}
	return graph.FindExact(ctx, tx, label, key, value)
}

func entityName(label string) string {
	switch label {
	case constants.LabelLink:
		return "link"
	case constants.LabelTag:
		return "tag"
	}
	return label
}

func decodeLink(props graph.Properties) (entity.Link, error) {
	clicks, err := props.Int(constants.PropClicks)
	if err != nil {
		return entity.Link{}, err
	}
	score, err := props.Float(constants.PropScore)
	if err != nil {
		return entity.Link{}, err
	}
	return entity.Link{
		UUID:   props.Text(constants.PropUUID),
		Name:   props.Text(constants.PropName),
		URL:    props.Text(constants.PropURL),
		Title:  props.Text(constants.PropTitle),
		Clicks: clicks,
		Score:  score,
	}, nil
}

func decodeTag(props graph.Properties) (entity.Tag, error) {
	clicks, err := props.Int(constants.PropClicks)
	if err != nil {
		return entity.Tag{}, err
	}
	return entity.Tag{
		UUID:        props.Text(constants.PropUUID),
		Name:        props.Text(constants.PropName),
		Description: props.Text(constants.PropDescription),
		Clicks:      clicks,
	}, nil
}

// loadLinks decodes nodes in order, skipping repeated handles
func loadLinks(ctx context.Context, tx graph.Tx, nodes []graph.NodeHandle) ([]entity.Link, error) {
	links := make([]entity.Link, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		if _, ok := seen[node.ID]; ok {
			continue
		}
		seen[node.ID] = struct{}{}

		props, err := tx.Properties(ctx, node)
		if err != nil {
			return nil, err
		}
		link, err := decodeLink(props)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

// loadTags decodes nodes in order, skipping repeated handles
func loadTags(ctx context.Context, tx graph.Tx, nodes []graph.NodeHandle) ([]entity.Tag, error) {
	tags := make([]entity.Tag, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		if _, ok := seen[node.ID]; ok {
			continue
		}
		seen[node.ID] = struct{}{}

		props, err := tx.Properties(ctx, node)
		if err != nil {
			return nil, err
		}
		tag, err := decodeTag(props)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// incrementClicks is the read-modify-write click update shared by links and tags
func incrementClicks(ctx context.Context, tx graph.Tx, node graph.NodeHandle) (int64, error) {
	props, err := tx.Properties(ctx, node)
	if err != nil {
		return 0, err
	}
	clicks, err := props.Int(constants.PropClicks)
	if err != nil {
		return 0, err
	}
	clicks++
	return clicks, tx.SetProperty(ctx, node, constants.PropClicks, clicks)
}

package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"linklander/backend/internal/entity"
)

// Default matches the whole query against link names. Every hit scores zero.
type Default struct {
	src    Source
	logger *zap.Logger
}

// NewDefault creates the name-only provider
func NewDefault(src Source, logger *zap.Logger) *Default {
	return &Default{src: src, logger: logger.Named("search.default")}
}

// Search implements Provider
func (d *Default) Search(ctx context.Context, text string) (*HitSet, error) {
	query := strings.TrimSpace(text)

	var links []entity.Link
	var err error
	if query == "" {
		links, err = d.src.GetAllLinks(ctx)
	} else {
		links, err = d.src.SearchLinks(ctx, entity.LinkName, query)
	}
	if err != nil {
		return nil, err
	}

	hits := newHitSet()
	for _, link := range links {
		hits.put(link, 0)
	}

	d.logger.Debug("Search completed", zap.String("query", query), zap.Int("results", hits.Len()))
	return hits, nil
}

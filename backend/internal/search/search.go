package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"linklander/backend/internal/entity"
	"linklander/backend/internal/persistence"
)

// Provider kinds accepted by New
const (
	KindAdvanced = "advanced"
	KindDefault  = "default"
)

// Source is the part of the persistence gateway a provider reads from
type Source interface {
	GetAllLinks(ctx context.Context) ([]entity.Link, error)
	SearchLinks(ctx context.Context, field entity.LinkProperty, substring string) ([]entity.Link, error)
	SearchLinksByText(ctx context.Context, substring string) ([]entity.Link, error)
	SearchLinksForTagName(ctx context.Context, substring string) ([]persistence.TagLinks, error)
	GetTagsForLink(ctx context.Context, linkUUID string) ([]entity.Tag, error)
}

// Provider turns free text into a set of scored hits
type Provider interface {
	Search(ctx context.Context, text string) (*HitSet, error)
}

// SearchHit pairs a link with its relevance for one query
type SearchHit struct {
	Link  entity.Link  `json:"link"`
	Score float64      `json:"score"`
	Tags  []entity.Tag `json:"tags"`
}

// HitSet holds at most one hit per link uuid. Iteration order is unspecified; use Ranked for display.
type HitSet struct {
	hits map[string]*SearchHit
}

func newHitSet() *HitSet {
	return &HitSet{hits: make(map[string]*SearchHit)}
}

// Len returns the number of distinct links in the set
func (s *HitSet) Len() int {
	return len(s.hits)
}

// Get returns the hit for a link uuid
func (s *HitSet) Get(linkUUID string) (SearchHit, bool) {
	hit, ok := s.hits[linkUUID]
	if !ok {
		return SearchHit{}, false
	}
	return *hit, true
}

// Hits returns the hits in no particular order
func (s *HitSet) Hits() []SearchHit {
	out := make([]SearchHit, 0, len(s.hits))
	for _, hit := range s.hits {
		out = append(out, *hit)
	}
	return out
}

// Ranked returns the hits in display order
func (s *HitSet) Ranked() []SearchHit {
	return Rank(s.Hits())
}

// put records link with score unless it is already present
func (s *HitSet) put(link entity.Link, score float64) {
	if _, ok := s.hits[link.UUID]; !ok {
		s.hits[link.UUID] = &SearchHit{Link: link, Score: score}
	}
}

// match records one match event: a new link starts at increment, a known one gains increment
func (s *HitSet) match(link entity.Link, increment float64) {
	if hit, ok := s.hits[link.UUID]; ok {
		hit.Score += increment
		return
	}
	s.hits[link.UUID] = &SearchHit{Link: link, Score: increment}
}

// attachTags loads the current tag list of every hit once
func (s *HitSet) attachTags(ctx context.Context, src Source) error {
	for id, hit := range s.hits {
		tags, err := src.GetTagsForLink(ctx, id)
		if err != nil {
			return fmt.Errorf("loading tags for %s: %w", id, err)
		}
		hit.Tags = tags
	}
	return nil
}

// New returns the provider registered under kind
func New(kind string, src Source, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindAdvanced, "":
		return NewAdvanced(src, logger), nil
	case KindDefault:
		return NewDefault(src, logger), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", kind)
	}
}

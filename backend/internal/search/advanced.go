package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"linklander/backend/internal/constants"
)

// Advanced scores links by counting match events across query tokens.
// Each token is matched against link name and url, then against tag names;
// every link produced by a channel earns MatchIncrement, so a link can score
// several points for one token.
type Advanced struct {
	src    Source
	logger *zap.Logger
}

// NewAdvanced creates the token-scoring provider
func NewAdvanced(src Source, logger *zap.Logger) *Advanced {
	return &Advanced{src: src, logger: logger.Named("search.advanced")}
}

// Search implements Provider
func (a *Advanced) Search(ctx context.Context, text string) (*HitSet, error) {
	query := strings.TrimSpace(text)
	hits := newHitSet()

	tokens := tokenize(query)
	if len(tokens) == 0 {
		links, err := a.src.GetAllLinks(ctx)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			hits.put(link, constants.BaselineScore)
		}
	}

	for _, token := range tokens {
		links, err := a.src.SearchLinksByText(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("matching links for %q: %w", token, err)
		}
		for _, link := range links {
			hits.match(link, constants.MatchIncrement)
		}

		tagged, err := a.src.SearchLinksForTagName(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("matching tags for %q: %w", token, err)
		}
		for _, tl := range tagged {
			for _, link := range tl.Links {
				hits.match(link, constants.MatchIncrement)
			}
		}
	}

	if err := hits.attachTags(ctx, a.src); err != nil {
		return nil, err
	}

	a.logger.Debug("Search completed",
		zap.String("query", query),
		zap.Int("tokens", len(tokens)),
		zap.Int("results", hits.Len()),
	)
	return hits, nil
}

// tokenize splits on whitespace runs and drops repeated tokens
func tokenize(query string) []string {
	fields := strings.Fields(query)
	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

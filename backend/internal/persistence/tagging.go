package persistence

import (
	"context"

	"go.uber.org/zap"

	"linklander/backend/internal/constants"
	"linklander/backend/internal/entity"
	"linklander/backend/internal/graph"
)

// TagLinks pairs a tag with the links it is applied to
type TagLinks struct {
	Tag   entity.Tag    `json:"tag"`
	Links []entity.Link `json:"links"`
}

// AddTagToLink applies a tag to a link. Applying it twice leaves a single edge.
func (g *Gateway) AddTagToLink(ctx context.Context, linkUUID, tagUUID string) error {
	created := false
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		link, tag, err := resolvePair(ctx, tx, linkUUID, tagUUID)
		if err != nil {
			return err
		}

		exists, err := graph.EdgeExists(ctx, tx, tag, link, constants.EdgeTagged)
		if err != nil || exists {
			return err
		}
		created = true
		return tx.CreateEdge(ctx, tag, link, constants.EdgeTagged)
	})
	if err != nil {
		return g.fail("add tag to link", err, zap.String("link", linkUUID), zap.String("tag", tagUUID))
	}

	g.logger.Debug("Tagged link",
		zap.String("link", linkUUID),
		zap.String("tag", tagUUID),
		zap.Bool("created", created),
	)
	return nil
}

// RemoveTagFromLink deletes every tagging edge between the pair; an untagged pair is left as is
func (g *Gateway) RemoveTagFromLink(ctx context.Context, linkUUID, tagUUID string) error {
	var removed int
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		link, tag, err := resolvePair(ctx, tx, linkUUID, tagUUID)
		if err != nil {
			return err
		}
		removed, err = tx.DeleteEdges(ctx, tag, link, constants.EdgeTagged)
		return err
	})
	if err != nil {
		return g.fail("remove tag from link", err, zap.String("link", linkUUID), zap.String("tag", tagUUID))
	}

	g.logger.Debug("Untagged link",
		zap.String("link", linkUUID),
		zap.String("tag", tagUUID),
		zap.Int("removed", removed),
	)
	return nil
}

// GetTagsForLink returns the tags applied to the link with the given uuid
func (g *Gateway) GetTagsForLink(ctx context.Context, linkUUID string) ([]entity.Tag, error) {
	var tags []entity.Tag
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		link, err := findByUUID(ctx, tx, constants.LabelLink, linkUUID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbors(ctx, tx, link, constants.EdgeTagged, graph.Incoming, constants.LabelTag)
		if err != nil {
			return err
		}
		tags, err = loadTags(ctx, tx, nodes)
		return err
	})
	if err != nil {
		return nil, g.fail("get tags for link", err, zap.String("link", linkUUID))
	}
	return tags, nil
}

// SearchLinksForTagName finds the tags whose name contains substring, ignoring case,
// and pairs each with the links it is applied to
func (g *Gateway) SearchLinksForTagName(ctx context.Context, substring string) ([]TagLinks, error) {
	if err := g.validator.Validate(lookupInput{Value: substring}); err != nil {
		return nil, err
	}

	result := []TagLinks{}
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		tagNodes, err := graph.FindContains(ctx, tx, constants.LabelTag, constants.PropName, substring)
		if err != nil {
			return err
		}
		for _, tagNode := range tagNodes {
			props, err := tx.Properties(ctx, tagNode)
			if err != nil {
				return err
			}
			tag, err := decodeTag(props)
			if err != nil {
				return err
			}
			linkNodes, err := graph.Neighbors(ctx, tx, tagNode, constants.EdgeTagged, graph.Outgoing, constants.LabelLink)
			if err != nil {
				return err
			}
			links, err := loadLinks(ctx, tx, linkNodes)
			if err != nil {
				return err
			}
			result = append(result, TagLinks{Tag: tag, Links: links})
		}
		return nil
	})
	if err != nil {
		return nil, g.fail("search links for tag name", err, zap.String("value", substring))
	}
	return result, nil
}

// SetLinkTags makes tagUUIDs the exact tag set of a link.
// The current tags are read first and the difference applied in separate calls,
// so a concurrent edit of the same link can interleave.
func (g *Gateway) SetLinkTags(ctx context.Context, linkUUID string, tagUUIDs []string) error {
	current, err := g.GetTagsForLink(ctx, linkUUID)
	if err != nil {
		return err
	}

	wanted := make(map[string]struct{}, len(tagUUIDs))
	for _, id := range tagUUIDs {
		wanted[id] = struct{}{}
	}
	have := make(map[string]struct{}, len(current))
	for _, tag := range current {
		have[tag.UUID] = struct{}{}
	}

	var added, removed int
	for _, id := range tagUUIDs {
		if _, ok := have[id]; ok {
			continue
		}
		have[id] = struct{}{}
		if err := g.AddTagToLink(ctx, linkUUID, id); err != nil {
			return err
		}
		added++
	}
	for _, tag := range current {
		if _, ok := wanted[tag.UUID]; ok {
			continue
		}
		if err := g.RemoveTagFromLink(ctx, linkUUID, tag.UUID); err != nil {
			return err
		}
		removed++
	}

	g.logger.Debug("Set link tags",
		zap.String("link", linkUUID),
		zap.Int("added", added),
		zap.Int("removed", removed),
	)
	return nil
}

func resolvePair(ctx context.Context, tx graph.Tx, linkUUID, tagUUID string) (link, tag graph.NodeHandle, err error) {
	link, err = findByUUID(ctx, tx, constants.LabelLink, linkUUID)
	if err != nil {
		return
	}
	tag, err = findByUUID(ctx, tx, constants.LabelTag, tagUUID)
	return
}

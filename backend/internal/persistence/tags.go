package persistence

import (
	"context"

	"go.uber.org/zap"

	"linklander/backend/internal/constants"
	"linklander/backend/internal/entity"
	"linklander/backend/internal/graph"
	apperrors "linklander/backend/pkg/errors"
)

// AddTag stores a new tag and returns its uuid. Tag names are unique.
func (g *Gateway) AddTag(ctx context.Context, name, description string) (string, error) {
	if err := g.validator.Validate(tagInput{Name: name, Description: description}); err != nil {
		return "", err
	}

	id := entity.NewUUID()
	props := graph.Properties{
		constants.PropUUID:        id,
		constants.PropName:        name,
		constants.PropDescription: description,
		constants.PropClicks:      int64(0),
	}

	err := g.store.Write(ctx, func(tx graph.Tx) error {
		_, err := tx.CreateNode(ctx, constants.LabelTag, props)
		return err
	})
	if err != nil {
		return "", g.failWrite("add tag", "tag", map[string]string{
			constants.PropName:        name,
			constants.PropDescription: description,
		}, err)
	}

	g.logger.Debug("Added tag",
		zap.String("uuid", id),
		zap.String("name", name),
		zap.String("description", description),
	)
	return id, nil
}

// GetTagByUUID returns the tag with the given uuid or NotFoundError
func (g *Gateway) GetTagByUUID(ctx context.Context, id string) (entity.Tag, error) {
	var tag entity.Tag
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		node, err := findByUUID(ctx, tx, constants.LabelTag, id)
		if err != nil {
			return err
		}
		props, err := tx.Properties(ctx, node)
		if err != nil {
			return err
		}
		tag, err = decodeTag(props)
		return err
	})
	return tag, g.fail("get tag", err, zap.String("uuid", id))
}

// GetAllTags returns every stored tag
func (g *Gateway) GetAllTags(ctx context.Context) ([]entity.Tag, error) {
	var tags []entity.Tag
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		nodes, err := graph.AllNodes(ctx, tx, constants.LabelTag)
		if err != nil {
			return err
		}
		tags, err = loadTags(ctx, tx, nodes)
		return err
	})
	if err != nil {
		return nil, g.fail("get all tags", err)
	}
	return tags, nil
}

// SearchTags returns the tags whose NAME contains substring, ignoring case
func (g *Gateway) SearchTags(ctx context.Context, field entity.TagProperty, substring string) ([]entity.Tag, error) {
	if field != entity.TagName {
		return nil, apperrors.NewUnsupportedField("tag", field.String())
	}
	if err := g.validator.Validate(lookupInput{Value: substring}); err != nil {
		return nil, err
	}

	var tags []entity.Tag
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		nodes, err := graph.FindContains(ctx, tx, constants.LabelTag, constants.PropName, substring)
		if err != nil {
			return err
		}
		tags, err = loadTags(ctx, tx, nodes)
		return err
	})
	if err != nil {
		return nil, g.fail("search tags", err, zap.String("value", substring))
	}
	return tags, nil
}

// UpdateTag mutates the tag named matchValue.
// CLICK_COUNT ignores newValue and increments.
func (g *Gateway) UpdateTag(ctx context.Context, property entity.TagProperty, matchValue, newValue string) error {
	if !property.Updatable() {
		return apperrors.NewUnsupportedField("tag", property.String())
	}
	if err := g.validator.Validate(updateInput{Match: matchValue, NewValue: newValue}); err != nil {
		return err
	}
	if property == entity.TagDescription {
		if err := g.validator.Validate(tagDescriptionInput{Description: newValue}); err != nil {
			return err
		}
	}

	var logged any = newValue
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		node, err := findFirst(ctx, tx, constants.LabelTag, constants.PropName, matchValue)
		if err != nil {
			return err
		}

		if property == entity.TagClickCount {
			clicks, err := incrementClicks(ctx, tx, node)
			logged = clicks
			return err
		}
		return tx.SetProperty(ctx, node, property.Key(), newValue)
	})
	if err != nil {
		return g.failWrite("update tag", "tag", map[string]string{
			constants.PropName: matchValue,
			property.Key():     newValue,
		}, err)
	}

	g.logger.Debug("Updated tag",
		zap.Stringer("property", property),
		zap.String("match", matchValue),
		zap.Any("new_value", logged),
	)
	return nil
}

// IncrementTagClick adds one to the click counter of the tag with the given name
func (g *Gateway) IncrementTagClick(ctx context.Context, name string) error {
	return g.UpdateTag(ctx, entity.TagClickCount, name, name)
}

// DeleteTag detaches and removes the tag with the given uuid
func (g *Gateway) DeleteTag(ctx context.Context, id string) error {
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		node, err := findByUUID(ctx, tx, constants.LabelTag, id)
		if err != nil {
			return err
		}
		return tx.DeleteNode(ctx, node)
	})
	if err != nil {
		return g.fail("delete tag", err, zap.String("uuid", id))
	}

	g.logger.Debug("Deleted tag", zap.String("uuid", id))
	return nil
}

// DeleteTags removes every tag whose NAME matches value under mode and returns how many were removed
func (g *Gateway) DeleteTags(ctx context.Context, property entity.TagProperty, value string, mode entity.DeletionMode) (int, error) {
	if property != entity.TagName {
		return 0, apperrors.NewUnsupportedField("tag", property.String())
	}
	if err := checkMode(mode); err != nil {
		return 0, err
	}
	if err := g.validator.Validate(lookupInput{Value: value}); err != nil {
		return 0, err
	}

	var deleted int
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		nodes, err := find(ctx, tx, constants.LabelTag, constants.PropName, value, mode)
		if err != nil {
			return err
		}
		for _, node := range nodes {
			if err := tx.DeleteNode(ctx, node); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, g.fail("delete tags", err, zap.String("value", value), zap.Stringer("mode", mode))
	}

	g.logger.Debug("Deleted tags",
		zap.String("value", value),
		zap.Stringer("mode", mode),
		zap.Int("count", deleted),
	)
	return deleted, nil
}

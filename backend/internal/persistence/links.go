package persistence

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"linklander/backend/internal/constants"
	"linklander/backend/internal/entity"
	"linklander/backend/internal/graph"
	apperrors "linklander/backend/pkg/errors"
)

// AddLink stores a new link with zero clicks and score and returns its uuid
func (g *Gateway) AddLink(ctx context.Context, name, url, title string) (string, error) {
	if err := g.validator.Validate(linkInput{Name: name, URL: url}); err != nil {
		return "", err
	}

	id := entity.NewUUID()
	props := graph.Properties{
		constants.PropUUID:   id,
		constants.PropName:   name,
		constants.PropURL:    url,
		constants.PropTitle:  title,
		constants.PropClicks: int64(0),
		constants.PropScore:  float64(0),
	}

	err := g.store.Write(ctx, func(tx graph.Tx) error {
		_, err := tx.CreateNode(ctx, constants.LabelLink, props)
		return err
	})
	if err != nil {
		return "", g.failWrite("add link", "link", map[string]string{
			constants.PropName:  name,
			constants.PropURL:   url,
			constants.PropTitle: title,
		}, err)
	}

	g.logger.Debug("Added link",
		zap.String("uuid", id),
		zap.String("name", name),
		zap.String("url", url),
		zap.String("title", title),
	)
	return id, nil
}

// GetLinkByUUID returns the link with the given uuid or NotFoundError
func (g *Gateway) GetLinkByUUID(ctx context.Context, id string) (entity.Link, error) {
	var link entity.Link
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		node, err := findByUUID(ctx, tx, constants.LabelLink, id)
		if err != nil {
			return err
		}
		props, err := tx.Properties(ctx, node)
		if err != nil {
			return err
		}
		link, err = decodeLink(props)
		return err
	})
	return link, g.fail("get link", err, zap.String("uuid", id))
}

// GetAllLinks returns every stored link
func (g *Gateway) GetAllLinks(ctx context.Context) ([]entity.Link, error) {
	var links []entity.Link
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		nodes, err := graph.AllNodes(ctx, tx, constants.LabelLink)
		if err != nil {
			return err
		}
		links, err = loadLinks(ctx, tx, nodes)
		return err
	})
	if err != nil {
		return nil, g.fail("get all links", err)
	}
	return links, nil
}

// SearchLinks returns the links whose NAME or URL contains substring, ignoring case
func (g *Gateway) SearchLinks(ctx context.Context, field entity.LinkProperty, substring string) ([]entity.Link, error) {
	if !field.Searchable() {
		return nil, apperrors.NewUnsupportedField("link", field.String())
	}
	if err := g.validator.Validate(lookupInput{Value: substring}); err != nil {
		return nil, err
	}

	var links []entity.Link
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		nodes, err := graph.FindContains(ctx, tx, constants.LabelLink, field.Key(), substring)
		if err != nil {
			return err
		}
		links, err = loadLinks(ctx, tx, nodes)
		return err
	})
	if err != nil {
		return nil, g.fail("search links", err, zap.Stringer("field", field), zap.String("value", substring))
	}

	g.logger.Debug("Retrieved links",
		zap.Stringer("field", field),
		zap.String("value", substring),
		zap.Int("count", len(links)),
	)
	return links, nil
}

// SearchLinksByText returns the links whose name or url contains substring.
// A link matching on both properties appears once.
func (g *Gateway) SearchLinksByText(ctx context.Context, substring string) ([]entity.Link, error) {
	if err := g.validator.Validate(lookupInput{Value: substring}); err != nil {
		return nil, err
	}

	var links []entity.Link
	err := g.store.Read(ctx, func(tx graph.Tx) error {
		var nodes []graph.NodeHandle
		for _, key := range []string{constants.PropName, constants.PropURL} {
			matched, err := graph.FindContains(ctx, tx, constants.LabelLink, key, substring)
			if err != nil {
				return err
			}
			nodes = append(nodes, matched...)
		}
		var err error
		links, err = loadLinks(ctx, tx, nodes)
		return err
	})
	if err != nil {
		return nil, g.fail("search links by text", err, zap.String("value", substring))
	}
	return links, nil
}

// SetLinkProperty overwrites the name, url or title of one link.
// propertyName is the enum name ("NAME") or the stored key ("name").
func (g *Gateway) SetLinkProperty(ctx context.Context, id, propertyName, value string) error {
	return g.SetLinkProperties(ctx, id, map[string]string{propertyName: value})
}

// SetLinkProperties overwrites several properties of one link in a single write.
// Every value is checked before the store is touched, so a rejected field leaves
// the link unchanged.
func (g *Gateway) SetLinkProperties(ctx context.Context, id string, values map[string]string) error {
	if len(values) == 0 {
		return apperrors.NewValidation("properties", "no properties to set")
	}

	changes := make(map[entity.LinkProperty]string, len(values))
	for name, value := range values {
		property, err := checkLinkProperty(name, value)
		if err != nil {
			return err
		}
		if _, dup := changes[property]; dup {
			return apperrors.NewValidation(property.Key(), "set more than once")
		}
		changes[property] = value
	}

	err := g.store.Write(ctx, func(tx graph.Tx) error {
		node, err := findByUUID(ctx, tx, constants.LabelLink, id)
		if err != nil {
			return err
		}
		for property, value := range changes {
			if err := tx.SetProperty(ctx, node, property.Key(), value); err != nil {
				return err
			}
		}
		return nil
	})

	fields := map[string]string{constants.PropUUID: id}
	for property, value := range changes {
		fields[property.Key()] = value
	}
	if err != nil {
		return g.failWrite("set link properties", "link", fields, err)
	}

	g.logger.Debug("Set link properties", zap.Any("fields", fields))
	return nil
}

// checkLinkProperty resolves a settable link property and validates its new value
func checkLinkProperty(name, value string) (entity.LinkProperty, error) {
	property, err := entity.ParseLinkProperty(name)
	if err != nil {
		return 0, apperrors.NewUnsupportedField("link", name)
	}

	switch property {
	case entity.LinkName, entity.LinkURL:
		if strings.TrimSpace(value) == "" {
			return 0, apperrors.NewValidation(property.Key(), "must not be blank")
		}
	case entity.LinkTitle:
	default:
		return 0, apperrors.NewUnsupportedField("link", property.String())
	}
	return property, nil
}

// UpdateLink mutates the first link matching matchValue exactly.
// URL matches on url; NAME, CLICK_COUNT and SCORE match on name.
// CLICK_COUNT ignores newValue and increments; SCORE parses newValue as a float.
func (g *Gateway) UpdateLink(ctx context.Context, property entity.LinkProperty, matchValue, newValue string) error {
	if !property.Updatable() {
		return apperrors.NewUnsupportedField("link", property.String())
	}
	if err := g.validator.Validate(updateInput{Match: matchValue, NewValue: newValue}); err != nil {
		return err
	}

	var score float64
	if property == entity.LinkScore {
		parsed, err := parseScore(newValue)
		if err != nil {
			return err
		}
		score = parsed
	}

	matchKey := constants.PropName
	if property == entity.LinkURL {
		matchKey = constants.PropURL
	}

	var logged any = newValue
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		node, err := findFirst(ctx, tx, constants.LabelLink, matchKey, matchValue)
		if err != nil {
			return err
		}

		switch property {
		case entity.LinkName, entity.LinkURL:
			return tx.SetProperty(ctx, node, property.Key(), newValue)
		case entity.LinkClickCount:
			clicks, err := incrementClicks(ctx, tx, node)
			logged = clicks
			return err
		default:
			logged = score
			return tx.SetProperty(ctx, node, constants.PropScore, score)
		}
	})
	if err != nil {
		return g.failWrite("update link", "link", map[string]string{
			matchKey:       matchValue,
			property.Key(): newValue,
		}, err)
	}

	g.logger.Debug("Updated link",
		zap.Stringer("property", property),
		zap.String("match", matchValue),
		zap.Any("new_value", logged),
	)
	return nil
}

// DeleteLink detaches and removes the link with the given uuid
func (g *Gateway) DeleteLink(ctx context.Context, id string) error {
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		node, err := findByUUID(ctx, tx, constants.LabelLink, id)
		if err != nil {
			return err
		}
		return tx.DeleteNode(ctx, node)
	})
	if err != nil {
		return g.fail("delete link", err, zap.String("uuid", id))
	}

	g.logger.Debug("Deleted link", zap.String("uuid", id))
	return nil
}

// DeleteLinks removes every link whose NAME or URL matches value under mode and returns how many were removed
func (g *Gateway) DeleteLinks(ctx context.Context, property entity.LinkProperty, value string, mode entity.DeletionMode) (int, error) {
	if !property.Searchable() {
		return 0, apperrors.NewUnsupportedField("link", property.String())
	}
	if err := checkMode(mode); err != nil {
		return 0, err
	}
	if err := g.validator.Validate(lookupInput{Value: value}); err != nil {
		return 0, err
	}

	var deleted int
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		nodes, err := find(ctx, tx, constants.LabelLink, property.Key(), value, mode)
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
		return 0, g.fail("delete links", err,
			zap.Stringer("property", property),
			zap.String("value", value),
			zap.Stringer("mode", mode),
		)
	}

	g.logger.Debug("Deleted links",
		zap.Stringer("property", property),
		zap.String("value", value),
		zap.Stringer("mode", mode),
		zap.Int("count", deleted),
	)
	return deleted, nil
}

// IncrementLinkClick adds one to the click counter of the link with the given uuid
func (g *Gateway) IncrementLinkClick(ctx context.Context, id string) error {
	var clicks int64
	err := g.store.Write(ctx, func(tx graph.Tx) error {
		node, err := findByUUID(ctx, tx, constants.LabelLink, id)
		if err != nil {
			return err
		}
		clicks, err = incrementClicks(ctx, tx, node)
		return err
	})
	if err != nil {
		return g.fail("increment link click", err, zap.String("uuid", id))
	}

	g.logger.Debug("Incremented link clicks", zap.String("uuid", id), zap.Int64("clicks", clicks))
	return nil
}

// RecordLinkClick counts a visit. Failures are logged and never reach the caller.
func (g *Gateway) RecordLinkClick(ctx context.Context, id string) {
	if err := g.IncrementLinkClick(ctx, id); err != nil {
		g.logger.Warn("Failed to record link click",
			zap.String("uuid", id),
			zap.Error(err),
		)
	}
}

// UpdateLinkScore sets the score of the link identified by uuid, or by name when no uuid matches
func (g *Gateway) UpdateLinkScore(ctx context.Context, uuidOrName string, score float64) error {
	if err := g.validator.Validate(lookupInput{Value: uuidOrName}); err != nil {
		return err
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return apperrors.NewValidation(constants.PropScore, "must be a finite number")
	}

	err := g.store.Write(ctx, func(tx graph.Tx) error {
		node, err := graph.FindOne(ctx, tx, constants.LabelLink, constants.PropUUID, uuidOrName)
		if errors.Is(err, graph.ErrNodeNotFound) {
			node, err = findFirst(ctx, tx, constants.LabelLink, constants.PropName, uuidOrName)
		}
		if err != nil {
			return err
		}
		return tx.SetProperty(ctx, node, constants.PropScore, score)
	})
	if err != nil {
		return g.fail("update link score", err, zap.String("link", uuidOrName), zap.Float64("score", score))
	}

	g.logger.Debug("Updated link score", zap.String("link", uuidOrName), zap.Float64("score", score))
	return nil
}

func parseScore(raw string) (float64, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, apperrors.NewValidation(constants.PropScore, "must be a finite number")
	}
	return score, nil
}

func checkMode(mode entity.DeletionMode) error {
	if mode != entity.Exact && mode != entity.Soft {
		return apperrors.NewValidation("mode", "must be EXACT or SOFT")
	}
	return nil
}

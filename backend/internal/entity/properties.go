package entity

import (
	"fmt"
	"strings"

	"linklander/backend/internal/constants"
)

// LinkProperty enumerates the link properties callers may address
type LinkProperty int

const (
	LinkName LinkProperty = iota + 1
	LinkURL
	LinkTitle
	LinkClickCount
	LinkScore
	LinkUUID
)

var linkPropertyNames = map[LinkProperty]string{
	LinkName:       "NAME",
	LinkURL:        "URL",
	LinkTitle:      "TITLE",
	LinkClickCount: "CLICK_COUNT",
	LinkScore:      "SCORE",
	LinkUUID:       "UUID",
}

var linkPropertyKeys = map[LinkProperty]string{
	LinkName:       constants.PropName,
	LinkURL:        constants.PropURL,
	LinkTitle:      constants.PropTitle,
	LinkClickCount: constants.PropClicks,
	LinkScore:      constants.PropScore,
	LinkUUID:       constants.PropUUID,
}

func (p LinkProperty) String() string {
	if name, ok := linkPropertyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("LinkProperty(%d)", int(p))
}

// Key returns the stored property key, or "" for an unknown value
func (p LinkProperty) Key() string {
	return linkPropertyKeys[p]
}

// Searchable reports whether substring search is supported on p
func (p LinkProperty) Searchable() bool {
	return p == LinkName || p == LinkURL
}

// Updatable reports whether UpdateLink accepts p
func (p LinkProperty) Updatable() bool {
	switch p {
	case LinkName, LinkURL, LinkClickCount, LinkScore:
		return true
	}
	return false
}

// ParseLinkProperty accepts the enum name ("NAME") or the stored key ("name")
func ParseLinkProperty(s string) (LinkProperty, error) {
	for p, name := range linkPropertyNames {
		if strings.EqualFold(s, name) || s == linkPropertyKeys[p] {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown link property %q", s)
}

// TagProperty enumerates the tag properties callers may address
type TagProperty int

const (
	TagName TagProperty = iota + 1
	TagDescription
	TagClickCount
	TagUUID
)

var tagPropertyNames = map[TagProperty]string{
	TagName:        "NAME",
	TagDescription: "DESCRIPTION",
	TagClickCount:  "CLICK_COUNT",
	TagUUID:        "UUID",
}

var tagPropertyKeys = map[TagProperty]string{
	TagName:        constants.PropName,
	TagDescription: constants.PropDescription,
	TagClickCount:  constants.PropClicks,
	TagUUID:        constants.PropUUID,
}

func (p TagProperty) String() string {
	if name, ok := tagPropertyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("TagProperty(%d)", int(p))
}

// Key returns the stored property key, or "" for an unknown value
func (p TagProperty) Key() string {
	return tagPropertyKeys[p]
}

// Updatable reports whether UpdateTag accepts p
func (p TagProperty) Updatable() bool {
	switch p {
	case TagName, TagDescription, TagClickCount:
		return true
	}
	return false
}

// ParseTagProperty accepts the enum name ("NAME") or the stored key ("name")
func ParseTagProperty(s string) (TagProperty, error) {
	for p, name := range tagPropertyNames {
		if strings.EqualFold(s, name) || s == tagPropertyKeys[p] {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown tag property %q", s)
}

// DeletionMode selects how a delete-by-property matches its targets
type DeletionMode int

const (
	// Exact requires full equality with the property value
	Exact DeletionMode = iota + 1
	// Soft accepts any value containing the given substring
	Soft
)

func (m DeletionMode) String() string {
	switch m {
	case Exact:
		return "EXACT"
	case Soft:
		return "SOFT"
	}
	return fmt.Sprintf("DeletionMode(%d)", int(m))
}

// ParseDeletionMode accepts "EXACT" or "SOFT" in any case
func ParseDeletionMode(s string) (DeletionMode, error) {
	switch strings.ToUpper(s) {
	case "EXACT":
		return Exact, nil
	case "SOFT":
		return Soft, nil
	}
	return 0, fmt.Errorf("unknown deletion mode %q", s)
}

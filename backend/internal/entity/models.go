package entity

import (
	"fmt"

	"github.com/google/uuid"
)

// Link is a stored bookmark
type Link struct {
	UUID   string  `json:"uuid"`
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Title  string  `json:"title"`
	Clicks int64   `json:"clicks"`
	Score  float64 `json:"score"`
}

// String implements fmt.Stringer
func (l Link) String() string {
	return fmt.Sprintf("Link [name=%s, title=%s, url=%s, clicks=%d, score=%g]", l.Name, l.Title, l.URL, l.Clicks, l.Score)
}

// Tag is a free-form label attachable to any number of links
type Tag struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Clicks      int64  `json:"clicks"`
}

// String implements fmt.Stringer
func (t Tag) String() string {
	return fmt.Sprintf("Tag [name=%s, description=%s, clicks=%d]", t.Name, t.Description, t.Clicks)
}

// NewUUID returns a fresh random identity for a link or tag
func NewUUID() string {
	return uuid.New().String()
}

// IsUUID reports whether s is a well-formed UUID
func IsUUID(s string) bool {
	return uuid.Validate(s) == nil
}

package search

import (
	"cmp"
	"slices"
)

// Compare orders hits for display: score, clicks, name and uuid, each descending.
// Names and uuids compare byte-wise. The order is total over distinct uuids.
func Compare(a, b SearchHit) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Link.Clicks, a.Link.Clicks); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Link.Name, a.Link.Name); c != 0 {
		return c
	}
	return cmp.Compare(b.Link.UUID, a.Link.UUID)
}

// Rank returns a sorted copy of hits; the input and the hit scores are left untouched
func Rank(hits []SearchHit) []SearchHit {
	ranked := slices.Clone(hits)
	slices.SortFunc(ranked, Compare)
	return ranked
}

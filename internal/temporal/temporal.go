// Package temporal implements the publication-date ordering policy for
// relationship edges: edges point from the newer paper to the older one.
package temporal

import (
	"time"

	"github.com/calloway/papergraph/internal/paper"
)

// dateLayouts are tried in order when parsing a stored date string.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006",
}

// ParseDate parses a stored date string. It accepts ISO-8601 with or without
// timezone, bare dates, and bare years. Unparseable input yields (zero, false)
// rather than an error; callers treat that the same as a missing date.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveDate returns the paper's effective publication date, preferring
// Published and falling back to Updated. ok is false when neither field
// parses; such papers are temporally unorderable.
func ResolveDate(p *paper.Paper) (time.Time, bool) {
	if t, ok := ParseDate(p.Published); ok {
		return t, true
	}
	if t, ok := ParseDate(p.Updated); ok {
		return t, true
	}
	return time.Time{}, false
}

// IsLegalDirection reports whether an edge source -> target respects the
// temporal invariant. Pairs where either side has no resolvable date are
// never rejected on temporal grounds: undated papers still participate in
// detection, they are just exempt from ordering.
func IsLegalDirection(source, target *paper.Paper) bool {
	sd, sok := ResolveDate(source)
	td, tok := ResolveDate(target)
	if !sok || !tok {
		return true
	}
	return !sd.Before(td)
}

// Orient orders two papers newer-first. ok is false unless both papers have
// resolvable dates; orientation without both dates would be a guess.
func Orient(a, b *paper.Paper) (newer, older *paper.Paper, ok bool) {
	ad, aok := ResolveDate(a)
	bd, bok := ResolveDate(b)
	if !aok || !bok {
		return nil, nil, false
	}
	if ad.Before(bd) {
		return b, a, true
	}
	return a, b, true
}

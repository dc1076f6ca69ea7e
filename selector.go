package jsonstream

import (
	"strconv"
	"strings"
)

// SegmentMatcher constrains one position of a pattern-form Selector: a
// literal key, a literal index, a set of either, or a wildcard matching
// anything.
type SegmentMatcher func(Segment) bool

// MatchKey constrains a segment to a single literal object key.
func MatchKey(key string) SegmentMatcher {
	return func(s Segment) bool { return s.Kind == KeySegment && s.Key == key }
}

// MatchIndex constrains a segment to a single literal array index.
func MatchIndex(index int) SegmentMatcher {
	return func(s Segment) bool { return s.Kind == IndexSegment && s.Index == index }
}

// MatchAny matches a set of literal keys and/or indices — the pattern
// form's "{a,b,c}" alternation.
func MatchAny(keys []string, indices []int) SegmentMatcher {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	idxSet := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		idxSet[i] = struct{}{}
	}
	return func(s Segment) bool {
		if s.Kind == KeySegment {
			_, ok := keySet[s.Key]
			return ok
		}
		_, ok := idxSet[s.Index]
		return ok
	}
}

// MatchWildcard matches any key or index.
func MatchWildcard() SegmentMatcher { return func(Segment) bool { return true } }

// Selector matches paths, either structurally (pattern form) or via an
// opaque predicate.
type Selector struct {
	match func(Path) bool
}

// Pattern builds a pattern-form Selector: a path matches iff it has exactly
// len(entries) segments and each one satisfies the matcher at its position.
func Pattern(entries ...SegmentMatcher) *Selector {
	entries = append([]SegmentMatcher(nil), entries...)
	return &Selector{match: func(p Path) bool {
		if len(p) != len(entries) {
			return false
		}
		for i, m := range entries {
			if !m(p[i]) {
				return false
			}
		}
		return true
	}}
}

// PredicateSelector builds a predicate-form Selector from an arbitrary
// path-matching function.
func PredicateSelector(fn func(Path) bool) *Selector {
	return &Selector{match: fn}
}

// Matches reports whether p satisfies the selector.
func (s *Selector) Matches(p Path) bool { return s.match(p) }

// Or combines selectors: the result matches a path accepted by s or by any
// of the others. It is the predicate-form escape hatch for matches a single
// pattern cannot express, such as selecting two subtrees at different
// depths.
func (s *Selector) Or(others ...*Selector) *Selector {
	all := append([]*Selector{s}, others...)
	return PredicateSelector(func(p Path) bool {
		for _, sel := range all {
			if sel.Matches(p) {
				return true
			}
		}
		return false
	})
}

// ParseSelector parses a textual path pattern: segments
// separated by '.', each one a literal key, a non-negative integer index,
// a brace-delimited alternation "{a,b,2}", or "*" for wildcard. The empty
// string parses to a Selector matching only the root path.
func ParseSelector(text string) (*Selector, error) {
	if text == "" {
		return Pattern(), nil
	}
	parts, err := splitSelectorSegments(text)
	if err != nil {
		return nil, err
	}
	matchers := make([]SegmentMatcher, len(parts))
	for i, p := range parts {
		m, err := parseSelectorSegment(p)
		if err != nil {
			return nil, err
		}
		matchers[i] = m
	}
	return Pattern(matchers...), nil
}

func splitSelectorSegments(text string) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i, r := range text {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, &InvalidSelectorError{Reason: "unmatched '}'"}
			}
		case '.':
			if depth == 0 {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, &InvalidSelectorError{Reason: "unmatched '{'"}
	}
	parts = append(parts, text[start:])
	for _, p := range parts {
		if p == "" {
			return nil, &InvalidSelectorError{Reason: "empty selector segment"}
		}
	}
	return parts, nil
}

func parseSelectorSegment(s string) (SegmentMatcher, error) {
	switch {
	case s == "*":
		return MatchWildcard(), nil
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		alts := strings.Split(s[1:len(s)-1], ",")
		var keys []string
		var indices []int
		for _, alt := range alts {
			alt = strings.TrimSpace(alt)
			if alt == "" {
				return nil, &InvalidSelectorError{Reason: "empty alternative in selector set"}
			}
			if idx, ok, err := parseSelectorIndex(alt); ok {
				if err != nil {
					return nil, err
				}
				indices = append(indices, idx)
				continue
			}
			keys = append(keys, unquoteSelectorKey(alt))
		}
		return MatchAny(keys, indices), nil
	default:
		if idx, ok, err := parseSelectorIndex(s); ok {
			if err != nil {
				return nil, err
			}
			return MatchIndex(idx), nil
		}
		return MatchKey(unquoteSelectorKey(s)), nil
	}
}

// parseSelectorIndex reports ok=true when s looks like it was meant as an
// integer index (all digits, optionally negative), so that a negative
// value can be rejected with InvalidSelectorError rather than silently
// treated as a literal key.
func parseSelectorIndex(s string) (idx int, ok bool, err error) {
	if s == "" {
		return 0, false, nil
	}
	digits := s
	if digits[0] == '-' {
		digits = digits[1:]
	}
	if digits == "" {
		return 0, false, nil
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false, nil
		}
	}
	n, convErr := strconv.Atoi(s)
	if convErr != nil {
		return 0, false, nil
	}
	if n < 0 {
		return 0, true, &InvalidSelectorError{Reason: "negative array index: " + s}
	}
	return n, true, nil
}

func unquoteSelectorKey(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return unquoted
		}
	}
	return s
}

package jsonstream

import (
	"strconv"
	"strings"
)

// SegmentKind discriminates the two kinds of path segment: an object
// property key or an array index.
type SegmentKind int8

const (
	KeySegment SegmentKind = iota
	IndexSegment
)

// Segment is one element of a Path: either a property key or an array
// index.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

func keySeg(k string) Segment   { return Segment{Kind: KeySegment, Key: k} }
func indexSeg(i int) Segment    { return Segment{Kind: IndexSegment, Index: i} }
func (s Segment) String() string {
	if s.Kind == KeySegment {
		return strconv.Quote(s.Key)
	}
	return strconv.Itoa(s.Index)
}

// Path is an ordered sequence of segments locating a token within the
// nesting hierarchy of a document. The empty path denotes the root.
type Path []Segment

func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, s := range p {
		if s.Kind == KeySegment {
			b.WriteByte('.')
			b.WriteString(s.Key)
		} else {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// Clone returns an independent copy, safe to retain after the token that
// carried it is reused or mutated upstream.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Equal reports whether p and other denote the same sequence of segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a (non-strict) prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// TrimPrefix returns p with the leading prefix segments removed. It panics
// if prefix is not actually a prefix of p; callers (PathStreamSplitter) are
// expected to have already checked with HasPrefix.
func (p Path) TrimPrefix(prefix Path) Path {
	if !p.HasPrefix(prefix) {
		panic("jsonstream: TrimPrefix: prefix does not match path")
	}
	return p[len(prefix):]
}

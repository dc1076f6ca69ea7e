package jsonstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectorLiteralAndWildcard(t *testing.T) {
	sel, err := ParseSelector("results.*")
	require.NoError(t, err)
	assert.True(t, sel.Matches(Path{keySeg("results"), indexSeg(0)}))
	assert.True(t, sel.Matches(Path{keySeg("results"), keySeg("anything")}))
	assert.False(t, sel.Matches(Path{keySeg("other"), indexSeg(0)}))
	assert.False(t, sel.Matches(Path{keySeg("results")}))
}

func TestParseSelectorIndex(t *testing.T) {
	sel, err := ParseSelector("items.2")
	require.NoError(t, err)
	assert.True(t, sel.Matches(Path{keySeg("items"), indexSeg(2)}))
	assert.False(t, sel.Matches(Path{keySeg("items"), indexSeg(3)}))
	assert.False(t, sel.Matches(Path{keySeg("items"), keySeg("2")}))
}

func TestParseSelectorAlternation(t *testing.T) {
	sel, err := ParseSelector("{a,b,3}")
	require.NoError(t, err)
	assert.True(t, sel.Matches(Path{keySeg("a")}))
	assert.True(t, sel.Matches(Path{keySeg("b")}))
	assert.True(t, sel.Matches(Path{indexSeg(3)}))
	assert.False(t, sel.Matches(Path{keySeg("c")}))
}

func TestParseSelectorEmptyStringMatchesOnlyRoot(t *testing.T) {
	sel, err := ParseSelector("")
	require.NoError(t, err)
	assert.True(t, sel.Matches(Path{}))
	assert.False(t, sel.Matches(Path{keySeg("a")}))
}

func TestParseSelectorRejectsNegativeIndex(t *testing.T) {
	_, err := ParseSelector("items.-1")
	require.Error(t, err)
	var ise *InvalidSelectorError
	require.ErrorAs(t, err, &ise)
}

func TestParseSelectorRejectsUnbalancedBraces(t *testing.T) {
	_, err := ParseSelector("{a,b")
	require.Error(t, err)
}

func TestSelectorOrCombinesPatterns(t *testing.T) {
	a, _ := ParseSelector("a")
	b, _ := ParseSelector("b")
	combined := a.Or(b)
	assert.True(t, combined.Matches(Path{keySeg("a")}))
	assert.True(t, combined.Matches(Path{keySeg("b")}))
	assert.False(t, combined.Matches(Path{keySeg("c")}))
}

func TestMatchAnySegmentMatcher(t *testing.T) {
	m := MatchAny([]string{"x", "y"}, []int{2, 4})
	assert.True(t, m(keySeg("x")))
	assert.True(t, m(indexSeg(4)))
	assert.False(t, m(keySeg("z")))
	assert.False(t, m(indexSeg(3)))
}

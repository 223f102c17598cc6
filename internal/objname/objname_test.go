package objname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTripCanonical(t *testing.T) {
	n, err := Parse("java.lang:type=Memory")
	require.NoError(t, err)
	assert.Equal(t, "java.lang", n.Domain)
	assert.False(t, n.Pattern)

	reparsed, err := Parse(n.Canonical())
	require.NoError(t, err)
	assert.True(t, n.Equal(reparsed))
}

func TestCanonicalSortsProperties(t *testing.T) {
	n, err := Parse("d:b=2,a=1")
	require.NoError(t, err)
	assert.Equal(t, "d:a=1,b=2", n.Canonical())
	assert.Equal(t, "d:b=2,a=1", n.Literal())
}

func TestEqualityUsesCanonicalForm(t *testing.T) {
	a, _ := Parse("d:a=1,b=2")
	b, _ := Parse("d:b=2,a=1")
	assert.True(t, a.Equal(b))
}

func TestInvalidNonPatternNameRequiresProperty(t *testing.T) {
	_, err := Parse("d:")
	assert.Error(t, err)
}

func TestMissingDomainIsInvalid(t *testing.T) {
	_, err := Parse(":a=1")
	assert.Error(t, err)
}

func TestPatternDetection(t *testing.T) {
	n, err := Parse("java.lang:type=*")
	require.NoError(t, err)
	assert.True(t, n.Pattern)
}

func TestPatternMatching(t *testing.T) {
	pattern, _ := Parse("java.lang:type=*")
	memory, _ := Parse("java.lang:type=Memory")
	threading, _ := Parse("java.lang:type=Threading")
	other, _ := Parse("other.domain:type=Memory")

	assert.True(t, memory.Matches(pattern))
	assert.True(t, threading.Matches(pattern))
	assert.False(t, other.Matches(pattern))
}

func TestPatternMatchingMissingPropertyNeverMatches(t *testing.T) {
	pattern, _ := Parse("d:a=*,b=1")
	concrete, _ := Parse("d:a=x")
	assert.False(t, concrete.Matches(pattern))
}

func TestEscapedPropertyValue(t *testing.T) {
	n, err := Parse(`d:path=a!/b`)
	require.NoError(t, err)
	assert.Equal(t, "a/b", n.Properties[0].Value)
}

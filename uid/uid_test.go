package uid

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestIDTextRoundTrip(t *testing.T) {
	id := New()

	text, err := id.MarshalText()
	assert.NilError(t, err)

	parsed, err := Parse(text)
	assert.NilError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not!base58"))
	assert.ErrorContains(t, err, "invalid id")
}

func TestNewIsOrdered(t *testing.T) {
	a := New()
	b := New()
	assert.Assert(t, b > a, "ids must be monotonic within a node")
}

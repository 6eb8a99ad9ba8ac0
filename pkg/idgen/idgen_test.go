package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsUnique(t *testing.T) {
	a := New()
	b := New()
	assert.NotEqual(t, a, b)
}

func TestParseRoundTrip(t *testing.T) {
	id := New()
	parsed, err := Parse(id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-uuid")
	assert.Error(t, err)
}

func TestEngineNameMatchesString(t *testing.T) {
	id := New()
	assert.Equal(t, id.String(), EngineName(id))
}

func TestFTPUsernameIsDeterministicAndShort(t *testing.T) {
	id := New()
	a := FTPUsername(id)
	b := FTPUsername(id)
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)
}

func TestFTPUsernameDiffersAcrossIDs(t *testing.T) {
	a := FTPUsername(New())
	b := FTPUsername(New())
	assert.NotEqual(t, a, b)
}

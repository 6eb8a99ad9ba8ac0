package credentials

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripVerifiesAfterSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ftp_credentials.json")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SetPassword("container-1", "00000000", "hunter2"))

	reloaded, err := New(path)
	require.NoError(t, err)

	cid, ok := reloaded.Verify("00000000", "hunter2")
	assert.True(t, ok)
	assert.Equal(t, "container-1", cid)

	_, ok = reloaded.Verify("00000000", "wrong")
	assert.False(t, ok)
}

func TestSetPasswordIsIdempotentPerContainer(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "ftp_credentials.json"))
	require.NoError(t, err)

	require.NoError(t, s.SetPassword("container-1", "00000000", "first"))
	require.NoError(t, s.SetPassword("container-1", "00000000", "second"))

	_, ok := s.Verify("00000000", "first")
	assert.False(t, ok)
	_, ok = s.Verify("00000000", "second")
	assert.True(t, ok)
}

func TestRemoveDeletesCredential(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "ftp_credentials.json"))
	require.NoError(t, err)

	require.NoError(t, s.SetPassword("container-1", "00000000", "pw"))
	require.NoError(t, s.Remove("container-1"))

	_, ok := s.Verify("00000000", "pw")
	assert.False(t, ok)
}

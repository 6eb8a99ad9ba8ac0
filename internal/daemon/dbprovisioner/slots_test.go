package dbprovisioner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextKeyValueSlotPicksLowestUnused(t *testing.T) {
	used := map[int]bool{0: true, 1: true, 3: true}
	slot, err := NextKeyValueSlot(used)
	require.NoError(t, err)
	assert.Equal(t, 2, slot)
}

func TestNextKeyValueSlotRefusesWhenExhausted(t *testing.T) {
	used := map[int]bool{}
	for i := 0; i < keyValueMaxSlot; i++ {
		used[i] = true
	}
	_, err := NextKeyValueSlot(used)
	assert.Error(t, err)
}

func TestEnsureRedisACLSeedWritesExpectedContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ensureRedisACLSeed(dir, "s3cret"))

	b, err := os.ReadFile(filepath.Join(dir, "users.acl"))
	require.NoError(t, err)
	assert.Equal(t, "user default off\nuser admin on >s3cret ~* +@all\n", string(b))
}

func TestEnsureRedisACLSeedIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ensureRedisACLSeed(dir, "first"))
	require.NoError(t, ensureRedisACLSeed(dir, "second"))

	b, err := os.ReadFile(filepath.Join(dir, "users.acl"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "first")
}

package state

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAcrossNContainers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon-state.json")

	s, err := New(path)
	require.NoError(t, err)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		c := &Container{
			ID:     uuid.New(),
			Name:   "container",
			Image:  "alpine:latest",
			Status: StatusStopped,
			Resources: Resources{
				MemoryMiB: 128,
				CPU:       0.5,
			},
		}
		ids = append(ids, c.ID)
		require.NoError(t, s.Put(c))
	}

	reloaded, err := New(path)
	require.NoError(t, err)

	for _, id := range ids {
		original, ok := s.Get(id)
		require.True(t, ok)
		roundTripped, ok := reloaded.Get(id)
		require.True(t, ok)
		assert.Equal(t, original, roundTripped)
	}
}

func TestMissingFileYieldsEmptyStore(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "does-not-exist.json"))
	require.NoError(t, err)
	assert.Empty(t, s.List())
}

func TestDeleteRemovesAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon-state.json")
	s, err := New(path)
	require.NoError(t, err)

	c := &Container{ID: uuid.New(), Name: "x", Status: StatusStopped}
	require.NoError(t, s.Put(c))
	require.NoError(t, s.Delete(c.ID))

	reloaded, err := New(path)
	require.NoError(t, err)
	assert.Empty(t, reloaded.List())
}

package ftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveJoinsUnderHome(t *testing.T) {
	j := &Jail{Home: "/data/raptor/volumes/00000000"}
	assert.Equal(t, "/data/raptor/volumes/00000000/foo/bar.txt", j.Resolve("/foo/bar.txt"))
}

func TestResolveTrimsOnlyLeadingSlashes(t *testing.T) {
	j := &Jail{Home: "/data/raptor/volumes/00000000"}
	assert.Equal(t, "/data/raptor/volumes/00000000/foo", j.Resolve("foo"))
}

// Per spec.md §8 invariant 11, ".." segments are preserved lexically: this
// documents the known escape, it does not assert containment.
func TestResolveDoesNotStripDotDotSegments(t *testing.T) {
	j := &Jail{Home: "/data/raptor/volumes/00000000"}
	resolved := j.Resolve("/../../../etc/passwd")
	assert.Equal(t, "/data/etc/passwd", resolved)
}

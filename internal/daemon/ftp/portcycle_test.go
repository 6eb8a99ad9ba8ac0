package ftp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortCycleStaysWithinRangeAndWraps(t *testing.T) {
	p := newPortCycle(50000, 50002)
	assert.Equal(t, 50000, p.next())
	assert.Equal(t, 50001, p.next())
	assert.Equal(t, 50002, p.next())
	assert.Equal(t, 50000, p.next())
}

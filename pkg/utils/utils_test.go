package utils

import (
	"errors"
	"io"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestColoredString(t *testing.T) {
	assert.Equal(t, "hello", ColoredString("hello", color.FgWhite))
	assert.NotEqual(t, "hello", ColoredString("hello", color.FgRed))
}

func TestDecolorise(t *testing.T) {
	coloured := ColoredString("hello", color.FgRed)
	assert.Equal(t, "hello", Decolorise(coloured))
}

func TestNormalizeLinefeeds(t *testing.T) {
	type scenario struct {
		input    string
		expected string
	}

	scenarios := []scenario{
		{"asdf\r\n", "asdf\n"},
		{"asdf\r\nasdf", "asdf\nasdf"},
		{"asdf\r", "asdf"},
		{"asdf\n", "asdf\n"},
	}

	for _, s := range scenarios {
		assert.Equal(t, s.expected, NormalizeLinefeeds(s.input))
	}
}

type fakeCloser struct {
	err error
}

func (f fakeCloser) Close() error { return f.err }

func TestCloseManyNoErrors(t *testing.T) {
	closers := []io.Closer{fakeCloser{}, fakeCloser{}}
	assert.NoError(t, CloseMany(closers))
}

func TestCloseManyCollectsAllErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	closers := []io.Closer{fakeCloser{err: errA}, fakeCloser{}, fakeCloser{err: errB}}

	err := CloseMany(closers)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")
}

package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err      *Error
		expected int
	}{
		{NotFound("missing"), http.StatusNotFound},
		{Unauthorized("nope"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{BadRequest("bad"), http.StatusBadRequest},
		{AgentError("agent down", nil), http.StatusBadGateway},
		{Database("query failed", nil), http.StatusInternalServerError},
		{Internal("boom", nil), http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, c.err.HTTPStatus())
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Database("failed to load user", cause)
	assert.Contains(t, err.Error(), "failed to load user")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsFindsWrappedError(t *testing.T) {
	inner := NotFound("container not found")
	wrapped := fmt.Errorf("while loading: %w", inner)

	found, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, found.Kind)
}

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		assert.Equal(t, KindValidation, KindOf(Validation("bad")))
	})

	t.Run("wrapped error", func(t *testing.T) {
		err := fmt.Errorf("publish: %w", Protocol("create", "no version id"))
		assert.Equal(t, KindProtocol, KindOf(err))
		assert.True(t, IsKind(err, KindProtocol))
	})

	t.Run("plain error has no kind", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
		assert.False(t, IsKind(nil, KindProvider))
	})
}

func TestProviderUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Provider("upload", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upload")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", Validation("x"), http.StatusBadRequest},
		{"not found", NotFound("x"), http.StatusNotFound},
		{"provider", Provider("op", errors.New("x")), http.StatusBadGateway},
		{"protocol", Protocol("op", "x"), http.StatusBadGateway},
		{"configuration", Configuration("x"), http.StatusInternalServerError},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HTTPStatus(tc.err))
		})
	}
}

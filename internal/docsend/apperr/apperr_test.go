package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *apperr.Error
		want int
	}{
		{apperr.Validation("bad", nil), http.StatusBadRequest},
		{apperr.Auth("nope"), http.StatusUnauthorized},
		{apperr.NotFound("document"), http.StatusNotFound},
		{apperr.Conflict(apperr.CodeStaleDocument, "stale"), http.StatusConflict},
		{apperr.RateLimit("", 10), http.StatusTooManyRequests},
		{apperr.NotConfigured("mail transport", nil), http.StatusNotImplemented},
		{apperr.Upstream("render", errors.New("x")), http.StatusInternalServerError},
		{apperr.Internal(errors.New("x")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Kind.String(), func(t *testing.T) {
			require.Equal(t, tc.want, tc.err.HTTPStatus())
		})
	}
}

func TestAs(t *testing.T) {
	t.Run("unwraps wrapped errors", func(t *testing.T) {
		base := apperr.Conflict(apperr.CodeDocumentLocked, "locked")
		got := apperr.As(fmt.Errorf("update: %w", base))
		require.Same(t, base, got)
		require.True(t, apperr.IsKind(got, apperr.KindConflict))
	})

	t.Run("plain errors become internal", func(t *testing.T) {
		cause := errors.New("disk on fire")
		got := apperr.As(cause)
		require.Equal(t, apperr.KindInternal, got.Kind)
		require.ErrorIs(t, got, cause)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		require.Nil(t, apperr.As(nil))
	})
}

func TestRateLimitRetryIsPositive(t *testing.T) {
	require.Equal(t, 1, apperr.RateLimit(apperr.CodeCooldown, 0).RetryAfterSeconds)
	require.Equal(t, apperr.CodeCooldown, apperr.RateLimit(apperr.CodeCooldown, 0).Code)
}

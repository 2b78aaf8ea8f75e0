package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsend/pkg/httpx"
	"github.com/aussiebroadwan/docsend/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("k", 32)

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"missing":     {"", "", false},
		"basic":       {"Basic abc", "", false},
		"lowercase":   {"bearer abc", "abc", true},
		"empty":       {"Bearer   ", "", false},
		"well formed": {"Bearer abc.def.ghi", "abc.def.ghi", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			got, ok := httpx.BearerToken(req)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAuthnMiddleware(t *testing.T) {
	v, err := jwtx.NewHS256Verifier(secret, jwtx.VerifyOptions{Issuer: "accounts"})
	require.NoError(t, err)
	signer, err := jwtx.NewHS256Signer(secret)
	require.NoError(t, err)

	var seen string
	h := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = httpx.UserIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
		httpx.AuthnMiddleware(v),
		httpx.RequireScope("documents:send"),
	)

	t.Run("valid token", func(t *testing.T) {
		tok, err := signer.Sign(jwtx.NewAccessClaims("owner-1", "", nil, time.Minute, "accounts", nil, time.Now()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "owner-1", seen)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("insufficient scope", func(t *testing.T) {
		tok, err := signer.Sign(jwtx.NewAccessClaims("owner-1", "", []string{"documents:read"}, time.Minute, "accounts", nil, time.Now()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsend/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestHS256RoundTrip(t *testing.T) {
	now := time.Now().UTC()
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)

	verifier, err := jwtx.NewHS256Verifier(testSecret, jwtx.VerifyOptions{
		Issuer:   "accounts",
		Audience: []string{"docsend"},
	})
	require.NoError(t, err)

	token, err := signer.Sign(jwtx.NewAccessClaims("owner-1", "a@example.com", nil, time.Minute, "accounts", []string{"docsend"}, now))
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "owner-1", claims.Subject)
	require.Equal(t, "a@example.com", claims.Email)

	t.Run("wrong issuer", func(t *testing.T) {
		tok, err := signer.Sign(jwtx.NewAccessClaims("owner-1", "", nil, time.Minute, "other", []string{"docsend"}, now))
		require.NoError(t, err)
		_, err = verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := signer.Sign(jwtx.NewAccessClaims("owner-1", "", nil, time.Minute, "accounts", []string{"docsend"}, now.Add(-time.Hour)))
		require.NoError(t, err)
		_, err = verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("missing subject", func(t *testing.T) {
		tok, err := signer.Sign(jwtx.NewAccessClaims("", "", nil, time.Minute, "accounts", []string{"docsend"}, now))
		require.NoError(t, err)
		_, err = verifier.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("tampered signature", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		other, err := jwtx.NewHS256Signer(strings.Repeat("z", 32))
		require.NoError(t, err)
		forged, err := other.Sign(claims)
		require.NoError(t, err)

		_, err = verifier.Verify(parts[0] + "." + parts[1] + "." + strings.Split(forged, ".")[2])
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("unsigned token", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = verifier.Verify(tok)
		require.Error(t, err)
	})
}

func TestNewHS256_RejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewHS256Verifier("short", jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrNoSecret)

	_, err = jwtx.NewHS256Signer("")
	require.ErrorIs(t, err, jwtx.ErrNoSecret)
}

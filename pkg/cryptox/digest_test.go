package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigestJSON_KeyOrderInvariant(t *testing.T) {
	a := `{"number":"INV-1","lineItems":[{"description":"Design","quantity":2,"unitPrice":50}],"taxRate":19}`
	b := `{"taxRate":19,"lineItems":[{"unitPrice":50,"quantity":2,"description":"Design"}],"number":"INV-1"}`

	da, err := DigestJSON([]byte(a))
	require.NoError(t, err)
	db, err := DigestJSON([]byte(b))
	require.NoError(t, err)

	require.Equal(t, da, db)
	require.Len(t, da, 64)
}

func TestDigestJSON_LeafSensitive(t *testing.T) {
	base := `{"a":{"b":[1,2,3]},"c":"x"}`
	variants := []string{
		`{"a":{"b":[1,2,4]},"c":"x"}`,
		`{"a":{"b":[1,2,3]},"c":"y"}`,
		`{"a":{"b":[3,2,1]},"c":"x"}`,
		`{"a":{"b":[1,2,3]},"c":null}`,
		`{"a":{"b":[1,2,3]}}`,
	}

	want, err := DigestJSON([]byte(base))
	require.NoError(t, err)

	for _, v := range variants {
		got, err := DigestJSON([]byte(v))
		require.NoError(t, err)
		require.NotEqual(t, want, got, v)
	}
}

func TestDigestJSON_NumberNormalisation(t *testing.T) {
	a, err := DigestJSON([]byte(`{"q":1}`))
	require.NoError(t, err)
	b, err := DigestJSON([]byte(`{"q":1.0}`))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDigest_StructMatchesJSON(t *testing.T) {
	type item struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
	}
	v := map[string]any{"items": []item{{Description: "x", Quantity: 2}}}

	fromValue, err := Digest(v)
	require.NoError(t, err)
	fromJSON, err := DigestJSON([]byte(`{"items":[{"quantity":2,"description":"x"}]}`))
	require.NoError(t, err)
	require.Equal(t, fromJSON, fromValue)
}

func TestDigestJSON_RejectsInvalid(t *testing.T) {
	for _, raw := range []string{``, `{`, `{"a":1} {"b":2}`} {
		_, err := DigestJSON([]byte(raw))
		require.ErrorIs(t, err, ErrDigestInput, raw)
	}
}

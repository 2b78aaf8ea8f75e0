package docsendsdk

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/docsend/pkg/jwtx"
)

// Scopes understood by the service.
const (
	ScopeRead  = "documents:read"
	ScopeWrite = "documents:write"
)

// Session makes authenticated calls with a bearer token issued by the
// identity provider. docsend never mints tokens, so there is no refresh.
type Session struct {
	client *SDKClient
	token  string

	subject   string
	scopes    []string
	expiresAt time.Time
	parsed    bool
}

// NewSession wraps an access token. The token is decoded without
// verification only to learn its scopes and expiry; the service does the
// real check.
func (c *SDKClient) NewSession(accessToken string) *Session {
	s := &Session{client: c, token: accessToken}

	var claims jwtx.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err == nil {
		s.parsed = true
		s.subject = claims.Subject
		s.scopes = claims.Scopes
		if claims.ExpiresAt != nil {
			s.expiresAt = claims.ExpiresAt.Time
		}
	}
	return s
}

// AccessToken returns the raw bearer token.
func (s *Session) AccessToken() string { return s.token }

// Subject returns the token's sub claim, empty if it could not be decoded.
func (s *Session) Subject() string { return s.subject }

// Scopes returns the token's scopes.
func (s *Session) Scopes() []string { return slices.Clone(s.scopes) }

// ExpiresAt returns the token expiry, zero if unknown.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// IsExpired reports whether the token is past its expiry.
func (s *Session) IsExpired() bool {
	return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt)
}

// HasScope reports whether the token carries scope. A token without a
// scopes claim is unrestricted.
func (s *Session) HasScope(scope string) bool {
	if !s.parsed || len(s.scopes) == 0 {
		return true
	}
	return slices.Contains(s.scopes, scope)
}

func (s *Session) requireScope(scope string) error {
	if !s.client.CheckScopes || s.HasScope(scope) {
		return nil
	}
	return ErrMissingScope
}

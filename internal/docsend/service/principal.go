package service

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/pkg/jwtx"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

// Principal is the authenticated caller.
type Principal struct {
	OwnerID string
	Email   string
}

type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, credential string) (Principal, error)
}

// TokenPrincipals resolves bearer tokens issued by the account service.
type TokenPrincipals struct {
	Verifier jwtx.Verifier
	// Scope, when set, must be granted by the token.
	Scope string
}

func (p TokenPrincipals) ResolvePrincipal(ctx context.Context, credential string) (Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Principal{}, apperr.Auth("missing credential")
	}
	claims, err := p.Verifier.Verify(credential)
	if err != nil {
		slogx.FromContext(ctx).Warn("credential rejected", "err", err)
		return Principal{}, apperr.Auth("invalid credential")
	}
	if p.Scope != "" && !claims.HasScope(p.Scope) {
		return Principal{}, apperr.Auth("credential lacks scope " + p.Scope)
	}
	return Principal{OwnerID: claims.Subject, Email: claims.Email}, nil
}

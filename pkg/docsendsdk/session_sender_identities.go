package docsendsdk

import (
	"context"
	"net/http"
	"net/url"
)

// CreateSenderIdentity registers an address and mails a verification link.
// Registering an address that is already verified returns it unchanged.
func (s *Session) CreateSenderIdentity(ctx context.Context, req CreateSenderIdentityRequest) (*SenderIdentity, error) {
	if err := s.requireScope(ScopeWrite); err != nil {
		return nil, err
	}
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/sender-identities", s.token, req, nil)
	if err != nil {
		return nil, err
	}

	// 201 for a new or pending identity, 200 when already verified.
	expected := http.StatusCreated
	if resp.StatusCode == http.StatusOK {
		expected = http.StatusOK
	}
	var out SenderIdentity
	if err := decodeData(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSenderIdentities returns the caller's identities.
func (s *Session) ListSenderIdentities(ctx context.Context) ([]SenderIdentity, error) {
	if err := s.requireScope(ScopeRead); err != nil {
		return nil, err
	}
	resp, err := s.client.doRequest(ctx, http.MethodGet, "/v1/sender-identities", s.token, nil, nil)
	if err != nil {
		return nil, err
	}

	var out []SenderIdentity
	if err := decodeData(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

// ResendVerification mails a fresh link. Calls inside the cooldown fail
// with CodeCooldown.
func (s *Session) ResendVerification(ctx context.Context, id string) (*SenderIdentity, error) {
	return s.identityAction(ctx, id, "resend")
}

// DisableSenderIdentity stops an identity from being used for sending.
func (s *Session) DisableSenderIdentity(ctx context.Context, id string) (*SenderIdentity, error) {
	return s.identityAction(ctx, id, "disable")
}

func (s *Session) identityAction(ctx context.Context, id, action string) (*SenderIdentity, error) {
	if err := s.requireScope(ScopeWrite); err != nil {
		return nil, err
	}
	path := "/v1/sender-identities/" + url.PathEscape(id) + "/" + action
	resp, err := s.client.doRequest(ctx, http.MethodPost, path, s.token, nil, nil)
	if err != nil {
		return nil, err
	}

	var out SenderIdentity
	if err := decodeData(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

package docsendsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Verification outcomes carried by the redirect.
const (
	OutcomeInvalid = "invalid"
	OutcomeUsed    = "used"
	OutcomeExpired = "expired"
	OutcomeLimit   = "limit"
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// VerifyResult is where a redeemed link sent the browser.
type VerifyResult struct {
	Outcome  string
	Location string
}

// RedeemVerification follows a mailed verification link for token and
// reports the outcome the service redirected to.
func (c *SDKClient) RedeemVerification(ctx context.Context, token string) (*VerifyResult, error) {
	path := "/v1/sender-identities/verify?token=" + url.QueryEscape(token)
	resp, err := c.doRequest(ctx, http.MethodGet, path, "", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return nil, fmt.Errorf("docsendsdk: expected redirect, got HTTP %d", resp.StatusCode)
	}

	loc := resp.Header.Get("Location")
	u, err := url.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("docsendsdk: bad redirect %q: %w", loc, err)
	}
	return &VerifyResult{Outcome: u.Query().Get("verification"), Location: loc}, nil
}

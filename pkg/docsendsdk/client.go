package docsendsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the docsend service. It covers the public
// endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckScopes makes Sessions refuse calls their token cannot make before
	// any request is sent. Disable it to exercise server-side checks.
	// Default: true
	CheckScopes bool
}

// NewSDKClient creates a client with scope checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			// Verification links answer with a redirect the caller inspects.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		CheckScopes: true,
	}
}

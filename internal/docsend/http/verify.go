package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/pkg/httpx"
	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

// VerifyHandler redeems a mailed verification link and redirects the
// browser to a status page keyed by the outcome.
type VerifyHandler struct {
	SenderIdentityService *service.SenderIdentityService
	Limiter               ratelimit.Checker
	// RedirectBase receives ?verification=<outcome>.
	RedirectBase string
}

// ServeHTTP
//
//	@Summary		Redeem a verification link
//	@Description	Public. Always answers with a redirect to RedirectBase?verification=<outcome>, where outcome is one of invalid, used, expired, limit, success, error.
//	@Tags			Sender identities
//	@Param			token	query	string	true	"One-time secret from the mail"
//	@Success		302
//	@Router			/v1/sender-identities/verify [get].
func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The secret is in the URL; keep it out of caches and referrers.
	httpx.NoCache(w)
	w.Header().Set("Referrer-Policy", "no-referrer")

	if h.Limiter != nil {
		d, err := h.Limiter.Check(ctx, ScopeVerifyIP, httpx.IPKeyExtractor(r))
		switch {
		case err != nil:
			slogx.FromContext(ctx).Error("verify rate limit check failed, allowing request", "err", err)
		case !d.Allowed:
			slogx.FromContext(ctx).Warn("verify rate limited", "retry_after", d.RetryAfterSeconds)
			w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds))
			h.redirect(w, r, domain.OutcomeError)
			return
		}
	}

	res := h.SenderIdentityService.Verify(ctx, r.URL.Query().Get("token"))
	h.redirect(w, r, res.Outcome)
}

func (h *VerifyHandler) redirect(w http.ResponseWriter, r *http.Request, outcome domain.VerifyOutcome) {
	http.Redirect(w, r, RedirectTarget(h.RedirectBase, outcome), http.StatusFound)
}

// RedirectTarget appends the outcome to base, keeping any query it has.
func RedirectTarget(base string, outcome domain.VerifyOutcome) string {
	if base == "" {
		base = "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "/?verification=" + url.QueryEscape(string(outcome))
	}
	q := u.Query()
	q.Set("verification", string(outcome))
	u.RawQuery = q.Encode()
	return u.String()
}

package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/docsend/api/docsend" // Swagger docs
	"github.com/aussiebroadwan/docsend/internal/docsend/metrics"
	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/pkg/httpx"
	"github.com/aussiebroadwan/docsend/pkg/jwtx"
	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

// Rate limit scopes enforced at the HTTP layer. The send pipeline checks
// its own scopes.
const (
	ScopeAPIUser    = "api:user"
	ScopePublicIP   = "public:ip"
	ScopeVerifyIP   = "verify:ip"
	ScopeIdentityIP = "identity:ip"
)

// ReadScope and WriteScope are the token scopes the authenticated routes
// require. Tokens without scopes are full-access.
const (
	ReadScope  = "documents:read"
	WriteScope = "documents:write"
)

// Pinger is an optional readiness dependency such as the Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	limiter      ratelimit.Checker
	guard        ratelimit.Checker
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Metrics *metrics.Metrics
	// Cache is pinged by /readyz when set.
	Cache Pinger
	// VerifyRedirectBase receives ?verification=<outcome> after a link
	// is redeemed.
	VerifyRedirectBase string

	SendService           *service.SendService
	DocumentService       *service.DocumentService
	SenderIdentityService *service.SenderIdentityService
	AuditTrail            *service.AuditTrail
}

// NewRouter builds a router. limiter serves the fixed-window scopes; guard
// is the sliding-log limiter for verification mail requests.
func NewRouter(
	verifier jwtx.Verifier,
	limiter, guard ratelimit.Checker,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		limiter:      limiter,
		guard:        guard,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSend()
	r.registerDocuments()
	r.registerSenderIdentities()
	r.registerAudit()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			docsend API
//	@version		0.1.0
//	@description	Document send and sender verification pipeline for invoices and offers.
//	@description
//	@description				Every JSON response is an envelope: {"ok":true,"data":...} or {"ok":false,"error":{"code","message","retryAfterSeconds"}}.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/docsend
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Metrics sits next to the mux so it sees the matched pattern.
	httpx.Chain(r.Metrics.Middleware(r.Mux), r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authed(h http.Handler, scope string) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireScope(scope),
		httpx.RateLimitByUser(r.limiter, ScopeAPIUser),
	)
}

func (r *Router) registerSend() {
	h := &SendHandler{SendService: r.SendService}

	// Authentication and both send budgets are handled inside the pipeline
	// so every rejection uses the same envelope and ordering.
	r.Mux.Handle("POST /v1/documents/send", h)
}

func (r *Router) registerDocuments() {
	h := &DocumentsHandler{DocumentService: r.DocumentService}

	r.Mux.Handle("GET /v1/documents/{type}/{id}", r.authed(http.HandlerFunc(h.HandleGet), ReadScope))
	r.Mux.Handle("PATCH /v1/documents/{type}/{id}", r.authed(http.HandlerFunc(h.HandlePatch), WriteScope))
	r.Mux.Handle("POST /v1/documents/{type}/{id}/finalize", r.authed(http.HandlerFunc(h.HandleFinalize), WriteScope))
	r.Mux.Handle("POST /v1/documents/{type}/{id}/mark-paid", r.authed(http.HandlerFunc(h.HandleMarkPaid), WriteScope))
	r.Mux.Handle("POST /v1/documents/{type}/{id}/cancel", r.authed(http.HandlerFunc(h.HandleCancel), WriteScope))
	r.Mux.Handle("POST /v1/documents/{type}/{id}/accept", r.authed(http.HandlerFunc(h.HandleAccept), WriteScope))
	r.Mux.Handle("POST /v1/documents/{type}/{id}/reject", r.authed(http.HandlerFunc(h.HandleReject), WriteScope))
	r.Mux.Handle("POST /v1/documents/{type}/{id}/convert", r.authed(http.HandlerFunc(h.HandleConvert), WriteScope))
}

func (r *Router) registerSenderIdentities() {
	h := &SenderIdentitiesHandler{SenderIdentityService: r.SenderIdentityService}

	// Creating and resending mail a link to an arbitrary address, so they
	// also sit behind the per-IP sliding log.
	mailing := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireScope(WriteScope),
			httpx.RateLimitByIP(r.guard, ScopeIdentityIP),
			httpx.RateLimitByUser(r.limiter, ScopeAPIUser),
		)
	}

	r.Mux.Handle("POST /v1/sender-identities", mailing(h.HandleCreate))
	r.Mux.Handle("GET /v1/sender-identities", r.authed(http.HandlerFunc(h.HandleList), ReadScope))
	r.Mux.Handle("POST /v1/sender-identities/{id}/resend", mailing(h.HandleResend))
	r.Mux.Handle("POST /v1/sender-identities/{id}/disable", r.authed(http.HandlerFunc(h.HandleDisable), WriteScope))

	// Public: the link arrives by mail and carries no credential.
	verify := &VerifyHandler{
		SenderIdentityService: r.SenderIdentityService,
		Limiter:               r.limiter,
		RedirectBase:          r.VerifyRedirectBase,
	}
	r.Mux.Handle("GET /v1/sender-identities/verify", verify)
}

func (r *Router) registerAudit() {
	h := &AuditHandler{AuditTrail: r.AuditTrail}
	r.Mux.Handle("GET /v1/audit-events", r.authed(h, ReadScope))
}

func (r *Router) registerSystem() {
	public := func(h http.Handler) http.Handler {
		return httpx.Chain(h, httpx.RateLimitByIP(r.limiter, ScopePublicIP))
	}

	r.Mux.Handle("GET /livez", public(LivezHandler(r.startTime, r.buildVersion)))
	r.Mux.Handle("GET /readyz", public(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Cache)))
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}

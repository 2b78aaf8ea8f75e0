package docsendsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/docsend/pkg/jwtx"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func mintToken(t *testing.T, scopes ...string) string {
	t.Helper()
	signer, err := jwtx.NewHS256Signer(testSecret)
	require.NoError(t, err)
	tok, err := signer.Sign(jwtx.NewAccessClaims("owner-1", "a@example.com", scopes, time.Hour, "accounts", nil, time.Now()))
	require.NoError(t, err)
	return tok
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": status < 400, "data": data})
}

func TestSession_Scopes(t *testing.T) {
	t.Parallel()

	client := NewSDKClient("http://unused.invalid")

	t.Run("token scopes are decoded", func(t *testing.T) {
		s := client.NewSession(mintToken(t, ScopeRead))
		require.Equal(t, "owner-1", s.Subject())
		require.True(t, s.HasScope(ScopeRead))
		require.False(t, s.HasScope(ScopeWrite))
		require.False(t, s.IsExpired())
	})

	t.Run("no scopes claim is unrestricted", func(t *testing.T) {
		s := client.NewSession(mintToken(t))
		require.True(t, s.HasScope(ScopeWrite))
	})

	t.Run("missing scope short-circuits", func(t *testing.T) {
		s := client.NewSession(mintToken(t, ScopeRead))
		_, err := s.Send(context.Background(), SendRequest{DocumentID: "d1"})
		require.ErrorIs(t, err, ErrMissingScope)
	})

	t.Run("opaque token is passed through", func(t *testing.T) {
		s := client.NewSession("not-a-jwt")
		require.Empty(t, s.Subject())
		require.True(t, s.HasScope(ScopeWrite))
	})
}

func TestSession_Documents(t *testing.T) {
	t.Parallel()

	var gotIfMatch, gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/documents/invoice/inv-1", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, Document{ID: "inv-1", Type: TypeInvoice, ContentDigest: "abc", Phase: "draft"})
	})
	mux.HandleFunc("PATCH /v1/documents/invoice/inv-1", func(w http.ResponseWriter, r *http.Request) {
		gotIfMatch = r.Header.Get("If-Match")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"ok":false,"error":{"code":"stale_document","message":"document changed"}}`))
	})
	mux.HandleFunc("POST /v1/documents/invoice/inv-1/mark-paid", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeEnvelope(w, http.StatusOK, Document{ID: "inv-1", PaymentDate: body["date"]})
	})
	mux.HandleFunc("POST /v1/documents/offer/off-1/convert", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusCreated, Document{ID: "inv-2", Type: TypeInvoice, SourceOfferID: "off-1"})
	})
	mux.HandleFunc("POST /v1/documents/send", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error":{"code":"rate_limited","message":"slow down"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	token := mintToken(t, ScopeRead, ScopeWrite)
	s := NewSDKClient(srv.URL + "/").NewSession(token)

	t.Run("get", func(t *testing.T) {
		doc, err := s.GetDocument(ctx, TypeInvoice, "inv-1")
		require.NoError(t, err)
		require.Equal(t, "abc", doc.ContentDigest)
		require.Equal(t, "Bearer "+token, gotAuth)
	})

	t.Run("stale update", func(t *testing.T) {
		notes := "n"
		_, err := s.UpdateDocument(ctx, TypeInvoice, "inv-1", DocumentPatch{Notes: &notes}, "abc")
		require.True(t, IsCode(err, CodeStaleDocument))
		require.Equal(t, `"abc"`, gotIfMatch)

		var ae *APIError
		require.True(t, errors.As(err, &ae))
		require.Equal(t, http.StatusConflict, ae.StatusCode)
	})

	t.Run("mark paid with date", func(t *testing.T) {
		doc, err := s.MarkPaid(ctx, "inv-1", "2026-03-20")
		require.NoError(t, err)
		require.Equal(t, "2026-03-20", doc.PaymentDate)
	})

	t.Run("convert", func(t *testing.T) {
		doc, err := s.ConvertToInvoice(ctx, "off-1")
		require.NoError(t, err)
		require.Equal(t, "off-1", doc.SourceOfferID)
	})

	t.Run("rate limited send uses Retry-After", func(t *testing.T) {
		_, err := s.Send(ctx, SendRequest{DocumentID: "inv-1", Type: TypeInvoice})
		var ae *APIError
		require.True(t, errors.As(err, &ae))
		require.Equal(t, CodeRateLimited, ae.Code)
		require.Equal(t, 120, ae.RetryAfterSeconds)
	})
}

func TestSession_SenderIdentitiesAndAudit(t *testing.T) {
	t.Parallel()

	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sender-identities", func(w http.ResponseWriter, r *http.Request) {
		var req CreateSenderIdentityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status := http.StatusCreated
		if req.Email == "known@example.com" {
			status = http.StatusOK
		}
		writeEnvelope(w, status, SenderIdentity{ID: "si-1", Email: req.Email, Status: "pending"})
	})
	mux.HandleFunc("GET /v1/sender-identities", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []SenderIdentity{{ID: "si-1", Status: "verified"}})
	})
	mux.HandleFunc("POST /v1/sender-identities/si-1/resend", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error":{"code":"cooldown","message":"wait","retryAfterSeconds":42}}`))
	})
	mux.HandleFunc("GET /v1/audit-events", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeEnvelope(w, http.StatusOK, []AuditEvent{{ID: "1", Action: "document.sent"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	s := NewSDKClient(srv.URL).NewSession(mintToken(t))

	si, err := s.CreateSenderIdentity(ctx, CreateSenderIdentityRequest{Email: "me@example.com"})
	require.NoError(t, err)
	require.Equal(t, "si-1", si.ID)

	_, err = s.CreateSenderIdentity(ctx, CreateSenderIdentityRequest{Email: "known@example.com"})
	require.NoError(t, err)

	list, err := s.ListSenderIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = s.ResendVerification(ctx, "si-1")
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, CodeCooldown, ae.Code)
	require.Equal(t, 42, ae.RetryAfterSeconds)

	events, err := s.ListAuditEvents(ctx, AuditQuery{EntityType: "document", EntityID: "inv-1", Limit: 5})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "entityId=inv-1&entityType=document&limit=5", gotQuery)
}

func TestClient_PublicEndpoints(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "degraded", Checks: map[string]string{"database": "ok", "cache": "down"}})
	})
	mux.HandleFunc("GET /v1/sender-identities/verify", func(w http.ResponseWriter, r *http.Request) {
		outcome := OutcomeInvalid
		if r.URL.Query().Get("token") == "good" {
			outcome = OutcomeSuccess
		}
		http.Redirect(w, r, "https://app.example/settings?tab=senders&verification="+outcome, http.StatusFound)
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := NewSDKClient(srv.URL)

	health, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "down", health.Checks["cache"])

	_, err = client.GetLiveness(ctx)
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, http.StatusServiceUnavailable, ae.StatusCode)

	for token, want := range map[string]string{"good": OutcomeSuccess, "bad": OutcomeInvalid} {
		res, err := client.RedeemVerification(ctx, token)
		require.NoError(t, err)
		require.Equal(t, want, res.Outcome)
		require.Contains(t, res.Location, "tab=senders")
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/lifecycle"
	"github.com/aussiebroadwan/docsend/internal/docsend/render"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/pkg/jwtx"
	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

type principalMap map[string]string

func (m principalMap) ResolvePrincipal(_ context.Context, credential string) (Principal, error) {
	owner, ok := m[credential]
	if !ok {
		return Principal{}, apperr.Auth("invalid credential")
	}
	return Principal{OwnerID: owner}, nil
}

type recordingMetrics struct {
	sends         []string
	verifications []string
}

func (m *recordingMetrics) SendFinished(docType, result string) {
	m.sends = append(m.sends, docType+":"+result)
}

func (m *recordingMetrics) VerificationFinished(outcome string) {
	m.verifications = append(m.verifications, outcome)
}

type sendFixture struct {
	svc      *SendService
	st       store.Store
	clk      *clock
	tr       *fakeTransport
	rd       *fakeRenderer
	metrics  *recordingMetrics
	identity domain.SenderIdentity
}

func newSendFixture(t *testing.T, rules map[string]ratelimit.Rule) *sendFixture {
	t.Helper()
	ctx := context.Background()

	if rules == nil {
		rules = map[string]ratelimit.Rule{
			ScopeSendIP:   {Limit: 60, Window: time.Hour},
			ScopeSendUser: {Limit: 100, Window: time.Hour},
		}
	}
	clk := newClock()
	limiter, err := ratelimit.NewFixedWindow(rules, ratelimit.WithClock(clk.Now))
	require.NoError(t, err)

	st := newTestStore(t)
	tr := &fakeTransport{}
	rd := &fakeRenderer{}
	metrics := &recordingMetrics{}
	identities := newIdentityService(st, clk, tr)

	f := &sendFixture{
		st:       st,
		clk:      clk,
		tr:       tr,
		rd:       rd,
		metrics:  metrics,
		identity: seedVerified(t, st, "owner-1", "ada@studio.test"),
	}
	require.NoError(t, st.Settings().UpsertOwnerSettings(ctx, domain.OwnerSettings{
		OwnerID:                 "owner-1",
		CompanyName:             "Ada Studio",
		EmailSignature:          "Ada Lovelace\nAda Studio",
		DefaultSenderIdentityID: f.identity.ID,
	}))
	require.NoError(t, st.Clients().CreateClient(ctx, domain.Client{
		ID: "client-1", OwnerID: "owner-1", Name: "Babbage & Co", Email: "ap@babbage.test",
	}))

	f.svc = &SendService{
		Store:      st,
		Limiter:    limiter,
		Principals: principalMap{"tok-1": "owner-1", "tok-2": "owner-2"},
		Identities: identities,
		Audit:      identities.Audit,
		Renderers:  rd.source(),
		Transports: tr.source(),
		Platform:   testPlatform,
		Metrics:    metrics,
		Now:        clk.Now,
	}
	return f
}

func (f *sendFixture) issuedInvoice(t *testing.T) domain.Document {
	return seedDocument(t, f.st, "owner-1", domain.TypeInvoice, func(d *domain.Document) {
		d.Number = "INV-2026-0001"
		d.Status = domain.StatusIssued
		d.IsLocked = true
		d.IssueDate = ptr(t0)
		d.FinalizedAt = ptr(t0)
	})
}

func sendInput(d domain.Document) SendInput {
	return SendInput{
		Credential: "tok-1",
		ClientIP:   "198.51.100.4",
		DocumentID: d.ID,
		Type:       string(d.Type),
		To:         "ap@babbage.test",
		Subject:    "Invoice " + d.Number,
		Message:    "Please find the invoice attached.",
	}
}

func TestSend_InvoiceTwice(t *testing.T) {
	ctx := context.Background()
	f := newSendFixture(t, nil)
	inv := f.issuedInvoice(t)

	res, err := f.svc.Send(ctx, sendInput(inv))
	require.NoError(t, err)
	require.Equal(t, lifecycle.PhaseSent, res.Phase)
	require.Equal(t, 1, res.SentCount)
	require.NotNil(t, res.SentAt)
	firstSentAt := *res.SentAt
	require.Equal(t, "invoice_INV-2026-0001_Babbage_Co_2026-03-02.pdf", res.Filename)

	msg := f.tr.Last(t)
	require.Equal(t, "Seeded via Ledgerly", msg.From.Name)
	require.Equal(t, testPlatform.Email, msg.From.Email)
	require.Equal(t, "ada@studio.test", msg.ReplyTo)
	require.Equal(t, []string{"ap@babbage.test"}, msg.To)
	require.True(t, strings.HasSuffix(msg.Text, "\n\n-- \nAda Lovelace\nAda Studio"))
	require.Len(t, msg.Attachments, 1)
	require.Equal(t, res.Filename, msg.Attachments[0].Filename)

	f.clk.Advance(time.Hour)
	res, err = f.svc.Send(ctx, sendInput(inv))
	require.NoError(t, err)
	require.Equal(t, 2, res.SentCount)
	require.True(t, firstSentAt.Equal(*res.SentAt))
	require.True(t, res.LastSentAt.Equal(t0.Add(time.Hour)))

	doc, err := f.st.Documents().GetDocument(ctx, "owner-1", domain.TypeInvoice, inv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSent, doc.Status)
	require.Equal(t, domain.SentViaEmail, doc.SentVia)
	require.True(t, doc.IsLocked)

	si, err := f.st.SenderIdentities().GetSenderIdentity(ctx, f.identity.ID)
	require.NoError(t, err)
	require.NotNil(t, si.LastUsedAt)

	events, err := f.svc.Audit.List(ctx, "owner-1", store.AuditFilter{EntityType: domain.EntityDocument, EntityID: inv.ID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.AuditDocumentSent, events[0].Action)
	require.Equal(t, f.identity.ID, events[0].Metadata["senderIdentityId"])

	require.Equal(t, []string{"invoice:ok", "invoice:ok"}, f.metrics.sends)
}

func TestSend_OfferDraft(t *testing.T) {
	ctx := context.Background()
	f := newSendFixture(t, nil)
	offer := seedDocument(t, f.st, "owner-1", domain.TypeOffer, func(d *domain.Document) { d.Number = "OFF-7" })

	res, err := f.svc.Send(ctx, sendInput(offer))
	require.NoError(t, err)
	require.Equal(t, lifecycle.PhaseSent, res.Phase)

	doc, err := f.st.Documents().GetDocument(ctx, "owner-1", domain.TypeOffer, offer.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSent, doc.Status)
	require.False(t, doc.IsLocked)
}

func TestSend_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, f *sendFixture) SendInput
		code  string
	}{
		{
			name: "bad recipient",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				in := sendInput(f.issuedInvoice(t))
				in.To = "nobody"
				return in
			},
			code: apperr.CodeValidation,
		},
		{
			name: "header injection in subject",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				in := sendInput(f.issuedInvoice(t))
				in.Subject = "Invoice\r\nBcc: all@example.com"
				return in
			},
			code: apperr.CodeValidation,
		},
		{
			name: "unknown type",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				in := sendInput(f.issuedInvoice(t))
				in.Type = "receipt"
				return in
			},
			code: apperr.CodeValidation,
		},
		{
			name: "legacy copy without digest",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				in := sendInput(f.issuedInvoice(t))
				in.LegacyDocument = json.RawMessage(`{"id":"` + in.DocumentID + `"}`)
				return in
			},
			code: apperr.CodeValidation,
		},
		{
			name: "bad credential",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				in := sendInput(f.issuedInvoice(t))
				in.Credential = "forged"
				return in
			},
			code: apperr.CodeUnauthorized,
		},
		{
			name: "someone else's document",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				in := sendInput(f.issuedInvoice(t))
				in.Credential = "tok-2"
				return in
			},
			code: apperr.CodeNotFound,
		},
		{
			name: "draft invoice",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				return sendInput(seedDocument(t, f.st, "owner-1", domain.TypeInvoice, nil))
			},
			code: apperr.CodeOperationNotPermitted,
		},
		{
			name: "reminder before first send",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				in := sendInput(f.issuedInvoice(t))
				in.Purpose = "reminder"
				return in
			},
			code: apperr.CodeOperationNotPermitted,
		},
		{
			name: "paid invoice",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				return sendInput(seedDocument(t, f.st, "owner-1", domain.TypeInvoice, func(d *domain.Document) {
					d.Status = domain.StatusPaid
					d.PaymentDate = ptr(t0)
				}))
			},
			code: apperr.CodeOperationNotPermitted,
		},
		{
			name: "pending sender identity",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				si, err := f.svc.Identities.Create(context.Background(), "owner-1", CreateIdentityInput{Email: "new@studio.test"}, domain.RequestMeta{})
				require.NoError(t, err)
				in := sendInput(f.issuedInvoice(t))
				in.SenderIdentityID = si.ID
				return in
			},
			code: apperr.CodeSenderNotVerified,
		},
		{
			name: "renderer not configured",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				f.svc.Renderers = func(context.Context) (render.Renderer, error) { return nil, render.ErrNotConfigured }
				return sendInput(f.issuedInvoice(t))
			},
			code: apperr.CodeNotConfigured,
		},
		{
			name: "transport not configured",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				f.svc.Transports = unconfiguredTransports
				return sendInput(f.issuedInvoice(t))
			},
			code: apperr.CodeNotConfigured,
		},
		{
			name: "render failure",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				f.rd.err = errors.New("font missing")
				return sendInput(f.issuedInvoice(t))
			},
			code: apperr.CodeUpstream,
		},
		{
			name: "relay failure",
			setup: func(t *testing.T, f *sendFixture) SendInput {
				f.tr.err = errors.New("550 mailbox unavailable")
				return sendInput(f.issuedInvoice(t))
			},
			code: apperr.CodeUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSendFixture(t, nil)
			in := tt.setup(t, f)

			_, err := f.svc.Send(ctx, in)
			requireCode(t, err, tt.code)

			// Nothing about the document moved.
			for _, typ := range []domain.DocumentType{domain.TypeInvoice, domain.TypeOffer} {
				doc, err := f.st.Documents().GetDocument(ctx, "owner-1", typ, in.DocumentID)
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				require.NoError(t, err)
				require.Zero(t, doc.SentCount)
				require.Nil(t, doc.SentAt)
			}
			events, err := f.st.AuditEvents().ListAuditEvents(ctx, "owner-1", store.AuditFilter{EntityType: domain.EntityDocument})
			require.NoError(t, err)
			require.Empty(t, events)
		})
	}
}

func TestSend_ContentDigest(t *testing.T) {
	ctx := context.Background()

	t.Run("matching digest", func(t *testing.T) {
		f := newSendFixture(t, nil)
		inv := f.issuedInvoice(t)
		digest, err := ContentDigest(&inv)
		require.NoError(t, err)

		in := sendInput(inv)
		in.ContentDigest = strings.ToUpper(digest)
		_, err = f.svc.Send(ctx, in)
		require.NoError(t, err)
	})

	t.Run("document changed since load", func(t *testing.T) {
		f := newSendFixture(t, nil)
		offer := seedDocument(t, f.st, "owner-1", domain.TypeOffer, nil)
		digest, err := ContentDigest(&offer)
		require.NoError(t, err)

		changed := offer
		changed.Notes = "Valid for 30 days."
		require.NoError(t, f.st.Documents().UpdateContent(ctx, changed))

		in := sendInput(offer)
		in.ContentDigest = digest
		_, err = f.svc.Send(ctx, in)
		requireCode(t, err, apperr.CodeStaleDocument)
		require.Empty(t, f.tr.Sent())
	})

	t.Run("legacy copy in snake case", func(t *testing.T) {
		f := newSendFixture(t, nil)
		inv := f.issuedInvoice(t)
		digest, err := ContentDigest(&inv)
		require.NoError(t, err)

		in := sendInput(inv)
		in.ContentDigest = digest
		in.LegacyDocument = json.RawMessage(`{
			"id": "` + inv.ID + `",
			"number": "INV-2026-0001",
			"client_id": "client-1",
			"tax_rate": "19",
			"currency": "EUR",
			"issue_date": "2026-03-02",
			"due_date": "2026-03-16T09:00:00Z",
			"line_items": [{"description": "Design work", "quantity": 3, "unit_price": 95, "unit": "h"}]
		}`)
		_, err = f.svc.Send(ctx, in)
		require.NoError(t, err)
	})

	t.Run("tampered legacy copy", func(t *testing.T) {
		f := newSendFixture(t, nil)
		inv := f.issuedInvoice(t)
		digest, err := ContentDigest(&inv)
		require.NoError(t, err)

		in := sendInput(inv)
		in.ContentDigest = digest
		in.LegacyDocument = json.RawMessage(`{"id":"` + inv.ID + `","number":"INV-2026-0001","clientId":"client-1","taxRate":0}`)
		_, err = f.svc.Send(ctx, in)
		requireCode(t, err, apperr.CodeStaleDocument)
	})

	t.Run("legacy copy of another document", func(t *testing.T) {
		f := newSendFixture(t, nil)
		inv := f.issuedInvoice(t)
		digest, err := ContentDigest(&inv)
		require.NoError(t, err)

		in := sendInput(inv)
		in.ContentDigest = digest
		in.LegacyDocument = json.RawMessage(`{"id":"someone-else"}`)
		_, err = f.svc.Send(ctx, in)
		requireCode(t, err, apperr.CodeValidation)
	})
}

func TestSend_RateLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("per ip", func(t *testing.T) {
		f := newSendFixture(t, nil)
		in := sendInput(f.issuedInvoice(t))
		in.Credential = "forged"

		for i := 0; i < 60; i++ {
			_, err := f.svc.Send(ctx, in)
			requireCode(t, err, apperr.CodeUnauthorized)
		}
		_, err := f.svc.Send(ctx, in)
		ae := requireCode(t, err, apperr.CodeRateLimited)
		require.Equal(t, 429, ae.HTTPStatus())
		require.Greater(t, ae.RetryAfterSeconds, 0)
		require.LessOrEqual(t, ae.RetryAfterSeconds, 3600)
	})

	t.Run("per user", func(t *testing.T) {
		f := newSendFixture(t, map[string]ratelimit.Rule{
			ScopeSendIP:   {Limit: 100, Window: time.Hour},
			ScopeSendUser: {Limit: 1, Window: time.Minute},
		})
		inv := f.issuedInvoice(t)

		_, err := f.svc.Send(ctx, sendInput(inv))
		require.NoError(t, err)

		in := sendInput(inv)
		in.ClientIP = "192.0.2.99"
		_, err = f.svc.Send(ctx, in)
		requireCode(t, err, apperr.CodeRateLimited)
		require.Len(t, f.tr.Sent(), 1)
	})
}

func TestSend_IgnoresCallerCancellation(t *testing.T) {
	f := newSendFixture(t, nil)
	inv := f.issuedInvoice(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Send(ctx, sendInput(inv))
	require.NoError(t, err)
	require.Equal(t, 1, res.SentCount)
}

func TestTokenPrincipals(t *testing.T) {
	ctx := context.Background()
	const secret = "0123456789abcdef0123456789abcdef"

	signer, err := jwtx.NewHS256Signer(secret)
	require.NoError(t, err)
	verifier, err := jwtx.NewHS256Verifier(secret, jwtx.VerifyOptions{})
	require.NoError(t, err)
	p := TokenPrincipals{Verifier: verifier, Scope: "documents:send"}

	sign := func(scopes ...string) string {
		tok, err := signer.Sign(jwtx.NewAccessClaims("owner-1", "ada@studio.test", scopes, time.Minute, "", nil, time.Now()))
		require.NoError(t, err)
		return tok
	}

	t.Run("valid token", func(t *testing.T) {
		got, err := p.ResolvePrincipal(ctx, sign("documents:send"))
		require.NoError(t, err)
		require.Equal(t, Principal{OwnerID: "owner-1", Email: "ada@studio.test"}, got)
	})

	t.Run("missing scope", func(t *testing.T) {
		_, err := p.ResolvePrincipal(ctx, sign("documents:read"))
		requireCode(t, err, apperr.CodeUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := p.ResolvePrincipal(ctx, "not.a.jwt")
		requireCode(t, err, apperr.CodeUnauthorized)
		_, err = p.ResolvePrincipal(ctx, " ")
		requireCode(t, err, apperr.CodeUnauthorized)
	})
}

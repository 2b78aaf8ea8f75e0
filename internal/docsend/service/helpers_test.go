package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/mail"
	"github.com/aussiebroadwan/docsend/internal/docsend/render"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/internal/docsend/store/drivers/sqlite"
	"github.com/aussiebroadwan/docsend/pkg/cryptox"
	"github.com/aussiebroadwan/docsend/pkg/idx"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: t0} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Sent() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mail.Message(nil), f.sent...)
}

func (f *fakeTransport) Last(t *testing.T) mail.Message {
	t.Helper()
	sent := f.Sent()
	require.NotEmpty(t, sent, "no mail was sent")
	return sent[len(sent)-1]
}

func (f *fakeTransport) source() TransportSource {
	return func(context.Context) (mail.Transport, error) { return f, nil }
}

func unconfiguredTransports(context.Context) (mail.Transport, error) {
	return nil, mail.ErrNotConfigured
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, in render.Input) (render.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return render.Artifact{}, f.err
	}
	return render.Artifact{
		Filename:    render.Filename(&in.Document, in.Client.Name, t0),
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.3 fake"),
	}, nil
}

func (f *fakeRenderer) source() RendererSource {
	return func(context.Context) (render.Renderer, error) { return f, nil }
}

// tokenFrom pulls the raw secret out of a verification mail.
func tokenFrom(t *testing.T, msg mail.Message) string {
	t.Helper()
	for _, line := range strings.Split(msg.Text, "\n") {
		if !strings.Contains(line, "token=") {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(line))
		require.NoError(t, err)
		tok := u.Query().Get("token")
		require.NotEmpty(t, tok)
		return tok
	}
	t.Fatalf("no verification link in %q", msg.Text)
	return ""
}

func hashOf(raw string) string { return cryptox.FingerprintToken(raw) }

func requireCode(t *testing.T, err error, code string) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae), "want *apperr.Error, got %T: %v", err, err)
	require.Equal(t, code, ae.Code, ae.Message)
	return ae
}

var testPlatform = Platform{
	Name:      "Ledgerly",
	Email:     "noreply@ledgerly.test",
	VerifyURL: "https://api.ledgerly.test/v1/sender-identities/verify",
}

func newIdentityService(st store.Store, clk *clock, tr *fakeTransport) *SenderIdentityService {
	return &SenderIdentityService{
		Store:      st,
		Audit:      &AuditTrail{Store: st, Now: clk.Now},
		Transports: tr.source(),
		Platform:   testPlatform,
		Now:        clk.Now,
	}
}

// seedVerified inserts an already verified identity.
func seedVerified(t *testing.T, st store.Store, owner, email string) domain.SenderIdentity {
	t.Helper()
	si := domain.SenderIdentity{
		ID:          idx.New().String(),
		OwnerID:     owner,
		Email:       email,
		DisplayName: "Seeded",
		Status:      domain.IdentityVerified,
		VerifiedAt:  ptr(t0),
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
	require.NoError(t, st.SenderIdentities().CreateSenderIdentity(context.Background(), si))
	return si
}

func seedDocument(t *testing.T, st store.Store, owner string, typ domain.DocumentType, mut func(*domain.Document)) domain.Document {
	t.Helper()
	d := domain.Document{
		ID:        idx.New().String(),
		OwnerID:   owner,
		Type:      typ,
		ClientID:  "client-1",
		LineItems: []domain.LineItem{{Description: "Design work", Quantity: 3, UnitPrice: 95, Unit: "h"}},
		TaxRate:   19,
		Currency:  "EUR",
		Status:    domain.StatusDraft,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	if typ == domain.TypeInvoice {
		d.DueDate = ptr(t0.AddDate(0, 0, 14))
	} else {
		d.ValidUntil = ptr(t0.AddDate(0, 0, 30))
	}
	if mut != nil {
		mut(&d)
	}
	require.NoError(t, st.Documents().CreateDocument(context.Background(), d))
	return d
}

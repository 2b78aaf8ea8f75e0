package lifecycle_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/lifecycle"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &t
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestInvoicePhase(t *testing.T) {
	cases := []struct {
		name string
		doc  domain.Document
		want lifecycle.Phase
	}{
		{"empty is draft", domain.Document{}, lifecycle.PhaseDraft},
		{"finalized is issued", domain.Document{FinalizedAt: at(-1)}, lifecycle.PhaseIssued},
		{"locked is issued", domain.Document{IsLocked: true}, lifecycle.PhaseIssued},
		{"explicit issued", domain.Document{Status: "Issued"}, lifecycle.PhaseIssued},
		{"sent count", domain.Document{IsLocked: true, SentCount: 1}, lifecycle.PhaseSent},
		{"sent at", domain.Document{SentAt: at(-1)}, lifecycle.PhaseSent},
		{"due earlier today is overdue", domain.Document{SentAt: at(-1), DueDate: at(0)}, lifecycle.PhaseOverdue},
		{"due later today is not overdue", domain.Document{SentAt: at(-1), DueDate: ptrTime(now.Add(time.Hour))}, lifecycle.PhaseSent},
		{"due exactly now is not overdue", domain.Document{SentAt: at(-1), DueDate: ptrTime(now)}, lifecycle.PhaseSent},
		{"past due", domain.Document{SentAt: at(-5), DueDate: at(-1)}, lifecycle.PhaseOverdue},
		{"explicit overdue", domain.Document{Status: "overdue", DueDate: at(10)}, lifecycle.PhaseOverdue},
		{"payment date beats overdue", domain.Document{PaymentDate: at(-1), DueDate: at(-3)}, lifecycle.PhasePaid},
		{"explicit paid", domain.Document{Status: "paid"}, lifecycle.PhasePaid},
		{"cancelled spelling", domain.Document{Status: "cancelled", PaymentDate: at(-1)}, lifecycle.PhaseCanceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.doc.Type = domain.TypeInvoice
			require.Equal(t, tc.want, lifecycle.PhaseOf(&tc.doc, now))
		})
	}
}

func TestOfferPhase(t *testing.T) {
	cases := []struct {
		status domain.Status
		sentAt *time.Time
		want   lifecycle.Phase
	}{
		{"", nil, lifecycle.PhaseDraft},
		{"draft", at(-1), lifecycle.PhaseSent},
		{"sent", nil, lifecycle.PhaseSent},
		{"accepted", at(-1), lifecycle.PhaseAccepted},
		{"rejected", at(-1), lifecycle.PhaseRejected},
		{"invoiced", at(-1), lifecycle.PhaseInvoiced},
	}
	for _, tc := range cases {
		t.Run(string(tc.want)+"/"+string(tc.status), func(t *testing.T) {
			d := domain.Document{Type: domain.TypeOffer, Status: tc.status, SentAt: tc.sentAt}
			require.Equal(t, tc.want, lifecycle.PhaseOf(&d, now))
		})
	}
}

func TestPhaseIsPure(t *testing.T) {
	d := domain.Document{Type: domain.TypeInvoice, Status: "sent", DueDate: at(-2), SentCount: 3}
	first := lifecycle.PhaseOf(&d, now)
	for range 100 {
		require.Equal(t, first, lifecycle.PhaseOf(&d, now))
	}
	require.Equal(t, domain.Status("sent"), d.Status)
}

func TestInvoiceCapabilities(t *testing.T) {
	t.Run("draft", func(t *testing.T) {
		c := lifecycle.CapabilitiesOf(&domain.Document{Type: domain.TypeInvoice}, now)
		require.True(t, c.CanEdit)
		require.False(t, c.CanFinalize)
		require.False(t, c.CanSend)
		require.False(t, c.CanMarkPaid)
	})

	t.Run("sent", func(t *testing.T) {
		c := lifecycle.CapabilitiesOf(&domain.Document{Type: domain.TypeInvoice, IsLocked: true, SentCount: 1}, now)
		require.Equal(t, lifecycle.Capabilities{
			CanSend:         true,
			CanSendReminder: true,
			CanMarkPaid:     true,
			CanCancel:       true,
		}, c)
	})

	t.Run("overdue", func(t *testing.T) {
		c := lifecycle.CapabilitiesOf(&domain.Document{Type: domain.TypeInvoice, IsLocked: true, DueDate: at(-1)}, now)
		require.True(t, c.CanSendDunning)
		require.False(t, c.CanSendReminder)
	})

	t.Run("due earlier the same day allows dunning", func(t *testing.T) {
		evening := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
		d := domain.Document{Type: domain.TypeInvoice, IsLocked: true, SentCount: 1, DueDate: at(0)}
		require.Equal(t, lifecycle.PhaseOverdue, lifecycle.PhaseOf(&d, evening))

		c := lifecycle.CapabilitiesOf(&d, evening)
		require.True(t, c.CanSendDunning)
		require.False(t, c.CanSendReminder)
	})

	t.Run("terminal phases allow nothing", func(t *testing.T) {
		for _, status := range []domain.Status{"paid", "canceled"} {
			c := lifecycle.CapabilitiesOf(&domain.Document{Type: domain.TypeInvoice, Status: status}, now)
			require.Equal(t, lifecycle.Capabilities{}, c)
		}
	})
}

func TestOfferCapabilities(t *testing.T) {
	draft := lifecycle.CapabilitiesOf(&domain.Document{Type: domain.TypeOffer}, now)
	require.True(t, draft.CanEdit)
	require.True(t, draft.CanSend)
	require.False(t, draft.CanAccept)

	sent := lifecycle.CapabilitiesOf(&domain.Document{Type: domain.TypeOffer, Status: "sent"}, now)
	require.True(t, sent.CanAccept)
	require.True(t, sent.CanReject)
	require.True(t, sent.CanSend)
	require.False(t, sent.CanEdit)

	accepted := lifecycle.CapabilitiesOf(&domain.Document{Type: domain.TypeOffer, Status: "accepted"}, now)
	require.Equal(t, lifecycle.Capabilities{CanConvertToInvoice: true}, accepted)
}

func TestFinalizeRequiresCompleteContent(t *testing.T) {
	d := domain.Document{Type: domain.TypeInvoice}
	require.False(t, lifecycle.CapabilitiesOf(&d, now).CanFinalize)
	require.ErrorIs(t, lifecycle.Require(&d, now, lifecycle.OpFinalize), lifecycle.ErrIncomplete)

	d.LineItems = []domain.LineItem{{Description: "Work", Quantity: 1, UnitPrice: 100}}
	d.ClientID = "client-1"
	d.DueDate = at(14)
	require.True(t, lifecycle.CapabilitiesOf(&d, now).CanFinalize)
	require.NoError(t, lifecycle.Require(&d, now, lifecycle.OpFinalize))
}

func TestCheckContentChange(t *testing.T) {
	t.Run("locked invoice", func(t *testing.T) {
		d := domain.Document{Type: domain.TypeInvoice, IsLocked: true}
		require.ErrorIs(t, lifecycle.CheckContentChange(&d, now), lifecycle.ErrLocked)
	})

	t.Run("draft invoice", func(t *testing.T) {
		d := domain.Document{Type: domain.TypeInvoice}
		require.NoError(t, lifecycle.CheckContentChange(&d, now))
	})

	t.Run("sent offer", func(t *testing.T) {
		d := domain.Document{Type: domain.TypeOffer, Status: "sent"}
		require.ErrorIs(t, lifecycle.CheckContentChange(&d, now), lifecycle.ErrNotPermitted)
	})
}

func TestRequire(t *testing.T) {
	paid := domain.Document{Type: domain.TypeInvoice, Status: "paid"}
	require.ErrorIs(t, lifecycle.Require(&paid, now, lifecycle.OpCancel), lifecycle.ErrNotPermitted)
	require.ErrorIs(t, lifecycle.Require(&paid, now, lifecycle.OpSend), lifecycle.ErrNotPermitted)

	invoice := domain.Document{Type: domain.TypeInvoice, IsLocked: true}
	require.ErrorIs(t, lifecycle.Require(&invoice, now, lifecycle.OpAccept), lifecycle.ErrNotPermitted)
	require.NoError(t, lifecycle.Require(&invoice, now, lifecycle.OpSend))
}

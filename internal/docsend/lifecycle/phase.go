// Package lifecycle derives a document's phase and the operations it
// currently permits. It performs no IO; every mutating entry point asks it
// before acting.
package lifecycle

import (
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
)

type Phase string

const (
	PhaseDraft    Phase = "draft"
	PhaseIssued   Phase = "issued"
	PhaseSent     Phase = "sent"
	PhaseOverdue  Phase = "overdue"
	PhasePaid     Phase = "paid"
	PhaseCanceled Phase = "canceled"
	PhaseAccepted Phase = "accepted"
	PhaseRejected Phase = "rejected"
	PhaseInvoiced Phase = "invoiced"
)

// PhaseOf derives the phase of d at now. The first matching rule wins.
func PhaseOf(d *domain.Document, now time.Time) Phase {
	if d.Type == domain.TypeOffer {
		return offerPhase(d)
	}
	return invoicePhase(d, now)
}

func invoicePhase(d *domain.Document, now time.Time) Phase {
	status := domain.NormalizeStatus(string(d.Status))
	switch {
	case status == domain.StatusCanceled:
		return PhaseCanceled
	case d.PaymentDate != nil || status == domain.StatusPaid:
		return PhasePaid
	case status == domain.StatusOverdue || pastDue(d.DueDate, now):
		return PhaseOverdue
	case d.SentAt != nil || d.LastSentAt != nil || d.SentCount > 0 || status == domain.StatusSent:
		return PhaseSent
	case d.FinalizedAt != nil || d.IsLocked || status == domain.StatusIssued:
		return PhaseIssued
	default:
		return PhaseDraft
	}
}

func offerPhase(d *domain.Document) Phase {
	switch domain.NormalizeStatus(string(d.Status)) {
	case domain.StatusInvoiced:
		return PhaseInvoiced
	case domain.StatusAccepted:
		return PhaseAccepted
	case domain.StatusRejected:
		return PhaseRejected
	case domain.StatusSent:
		return PhaseSent
	}
	if d.SentAt != nil || d.LastSentAt != nil {
		return PhaseSent
	}
	return PhaseDraft
}

// pastDue reports a due date strictly before now. Date-only due dates are
// stored at 00:00 UTC, so they turn overdue once that instant has passed.
func pastDue(due *time.Time, now time.Time) bool {
	return due != nil && due.Before(now)
}

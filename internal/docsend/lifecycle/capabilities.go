package lifecycle

import (
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
)

// Capabilities answers "may operation X run now" for one document.
type Capabilities struct {
	CanEdit             bool `json:"canEdit"`
	CanFinalize         bool `json:"canFinalize"`
	CanSend             bool `json:"canSend"`
	CanSendReminder     bool `json:"canSendReminder"`
	CanSendDunning      bool `json:"canSendDunning"`
	CanMarkPaid         bool `json:"canMarkPaid"`
	CanCancel           bool `json:"canCancel"`
	CanAccept           bool `json:"canAccept"`
	CanReject           bool `json:"canReject"`
	CanConvertToInvoice bool `json:"canConvertToInvoice"`
}

func CapabilitiesOf(d *domain.Document, now time.Time) Capabilities {
	phase := PhaseOf(d, now)
	if d.Type == domain.TypeOffer {
		return Capabilities{
			CanEdit:             phase == PhaseDraft && !d.IsLocked,
			CanSend:             phase == PhaseDraft || phase == PhaseSent,
			CanAccept:           phase == PhaseSent,
			CanReject:           phase == PhaseSent,
			CanConvertToInvoice: phase == PhaseAccepted,
		}
	}

	editable := phase == PhaseDraft && !d.IsLocked
	live := phase == PhaseIssued || phase == PhaseSent || phase == PhaseOverdue
	return Capabilities{
		CanEdit:         editable,
		CanFinalize:     editable && ReadyToFinalize(d) == nil,
		CanSend:         live,
		CanSendReminder: phase == PhaseSent,
		CanSendDunning:  phase == PhaseOverdue,
		CanMarkPaid:     live,
		CanCancel:       live,
	}
}

package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
)

var (
	// ErrNotPermitted reports an operation the document's phase forbids.
	ErrNotPermitted = errors.New("lifecycle: operation not permitted")
	// ErrLocked reports a content change on a locked document.
	ErrLocked = errors.New("lifecycle: document is locked")
	// ErrIncomplete reports a draft that lacks what finalizing needs.
	ErrIncomplete = errors.New("lifecycle: document incomplete")
)

type Op string

const (
	OpEdit         Op = "edit"
	OpFinalize     Op = "finalize"
	OpSend         Op = "send"
	OpSendReminder Op = "send_reminder"
	OpSendDunning  Op = "send_dunning"
	OpMarkPaid     Op = "mark_paid"
	OpCancel       Op = "cancel"
	OpAccept       Op = "accept"
	OpReject       Op = "reject"
	OpConvert      Op = "convert_to_invoice"
)

func (c Capabilities) allows(op Op) bool {
	switch op {
	case OpEdit:
		return c.CanEdit
	case OpFinalize:
		return c.CanFinalize
	case OpSend:
		return c.CanSend
	case OpSendReminder:
		return c.CanSendReminder
	case OpSendDunning:
		return c.CanSendDunning
	case OpMarkPaid:
		return c.CanMarkPaid
	case OpCancel:
		return c.CanCancel
	case OpAccept:
		return c.CanAccept
	case OpReject:
		return c.CanReject
	case OpConvert:
		return c.CanConvertToInvoice
	}
	return false
}

// Require returns nil when op may run on d at now.
func Require(d *domain.Document, now time.Time, op Op) error {
	if op == OpFinalize && d.Type == domain.TypeInvoice {
		if PhaseOf(d, now) == PhaseDraft && !d.IsLocked {
			if err := ReadyToFinalize(d); err != nil {
				return err
			}
		}
	}
	if CapabilitiesOf(d, now).allows(op) {
		return nil
	}
	return fmt.Errorf("%w: %s %s in phase %s", ErrNotPermitted, op, d.Type, PhaseOf(d, now))
}

// CheckContentChange rejects content edits on locked documents and outside
// the editable phase.
func CheckContentChange(d *domain.Document, now time.Time) error {
	if d.IsLocked {
		return fmt.Errorf("%w: %s %s", ErrLocked, d.Type, d.ID)
	}
	return Require(d, now, OpEdit)
}

// ReadyToFinalize checks the content an issued invoice must carry.
func ReadyToFinalize(d *domain.Document) error {
	var missing []string
	if len(d.LineItems) == 0 {
		missing = append(missing, "lineItems")
	}
	if strings.TrimSpace(d.ClientID) == "" {
		missing = append(missing, "clientId")
	}
	if d.DueDate == nil {
		missing = append(missing, "dueDate")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

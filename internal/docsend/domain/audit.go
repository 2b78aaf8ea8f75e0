package domain

import "time"

const (
	AuditDocumentSent      = "document.sent"
	AuditDocumentUpdated   = "document.updated"
	AuditDocumentFinalized = "document.finalized"
	AuditDocumentPaid      = "document.paid"
	AuditDocumentCanceled  = "document.canceled"
	AuditOfferAccepted     = "offer.accepted"
	AuditOfferRejected     = "offer.rejected"
	AuditOfferConverted    = "offer.converted"

	AuditIdentityRequested = "sender_identity.verification_requested"
	AuditIdentityVerified  = "sender_identity.verified"
	AuditIdentityDisabled  = "sender_identity.disabled"
)

const (
	EntityDocument       = "document"
	EntitySenderIdentity = "sender_identity"
)

// AuditEvent is append-only; the table rejects updates and deletes.
type AuditEvent struct {
	ID         string
	OwnerID    string
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]any
	CreatedAt  time.Time
}

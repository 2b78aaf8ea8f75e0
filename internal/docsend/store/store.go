package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrConflict reports a guarded update whose precondition no longer held.
	ErrConflict = errors.New("store: conflicting update")
)

// Store is the root data access interface. Every owner-scoped lookup filters
// by owner in SQL, so a row belonging to someone else is ErrNotFound.
//
// Inside WithTx only the Tx handed to fn may be used. The sqlite driver runs
// on a single connection and touching the root store there blocks forever.
type Store interface {
	Documents() Documents
	SenderIdentities() SenderIdentities
	VerificationTokens() VerificationTokens
	AuditEvents() AuditEvents
	Settings() Settings
	Clients() Clients

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// SentUpdate records a successful dispatch.
type SentUpdate struct {
	OwnerID string
	ID      string
	Type    domain.DocumentType
	At      time.Time
}

// Transition is a status-only change.
type Transition struct {
	OwnerID string
	ID      string
	Type    domain.DocumentType
	Status  domain.Status
	At      time.Time

	// PaymentDate is written when set.
	PaymentDate *time.Time
	// ConvertedInvoiceID is written when non-empty.
	ConvertedInvoiceID string
}

type Documents interface {
	// GetDocument returns the document of the given type owned by ownerID.
	GetDocument(ctx context.Context, ownerID string, typ domain.DocumentType, id string) (domain.Document, error)

	// CreateDocument inserts d. Documents normally arrive through the CRUD
	// layer; the service itself only creates invoices by converting offers.
	CreateDocument(ctx context.Context, d domain.Document) error

	// UpdateContent writes the content fields of d. Locked rows are left
	// alone and reported as ErrConflict.
	UpdateContent(ctx context.Context, d domain.Document) error

	// Finalize numbers and locks a draft invoice.
	Finalize(ctx context.Context, ownerID, id, number string, issueDate, at time.Time) error

	// Transition applies a status-only change.
	Transition(ctx context.Context, t Transition) error

	// MarkSent stamps send metadata: sent_at only once, last_sent_at always,
	// sent_count+1, and status promoted to sent only from an initial phase.
	// Invoices are locked in the same statement.
	MarkSent(ctx context.Context, u SentUpdate) error

	// CountNumbered returns how many of the owner's documents of typ carry a
	// number starting with prefix.
	CountNumbered(ctx context.Context, ownerID string, typ domain.DocumentType, prefix string) (int, error)
}

type SenderIdentities interface {
	// GetSenderIdentity looks an identity up without owner scoping. Only the
	// verification flow, which starts from a token, may use it.
	GetSenderIdentity(ctx context.Context, id string) (domain.SenderIdentity, error)

	// GetOwnedSenderIdentity returns the identity when ownerID owns it.
	GetOwnedSenderIdentity(ctx context.Context, ownerID, id string) (domain.SenderIdentity, error)

	GetSenderIdentityByEmail(ctx context.Context, ownerID, email string) (domain.SenderIdentity, error)

	// CreateSenderIdentity inserts a pending identity. A duplicate
	// (owner, email) yields ErrAlreadyExists.
	CreateSenderIdentity(ctx context.Context, si domain.SenderIdentity) error

	ListSenderIdentities(ctx context.Context, ownerID string) ([]domain.SenderIdentity, error)

	// UpdateDisplayName only touches pending identities.
	UpdateDisplayName(ctx context.Context, id, displayName string, at time.Time) error

	MarkVerificationSent(ctx context.Context, id string, at time.Time) error

	// MarkVerified moves a pending identity to verified; anything else is
	// ErrConflict.
	MarkVerified(ctx context.Context, id string, at time.Time) error

	// Disable is idempotent.
	Disable(ctx context.Context, ownerID, id string, at time.Time) error

	TouchLastUsed(ctx context.Context, id string, at time.Time) error

	CountVerified(ctx context.Context, ownerID string) (int, error)
}

type VerificationTokens interface {
	CreateVerificationToken(ctx context.Context, t domain.VerificationToken) error

	GetVerificationTokenByHash(ctx context.Context, hash string) (domain.VerificationToken, error)

	// SupersedeActive marks every unused, not yet superseded token of the
	// identity as superseded.
	SupersedeActive(ctx context.Context, senderIdentityID string, at time.Time) (int64, error)

	// MarkUsed sets used_at only while it is still null. It reports false when
	// another redemption got there first.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)

	// DeleteExpiredBefore removes tokens that expired before cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditFilter narrows an audit listing. Empty fields match everything.
type AuditFilter struct {
	EntityType string
	EntityID   string
	Limit      int
}

type AuditEvents interface {
	AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error
	ListAuditEvents(ctx context.Context, ownerID string, f AuditFilter) ([]domain.AuditEvent, error)
}

type Settings interface {
	GetOwnerSettings(ctx context.Context, ownerID string) (domain.OwnerSettings, error)

	// UpsertOwnerSettings is for fixtures and the settings screen that owns
	// this table; the service never writes settings.
	UpsertOwnerSettings(ctx context.Context, s domain.OwnerSettings) error
}

type Clients interface {
	GetClient(ctx context.Context, ownerID, id string) (domain.Client, error)

	// CreateClient is for fixtures and the CRUD layer.
	CreateClient(ctx context.Context, c domain.Client) error
}

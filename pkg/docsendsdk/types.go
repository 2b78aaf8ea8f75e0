package docsendsdk

import "time"

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Unit        string  `json:"unit,omitempty"`
}

type Totals struct {
	Net   float64 `json:"net"`
	Tax   float64 `json:"tax"`
	Gross float64 `json:"gross"`
}

// Capabilities lists what the document's current phase allows.
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

type Document struct {
	ID                 string       `json:"id"`
	Type               string       `json:"type"`
	Number             string       `json:"number,omitempty"`
	ClientID           string       `json:"clientId,omitempty"`
	LineItems          []LineItem   `json:"lineItems"`
	TaxRate            float64      `json:"taxRate"`
	Currency           string       `json:"currency,omitempty"`
	Notes              string       `json:"notes,omitempty"`
	Totals             Totals       `json:"totals"`
	Status             string       `json:"status"`
	Phase              string       `json:"phase"`
	Capabilities       Capabilities `json:"capabilities"`
	ContentDigest      string       `json:"contentDigest"`
	IsLocked           bool         `json:"isLocked"`
	FinalizedAt        *time.Time   `json:"finalizedAt,omitempty"`
	SentAt             *time.Time   `json:"sentAt,omitempty"`
	LastSentAt         *time.Time   `json:"lastSentAt,omitempty"`
	SentCount          int          `json:"sentCount"`
	SentVia            string       `json:"sentVia,omitempty"`
	IssueDate          string       `json:"issueDate,omitempty"`
	DueDate            string       `json:"dueDate,omitempty"`
	ValidUntil         string       `json:"validUntil,omitempty"`
	PaymentDate        string       `json:"paymentDate,omitempty"`
	ConvertedInvoiceID string       `json:"convertedInvoiceId,omitempty"`
	SourceOfferID      string       `json:"sourceOfferId,omitempty"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// DocumentPatch changes content. Nil fields are left alone.
type DocumentPatch struct {
	ClientID   *string     `json:"clientId,omitempty"`
	LineItems  *[]LineItem `json:"lineItems,omitempty"`
	TaxRate    *float64    `json:"taxRate,omitempty"`
	Currency   *string     `json:"currency,omitempty"`
	Notes      *string     `json:"notes,omitempty"`
	IssueDate  *string     `json:"issueDate,omitempty"`
	DueDate    *string     `json:"dueDate,omitempty"`
	ValidUntil *string     `json:"validUntil,omitempty"`
}

// SendRequest mails a document. ContentDigest, when set, must match the
// digest the service computes for the stored document.
type SendRequest struct {
	DocumentID       string `json:"documentId"`
	Type             string `json:"type"`
	To               string `json:"to"`
	Subject          string `json:"subject"`
	Message          string `json:"message,omitempty"`
	SenderIdentityID string `json:"senderIdentityId,omitempty"`
	Purpose          string `json:"purpose,omitempty"`
	ContentDigest    string `json:"contentDigest,omitempty"`
}

type SendResult struct {
	DocumentID string     `json:"documentId"`
	Type       string     `json:"type"`
	Phase      string     `json:"phase"`
	SentCount  int        `json:"sentCount"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	LastSentAt *time.Time `json:"lastSentAt,omitempty"`
	Filename   string     `json:"filename"`
}

type CreateSenderIdentityRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type SenderIdentity struct {
	ID                     string     `json:"id"`
	Email                  string     `json:"email"`
	DisplayName            string     `json:"displayName,omitempty"`
	Status                 string     `json:"status"`
	VerifiedAt             *time.Time `json:"verifiedAt,omitempty"`
	LastVerificationSentAt *time.Time `json:"lastVerificationSentAt,omitempty"`
	LastUsedAt             *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
}

type AuditEvent struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// AuditQuery narrows ListAuditEvents. Zero values match everything.
type AuditQuery struct {
	EntityType string
	EntityID   string
	Limit      int
}

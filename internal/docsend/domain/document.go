package domain

import (
	"strings"
	"time"
)

type DocumentType string

const (
	TypeInvoice DocumentType = "invoice"
	TypeOffer   DocumentType = "offer"
)

// ParseDocumentType accepts the two known types, case-insensitively.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeInvoice:
		return TypeInvoice, true
	case TypeOffer:
		return TypeOffer, true
	}
	return "", false
}

// Status is the persisted status string. The effective lifecycle stage is
// derived by the lifecycle package and may differ from it.
type Status string

const (
	StatusNone     Status = ""
	StatusDraft    Status = "draft"
	StatusIssued   Status = "issued"
	StatusSent     Status = "sent"
	StatusOverdue  Status = "overdue"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusInvoiced Status = "invoiced"
)

// NormalizeStatus folds case and whitespace and maps spelling variants onto
// the canonical value.
func NormalizeStatus(s string) Status {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "cancelled":
		return StatusCanceled
	case "final", "finalized", "finalised":
		return StatusIssued
	default:
		return Status(v)
	}
}

const SentViaEmail = "email"

type LineItem struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	Unit        string
}

func (li LineItem) Net() float64 { return li.Quantity * li.UnitPrice }

type Document struct {
	ID       string
	OwnerID  string
	Type     DocumentType
	Number   string
	ClientID string

	LineItems []LineItem
	TaxRate   float64 // percent
	Currency  string
	Notes     string

	Status      Status
	IsLocked    bool
	FinalizedAt *time.Time
	SentAt      *time.Time // write-once
	LastSentAt  *time.Time
	SentCount   int
	SentVia     string

	IssueDate   *time.Time
	DueDate     *time.Time // invoice
	ValidUntil  *time.Time // offer
	PaymentDate *time.Time // invoice

	ConvertedInvoiceID string // offer
	SourceOfferID      string // invoice

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Totals returns net, tax and gross amounts.
func (d *Document) Totals() (net, tax, gross float64) {
	for _, li := range d.LineItems {
		net += li.Net()
	}
	tax = net * d.TaxRate / 100
	return net, tax, net + tax
}

// DateLayout is used wherever a calendar date is serialised.
const DateLayout = "2006-01-02"

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(DateLayout)
}

// ContentView is the projection of the fields a recipient sees. It feeds
// the canonical digest, so send bookkeeping is deliberately absent.
func (d *Document) ContentView() map[string]any {
	items := make([]any, 0, len(d.LineItems))
	for _, li := range d.LineItems {
		items = append(items, map[string]any{
			"description": li.Description,
			"quantity":    li.Quantity,
			"unitPrice":   li.UnitPrice,
			"unit":        li.Unit,
		})
	}
	return map[string]any{
		"type":       string(d.Type),
		"number":     d.Number,
		"clientId":   d.ClientID,
		"lineItems":  items,
		"taxRate":    d.TaxRate,
		"currency":   d.Currency,
		"notes":      d.Notes,
		"issueDate":  dateOrNil(d.IssueDate),
		"dueDate":    dateOrNil(d.DueDate),
		"validUntil": dateOrNil(d.ValidUntil),
	}
}

// ContentPatch carries a content update. Nil fields are left unchanged.
type ContentPatch struct {
	ClientID   *string
	LineItems  *[]LineItem
	TaxRate    *float64
	Currency   *string
	Notes      *string
	IssueDate  *time.Time
	DueDate    *time.Time
	ValidUntil *time.Time
}

// Empty reports whether the patch changes nothing.
func (p ContentPatch) Empty() bool {
	return p.ClientID == nil && p.LineItems == nil && p.TaxRate == nil &&
		p.Currency == nil && p.Notes == nil && p.IssueDate == nil &&
		p.DueDate == nil && p.ValidUntil == nil
}

// Apply writes the patch onto d.
func (p ContentPatch) Apply(d *Document) {
	if p.ClientID != nil {
		d.ClientID = *p.ClientID
	}
	if p.LineItems != nil {
		d.LineItems = append([]LineItem(nil), (*p.LineItems)...)
	}
	if p.TaxRate != nil {
		d.TaxRate = *p.TaxRate
	}
	if p.Currency != nil {
		d.Currency = *p.Currency
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	if p.IssueDate != nil {
		d.IssueDate = p.IssueDate
	}
	if p.DueDate != nil {
		d.DueDate = p.DueDate
	}
	if p.ValidUntil != nil {
		d.ValidUntil = p.ValidUntil
	}
}

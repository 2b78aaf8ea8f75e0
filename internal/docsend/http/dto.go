package http

import (
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/lifecycle"
	"github.com/aussiebroadwan/docsend/internal/docsend/service"
)

// ErrorResponse documents the failure envelope for swagger.
type ErrorResponse struct {
	OK    bool `json:"ok" example:"false"`
	Error struct {
		Code              string            `json:"code" example:"stale_document"`
		Message           string            `json:"message"`
		RetryAfterSeconds int               `json:"retryAfterSeconds,omitempty"`
		Fields            map[string]string `json:"fields,omitempty"`
	} `json:"error"`
}

type LineItemDTO struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Unit        string  `json:"unit,omitempty"`
}

type TotalsDTO struct {
	Net   float64 `json:"net"`
	Tax   float64 `json:"tax"`
	Gross float64 `json:"gross"`
}

type DocumentResponse struct {
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	Number             string                 `json:"number,omitempty"`
	ClientID           string                 `json:"clientId,omitempty"`
	LineItems          []LineItemDTO          `json:"lineItems"`
	TaxRate            float64                `json:"taxRate"`
	Currency           string                 `json:"currency,omitempty"`
	Notes              string                 `json:"notes,omitempty"`
	Totals             TotalsDTO              `json:"totals"`
	Status             string                 `json:"status"`
	Phase              lifecycle.Phase        `json:"phase"`
	Capabilities       lifecycle.Capabilities `json:"capabilities"`
	ContentDigest      string                 `json:"contentDigest"`
	IsLocked           bool                   `json:"isLocked"`
	FinalizedAt        *time.Time             `json:"finalizedAt,omitempty"`
	SentAt             *time.Time             `json:"sentAt,omitempty"`
	LastSentAt         *time.Time             `json:"lastSentAt,omitempty"`
	SentCount          int                    `json:"sentCount"`
	SentVia            string                 `json:"sentVia,omitempty"`
	IssueDate          string                 `json:"issueDate,omitempty"`
	DueDate            string                 `json:"dueDate,omitempty"`
	ValidUntil         string                 `json:"validUntil,omitempty"`
	PaymentDate        string                 `json:"paymentDate,omitempty"`
	ConvertedInvoiceID string                 `json:"convertedInvoiceId,omitempty"`
	SourceOfferID      string                 `json:"sourceOfferId,omitempty"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(domain.DateLayout)
}

func toDocumentResponse(v service.DocumentView) DocumentResponse {
	d := v.Document
	items := make([]LineItemDTO, 0, len(d.LineItems))
	for _, li := range d.LineItems {
		items = append(items, LineItemDTO(li))
	}
	net, tax, gross := d.Totals()
	return DocumentResponse{
		ID:                 d.ID,
		Type:               string(d.Type),
		Number:             d.Number,
		ClientID:           d.ClientID,
		LineItems:          items,
		TaxRate:            d.TaxRate,
		Currency:           d.Currency,
		Notes:              d.Notes,
		Totals:             TotalsDTO{Net: net, Tax: tax, Gross: gross},
		Status:             string(d.Status),
		Phase:              v.Phase,
		Capabilities:       v.Capabilities,
		ContentDigest:      v.ContentDigest,
		IsLocked:           d.IsLocked,
		FinalizedAt:        d.FinalizedAt,
		SentAt:             d.SentAt,
		LastSentAt:         d.LastSentAt,
		SentCount:          d.SentCount,
		SentVia:            d.SentVia,
		IssueDate:          dateString(d.IssueDate),
		DueDate:            dateString(d.DueDate),
		ValidUntil:         dateString(d.ValidUntil),
		PaymentDate:        dateString(d.PaymentDate),
		ConvertedInvoiceID: d.ConvertedInvoiceID,
		SourceOfferID:      d.SourceOfferID,
		UpdatedAt:          d.UpdatedAt,
	}
}

// PatchDocumentRequest is a partial content update; omitted fields stay.
// Dates are YYYY-MM-DD.
type PatchDocumentRequest struct {
	ClientID   *string        `json:"clientId,omitempty"`
	LineItems  *[]LineItemDTO `json:"lineItems,omitempty"`
	TaxRate    *float64       `json:"taxRate,omitempty"`
	Currency   *string        `json:"currency,omitempty"`
	Notes      *string        `json:"notes,omitempty"`
	IssueDate  *string        `json:"issueDate,omitempty"`
	DueDate    *string        `json:"dueDate,omitempty"`
	ValidUntil *string        `json:"validUntil,omitempty"`
}

// DateRequest carries an optional date for finalize and mark-paid.
type DateRequest struct {
	Date string `json:"date,omitempty" example:"2026-03-02"`
}

type SenderIdentityResponse struct {
	ID                     string     `json:"id"`
	Email                  string     `json:"email"`
	DisplayName            string     `json:"displayName,omitempty"`
	Status                 string     `json:"status"`
	VerifiedAt             *time.Time `json:"verifiedAt,omitempty"`
	LastVerificationSentAt *time.Time `json:"lastVerificationSentAt,omitempty"`
	LastUsedAt             *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
}

func toSenderIdentityResponse(si domain.SenderIdentity) SenderIdentityResponse {
	return SenderIdentityResponse{
		ID:                     si.ID,
		Email:                  si.Email,
		DisplayName:            si.DisplayName,
		Status:                 string(si.Status),
		VerifiedAt:             si.VerifiedAt,
		LastVerificationSentAt: si.LastVerificationSentAt,
		LastUsedAt:             si.LastUsedAt,
		CreatedAt:              si.CreatedAt,
	}
}

type AuditEventResponse struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

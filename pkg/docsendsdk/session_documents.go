package docsendsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Document types.
const (
	TypeInvoice = "invoice"
	TypeOffer   = "offer"
)

func documentPath(typ, id string, action ...string) string {
	p := "/v1/documents/" + url.PathEscape(typ) + "/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

// Send renders and mails a document to its client.
func (s *Session) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if err := s.requireScope(ScopeWrite); err != nil {
		return nil, err
	}
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/documents/send", s.token, req, nil)
	if err != nil {
		return nil, err
	}

	var out SendResult
	if err := decodeData(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDocument fetches a document with its phase, capabilities and digest.
func (s *Session) GetDocument(ctx context.Context, typ, id string) (*Document, error) {
	if err := s.requireScope(ScopeRead); err != nil {
		return nil, err
	}
	return s.documentCall(ctx, http.MethodGet, documentPath(typ, id), nil, nil, http.StatusOK)
}

// UpdateDocument patches a draft. When ifMatch is non-empty the update is
// rejected with stale_document unless it equals the stored digest.
func (s *Session) UpdateDocument(ctx context.Context, typ, id string, patch DocumentPatch, ifMatch string) (*Document, error) {
	if err := s.requireScope(ScopeWrite); err != nil {
		return nil, err
	}
	var hdr map[string]string
	if ifMatch != "" {
		hdr = map[string]string{"If-Match": `"` + ifMatch + `"`}
	}
	return s.documentCall(ctx, http.MethodPatch, documentPath(typ, id), patch, hdr, http.StatusOK)
}

// Finalize assigns an invoice its number and locks it. An empty date means
// today.
func (s *Session) Finalize(ctx context.Context, id, date string) (*Document, error) {
	return s.invoiceAction(ctx, id, "finalize", date)
}

// MarkPaid records payment of an invoice. An empty date means today.
func (s *Session) MarkPaid(ctx context.Context, id, date string) (*Document, error) {
	return s.invoiceAction(ctx, id, "mark-paid", date)
}

// Cancel cancels a document of either type.
func (s *Session) Cancel(ctx context.Context, typ, id string) (*Document, error) {
	if err := s.requireScope(ScopeWrite); err != nil {
		return nil, err
	}
	return s.documentCall(ctx, http.MethodPost, documentPath(typ, id, "cancel"), nil, nil, http.StatusOK)
}

// Accept marks a sent offer as accepted.
func (s *Session) Accept(ctx context.Context, id string) (*Document, error) {
	return s.offerAction(ctx, id, "accept", http.StatusOK)
}

// Reject marks a sent offer as rejected.
func (s *Session) Reject(ctx context.Context, id string) (*Document, error) {
	return s.offerAction(ctx, id, "reject", http.StatusOK)
}

// ConvertToInvoice creates a draft invoice from an accepted offer and
// returns the invoice.
func (s *Session) ConvertToInvoice(ctx context.Context, offerID string) (*Document, error) {
	return s.offerAction(ctx, offerID, "convert", http.StatusCreated)
}

func (s *Session) invoiceAction(ctx context.Context, id, action, date string) (*Document, error) {
	if err := s.requireScope(ScopeWrite); err != nil {
		return nil, err
	}
	var body any
	if date != "" {
		body = map[string]string{"date": date}
	}
	return s.documentCall(ctx, http.MethodPost, documentPath(TypeInvoice, id, action), body, nil, http.StatusOK)
}

func (s *Session) offerAction(ctx context.Context, id, action string, expected int) (*Document, error) {
	if err := s.requireScope(ScopeWrite); err != nil {
		return nil, err
	}
	return s.documentCall(ctx, http.MethodPost, documentPath(TypeOffer, id, action), nil, nil, expected)
}

func (s *Session) documentCall(
	ctx context.Context,
	method, path string,
	body any,
	headers map[string]string,
	expected int,
) (*Document, error) {
	resp, err := s.client.doRequest(ctx, method, path, s.token, body, headers)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := decodeData(resp, &doc, expected); err != nil {
		return nil, err
	}
	return &doc, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/lifecycle"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/pkg/idx"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

// DocumentService runs the gated, non-send document operations. Every
// mutation loads, checks and writes inside one transaction together with
// its audit event.
type DocumentService struct {
	Store store.Store
	Audit *AuditTrail
	Now   func() time.Time
}

// DocumentView is a document with everything derived from it at read time.
type DocumentView struct {
	Document      domain.Document
	Phase         lifecycle.Phase
	Capabilities  lifecycle.Capabilities
	ContentDigest string
}

func viewOf(d domain.Document, now time.Time) (DocumentView, error) {
	digest, err := ContentDigest(&d)
	if err != nil {
		return DocumentView{}, apperr.Internal(err)
	}
	return DocumentView{
		Document:      d,
		Phase:         lifecycle.PhaseOf(&d, now),
		Capabilities:  lifecycle.CapabilitiesOf(&d, now),
		ContentDigest: digest,
	}, nil
}

func (s *DocumentService) Get(ctx context.Context, ownerID string, typ domain.DocumentType, id string) (DocumentView, error) {
	d, err := s.Store.Documents().GetDocument(ctx, ownerID, typ, id)
	if err != nil {
		return DocumentView{}, mapStoreErr(err, "document")
	}
	return viewOf(d, nowFrom(s.Now))
}

// UpdateContent applies patch to an editable document. When ifMatch is set
// it must equal the current content digest.
func (s *DocumentService) UpdateContent(
	ctx context.Context,
	ownerID string,
	typ domain.DocumentType,
	id string,
	patch domain.ContentPatch,
	ifMatch string,
) (DocumentView, error) {
	if patch.Empty() {
		return DocumentView{}, apperr.Validation("nothing to update", nil)
	}
	if err := validatePatch(patch); err != nil {
		return DocumentView{}, err
	}
	now := nowFrom(s.Now)

	return s.mutate(ctx, ownerID, typ, id, func(tx store.Tx, d *domain.Document) error {
		if ifMatch != "" {
			cur, err := ContentDigest(d)
			if err != nil {
				return apperr.Internal(err)
			}
			if cur != strings.ToLower(ifMatch) {
				return apperr.Conflict(apperr.CodeStaleDocument, "document changed since it was loaded; reload and try again")
			}
		}
		if err := lifecycle.CheckContentChange(d, now); err != nil {
			return mapLifecycleErr(err)
		}

		patch.Apply(d)
		d.UpdatedAt = now
		if err := tx.Documents().UpdateContent(ctx, *d); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.Conflict(apperr.CodeDocumentLocked, "document is locked")
			}
			return err
		}
		return s.Audit.Record(ctx, tx.AuditEvents(), domain.AuditEvent{
			OwnerID:    ownerID,
			Action:     domain.AuditDocumentUpdated,
			EntityType: domain.EntityDocument,
			EntityID:   d.ID,
			Metadata:   map[string]any{"type": string(typ), "fields": patchFields(patch)},
			CreatedAt:  now,
		})
	})
}

// Finalize numbers (when needed), dates and locks a draft invoice.
func (s *DocumentService) Finalize(ctx context.Context, ownerID, id string, issueDate *time.Time) (DocumentView, error) {
	now := nowFrom(s.Now)
	return s.mutate(ctx, ownerID, domain.TypeInvoice, id, func(tx store.Tx, d *domain.Document) error {
		if err := lifecycle.Require(d, now, lifecycle.OpFinalize); err != nil {
			return mapLifecycleErr(err)
		}

		issued := today(now)
		switch {
		case issueDate != nil:
			issued = today(*issueDate)
		case d.IssueDate != nil:
			issued = today(*d.IssueDate)
		}

		number := d.Number
		if number == "" {
			prefix := fmt.Sprintf("INV-%d-", issued.Year())
			n, err := tx.Documents().CountNumbered(ctx, ownerID, domain.TypeInvoice, prefix)
			if err != nil {
				return err
			}
			number = fmt.Sprintf("%s%04d", prefix, n+1)
		}

		if err := tx.Documents().Finalize(ctx, ownerID, id, number, issued, now); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return apperr.Conflict(apperr.CodeOperationNotPermitted, "invoice number "+number+" is taken")
			}
			return err
		}
		d.Number, d.IssueDate, d.FinalizedAt, d.IsLocked = number, &issued, &now, true

		return s.Audit.Record(ctx, tx.AuditEvents(), domain.AuditEvent{
			OwnerID:    ownerID,
			Action:     domain.AuditDocumentFinalized,
			EntityType: domain.EntityDocument,
			EntityID:   id,
			Metadata:   map[string]any{"number": number, "issueDate": issued.Format(domain.DateLayout)},
			CreatedAt:  now,
		})
	})
}

// MarkPaid records payment of an invoice; paymentDate defaults to today.
func (s *DocumentService) MarkPaid(ctx context.Context, ownerID, id string, paymentDate *time.Time) (DocumentView, error) {
	now := nowFrom(s.Now)
	paid := today(now)
	if paymentDate != nil {
		paid = today(*paymentDate)
	}
	return s.transition(ctx, ownerID, domain.TypeInvoice, id, lifecycle.OpMarkPaid, store.Transition{
		Status:      domain.StatusPaid,
		PaymentDate: &paid,
	}, domain.AuditDocumentPaid, map[string]any{"paymentDate": paid.Format(domain.DateLayout)})
}

func (s *DocumentService) Cancel(ctx context.Context, ownerID, id string) (DocumentView, error) {
	return s.transition(ctx, ownerID, domain.TypeInvoice, id, lifecycle.OpCancel, store.Transition{
		Status: domain.StatusCanceled,
	}, domain.AuditDocumentCanceled, nil)
}

func (s *DocumentService) Accept(ctx context.Context, ownerID, id string) (DocumentView, error) {
	return s.transition(ctx, ownerID, domain.TypeOffer, id, lifecycle.OpAccept, store.Transition{
		Status: domain.StatusAccepted,
	}, domain.AuditOfferAccepted, nil)
}

func (s *DocumentService) Reject(ctx context.Context, ownerID, id string) (DocumentView, error) {
	return s.transition(ctx, ownerID, domain.TypeOffer, id, lifecycle.OpReject, store.Transition{
		Status: domain.StatusRejected,
	}, domain.AuditOfferRejected, nil)
}

// Convert turns an accepted offer into a new draft invoice carrying the
// offer's content. It returns the invoice; the offer becomes invoiced.
func (s *DocumentService) Convert(ctx context.Context, ownerID, offerID string) (DocumentView, error) {
	now := nowFrom(s.Now)
	var invoice domain.Document
	_, err := s.mutate(ctx, ownerID, domain.TypeOffer, offerID, func(tx store.Tx, offer *domain.Document) error {
		if err := lifecycle.Require(offer, now, lifecycle.OpConvert); err != nil {
			return mapLifecycleErr(err)
		}

		invoice = domain.Document{
			ID:            idx.NewAt(now).String(),
			OwnerID:       ownerID,
			Type:          domain.TypeInvoice,
			ClientID:      offer.ClientID,
			LineItems:     append([]domain.LineItem(nil), offer.LineItems...),
			TaxRate:       offer.TaxRate,
			Currency:      offer.Currency,
			Notes:         offer.Notes,
			Status:        domain.StatusDraft,
			SourceOfferID: offer.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Documents().CreateDocument(ctx, invoice); err != nil {
			return err
		}

		if err := tx.Documents().Transition(ctx, store.Transition{
			OwnerID:            ownerID,
			ID:                 offer.ID,
			Type:               domain.TypeOffer,
			Status:             domain.StatusInvoiced,
			At:                 now,
			ConvertedInvoiceID: invoice.ID,
		}); err != nil {
			return err
		}
		offer.Status, offer.ConvertedInvoiceID = domain.StatusInvoiced, invoice.ID

		return s.Audit.Record(ctx, tx.AuditEvents(), domain.AuditEvent{
			OwnerID:    ownerID,
			Action:     domain.AuditOfferConverted,
			EntityType: domain.EntityDocument,
			EntityID:   offer.ID,
			Metadata:   map[string]any{"invoiceId": invoice.ID},
			CreatedAt:  now,
		})
	})
	if err != nil {
		return DocumentView{}, err
	}
	return viewOf(invoice, now)
}

func (s *DocumentService) transition(
	ctx context.Context,
	ownerID string,
	typ domain.DocumentType,
	id string,
	op lifecycle.Op,
	t store.Transition,
	action string,
	metadata map[string]any,
) (DocumentView, error) {
	now := nowFrom(s.Now)
	return s.mutate(ctx, ownerID, typ, id, func(tx store.Tx, d *domain.Document) error {
		if err := lifecycle.Require(d, now, op); err != nil {
			return mapLifecycleErr(err)
		}

		from := lifecycle.PhaseOf(d, now)
		t.OwnerID, t.ID, t.Type, t.At = ownerID, id, typ, now
		if err := tx.Documents().Transition(ctx, t); err != nil {
			return err
		}
		d.Status, d.UpdatedAt = t.Status, now
		if t.PaymentDate != nil {
			d.PaymentDate = t.PaymentDate
		}

		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["type"] = string(typ)
		metadata["from"] = string(from)
		return s.Audit.Record(ctx, tx.AuditEvents(), domain.AuditEvent{
			OwnerID:    ownerID,
			Action:     action,
			EntityType: domain.EntityDocument,
			EntityID:   id,
			Metadata:   metadata,
			CreatedAt:  now,
		})
	})
}

// mutate loads the document inside a transaction and hands it to fn. The
// (possibly modified) document is returned as a view after commit.
func (s *DocumentService) mutate(
	ctx context.Context,
	ownerID string,
	typ domain.DocumentType,
	id string,
	fn func(tx store.Tx, d *domain.Document) error,
) (DocumentView, error) {
	var doc domain.Document
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		d, err := tx.Documents().GetDocument(ctx, ownerID, typ, id)
		if err != nil {
			return err
		}
		if err := fn(tx, &d); err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			slogx.FromContext(ctx).Error("document operation failed",
				slog.String("document_id", id),
				slog.String("document_type", string(typ)),
				slog.Any("error", err),
			)
		}
		return DocumentView{}, mapStoreErr(err, "document")
	}
	return viewOf(doc, nowFrom(s.Now))
}

type patchRules struct {
	ClientID  *string         `json:"clientId" validate:"omitempty,max=64"`
	TaxRate   *float64        `json:"taxRate" validate:"omitempty,gte=0,lte=100"`
	Currency  *string         `json:"currency" validate:"omitempty,len=3,alpha"`
	Notes     *string         `json:"notes" validate:"omitempty,max=5000"`
	LineItems []lineItemRules `json:"lineItems" validate:"dive"`
}

type lineItemRules struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	Unit        string  `json:"unit" validate:"max=32"`
}

func validatePatch(p domain.ContentPatch) error {
	r := patchRules{
		ClientID: p.ClientID,
		TaxRate:  p.TaxRate,
		Currency: p.Currency,
		Notes:    p.Notes,
	}
	if p.LineItems != nil {
		for _, li := range *p.LineItems {
			r.LineItems = append(r.LineItems, lineItemRules(li))
		}
	}
	return validateStruct(r)
}

func patchFields(p domain.ContentPatch) []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.ClientID != nil, "clientId")
	add(p.LineItems != nil, "lineItems")
	add(p.TaxRate != nil, "taxRate")
	add(p.Currency != nil, "currency")
	add(p.Notes != nil, "notes")
	add(p.IssueDate != nil, "issueDate")
	add(p.DueDate != nil, "dueDate")
	add(p.ValidUntil != nil, "validUntil")
	return out
}

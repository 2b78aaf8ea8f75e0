package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
)

type documentsRepo struct {
	db dbtx
}

const documentColumns = `id, owner_id, type, number, client_id, line_items, tax_rate, currency, notes,
	status, is_locked, finalized_at, sent_at, last_sent_at, sent_count, sent_via,
	issue_date, due_date, valid_until, payment_date, converted_invoice_id, source_offer_id,
	created_at, updated_at`

// lineItemRow is the JSON shape of one entry in documents.line_items.
type lineItemRow struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Unit        string  `json:"unit,omitempty"`
}

func encodeLineItems(items []domain.LineItem) (string, error) {
	rows := make([]lineItemRow, 0, len(items))
	for _, li := range items {
		rows = append(rows, lineItemRow(li))
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode line items: %w", err)
	}
	return string(b), nil
}

func decodeLineItems(raw string) ([]domain.LineItem, error) {
	if raw == "" {
		return nil, nil
	}
	var rows []lineItemRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	items := make([]domain.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, domain.LineItem(r))
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var (
		d                                   domain.Document
		typ, status, lineItems              string
		finalizedAt, sentAt, lastSentAt     sql.NullTime
		issueDate, dueDate, validUntil, pay sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.OwnerID, &typ, &d.Number, &d.ClientID, &lineItems, &d.TaxRate, &d.Currency, &d.Notes,
		&status, &d.IsLocked, &finalizedAt, &sentAt, &lastSentAt, &d.SentCount, &d.SentVia,
		&issueDate, &dueDate, &validUntil, &pay, &d.ConvertedInvoiceID, &d.SourceOfferID,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, mapNotFound(err)
	}

	d.Type = domain.DocumentType(typ)
	d.Status = domain.NormalizeStatus(status)
	if d.LineItems, err = decodeLineItems(lineItems); err != nil {
		return domain.Document{}, err
	}
	d.FinalizedAt = mapNullTimePtr(finalizedAt)
	d.SentAt = mapNullTimePtr(sentAt)
	d.LastSentAt = mapNullTimePtr(lastSentAt)
	d.IssueDate = mapNullTimePtr(issueDate)
	d.DueDate = mapNullTimePtr(dueDate)
	d.ValidUntil = mapNullTimePtr(validUntil)
	d.PaymentDate = mapNullTimePtr(pay)
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}

func (r *documentsRepo) GetDocument(ctx context.Context, ownerID string, typ domain.DocumentType, id string) (domain.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND owner_id = ? AND type = ?`,
		id, ownerID, string(typ),
	)
	return scanDocument(row)
}

func (r *documentsRepo) CreateDocument(ctx context.Context, d domain.Document) error {
	items, err := encodeLineItems(d.LineItems)
	if err != nil {
		return err
	}
	status := d.Status
	if status == domain.StatusNone {
		status = domain.StatusDraft
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, string(d.Type), d.Number, d.ClientID, items, d.TaxRate, d.Currency, d.Notes,
		string(status), d.IsLocked, mapOptionalTime(d.FinalizedAt), mapOptionalTime(d.SentAt),
		mapOptionalTime(d.LastSentAt), d.SentCount, d.SentVia,
		mapOptionalTime(d.IssueDate), mapOptionalTime(d.DueDate), mapOptionalTime(d.ValidUntil),
		mapOptionalTime(d.PaymentDate), d.ConvertedInvoiceID, d.SourceOfferID,
		d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	return mapUnique(err)
}

func (r *documentsRepo) UpdateContent(ctx context.Context, d domain.Document) error {
	items, err := encodeLineItems(d.LineItems)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET client_id = ?, line_items = ?, tax_rate = ?, currency = ?, notes = ?,
		    issue_date = ?, due_date = ?, valid_until = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND type = ? AND is_locked = 0`,
		d.ClientID, items, d.TaxRate, d.Currency, d.Notes,
		mapOptionalTime(d.IssueDate), mapOptionalTime(d.DueDate), mapOptionalTime(d.ValidUntil),
		d.UpdatedAt.UTC(),
		d.ID, d.OwnerID, string(d.Type),
	)
	return expectOne(res, err, store.ErrConflict)
}

func (r *documentsRepo) Finalize(ctx context.Context, ownerID, id, number string, issueDate, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET number = CASE WHEN number = '' THEN ? ELSE number END,
		    issue_date = COALESCE(issue_date, ?),
		    status = 'issued',
		    is_locked = 1,
		    finalized_at = COALESCE(finalized_at, ?),
		    updated_at = ?
		WHERE id = ? AND owner_id = ? AND type = 'invoice' AND is_locked = 0`,
		number, issueDate.UTC(), at.UTC(), at.UTC(),
		id, ownerID,
	)
	return mapUnique(expectOne(res, err, store.ErrConflict))
}

func (r *documentsRepo) Transition(ctx context.Context, t store.Transition) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?,
		    payment_date = COALESCE(?, payment_date),
		    converted_invoice_id = CASE WHEN ? <> '' THEN ? ELSE converted_invoice_id END,
		    updated_at = ?
		WHERE id = ? AND owner_id = ? AND type = ?`,
		string(t.Status),
		mapOptionalTime(t.PaymentDate),
		t.ConvertedInvoiceID, t.ConvertedInvoiceID,
		t.At.UTC(),
		t.ID, t.OwnerID, string(t.Type),
	)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *documentsRepo) MarkSent(ctx context.Context, u store.SentUpdate) error {
	at := u.At.UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET sent_at = COALESCE(sent_at, ?),
		    last_sent_at = ?,
		    sent_count = sent_count + 1,
		    sent_via = ?,
		    status = CASE WHEN LOWER(TRIM(status)) IN ('', 'draft', 'issued') THEN 'sent' ELSE status END,
		    is_locked = CASE WHEN type = 'invoice' THEN 1 ELSE is_locked END,
		    finalized_at = CASE WHEN type = 'invoice' THEN COALESCE(finalized_at, ?) ELSE finalized_at END,
		    updated_at = ?
		WHERE id = ? AND owner_id = ? AND type = ?`,
		at, at, domain.SentViaEmail, at, at,
		u.ID, u.OwnerID, string(u.Type),
	)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *documentsRepo) CountNumbered(ctx context.Context, ownerID string, typ domain.DocumentType, prefix string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE owner_id = ? AND type = ? AND number LIKE ? || '%'`,
		ownerID, string(typ), prefix,
	).Scan(&n)
	return n, err
}

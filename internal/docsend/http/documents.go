package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/pkg/httpx"
)

const documentBodyLimit = 256 << 10

type DocumentsHandler struct {
	DocumentService *service.DocumentService
}

// target reads owner, type and id. It writes the error response itself
// and reports false when the request cannot proceed.
func target(w http.ResponseWriter, r *http.Request) (owner string, typ domain.DocumentType, id string, ok bool) {
	owner, ok = httpx.UserIDFromContext(r.Context())
	if !ok {
		writeErr(w, r, apperr.Auth("missing principal"))
		return "", "", "", false
	}
	typ, ok = domain.ParseDocumentType(r.PathValue("type"))
	if !ok {
		writeErr(w, r, apperr.NotFound("document"))
		return "", "", "", false
	}
	id = strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeErr(w, r, apperr.NotFound("document"))
		return "", "", "", false
	}
	return owner, typ, id, true
}

func writeDocument(w http.ResponseWriter, v service.DocumentView) {
	w.Header().Set("ETag", `"`+v.ContentDigest+`"`)
	httpx.WriteOK(w, http.StatusOK, toDocumentResponse(v))
}

// HandleGet returns a document with its phase, capabilities and digest.
//
//	@Summary		Get a document
//	@Description	The ETag header and contentDigest field carry the canonical content digest.
//	@Tags			Documents
//	@Produce		json
//	@Param			type	path		string				true	"invoice or offer"
//	@Param			id		path		string				true	"Document ID"
//	@Success		200		{object}	DocumentResponse	"Wrapped in {ok:true,data}"
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/documents/{type}/{id} [get].
func (h *DocumentsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, typ, id, ok := target(w, r)
	if !ok {
		return
	}
	v, err := h.DocumentService.Get(r.Context(), owner, typ, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeDocument(w, v)
}

// HandlePatch updates document content.
//
//	@Summary		Update document content
//	@Description	Only editable (draft, unlocked) documents accept changes. Send If-Match with the digest from GET to guard against lost updates.
//	@Tags			Documents
//	@Accept			json
//	@Produce		json
//	@Param			type		path		string					true	"invoice or offer"
//	@Param			id			path		string					true	"Document ID"
//	@Param			If-Match	header		string					false	"Content digest"
//	@Param			request		body		PatchDocumentRequest	true	"Fields to change"
//	@Success		200			{object}	DocumentResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse	"document_locked, stale_document, operation_not_permitted"
//	@Security		BearerAuth
//	@Router			/v1/documents/{type}/{id} [patch].
func (h *DocumentsHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	owner, typ, id, ok := target(w, r)
	if !ok {
		return
	}

	var req PatchDocumentRequest
	if err := httpx.DecodeJSON(r, &req, documentBodyLimit); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeErr(w, r, err)
		return
	}

	ifMatch := strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	v, err := h.DocumentService.UpdateContent(r.Context(), owner, typ, id, patch, ifMatch)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeDocument(w, v)
}

// HandleFinalize numbers and locks a draft invoice.
//
//	@Summary		Finalize an invoice
//	@Tags			Documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Invoice ID"
//	@Param			request	body		DateRequest	false	"Issue date, defaults to today"
//	@Success		200		{object}	DocumentResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/documents/invoice/{id}/finalize [post].
func (h *DocumentsHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	h.invoiceOnly(w, r, func(owner, id string, date *time.Time) (service.DocumentView, error) {
		return h.DocumentService.Finalize(r.Context(), owner, id, date)
	})
}

// HandleMarkPaid records payment.
//
//	@Summary		Mark an invoice paid
//	@Tags			Documents
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Invoice ID"
//	@Param			request	body		DateRequest	false	"Payment date, defaults to today"
//	@Success		200		{object}	DocumentResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/documents/invoice/{id}/mark-paid [post].
func (h *DocumentsHandler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	h.invoiceOnly(w, r, func(owner, id string, date *time.Time) (service.DocumentView, error) {
		return h.DocumentService.MarkPaid(r.Context(), owner, id, date)
	})
}

// HandleCancel cancels an invoice.
//
//	@Summary	Cancel an invoice
//	@Tags		Documents
//	@Produce	json
//	@Param		id	path		string	true	"Invoice ID"
//	@Success	200	{object}	DocumentResponse
//	@Failure	409	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/documents/invoice/{id}/cancel [post].
func (h *DocumentsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.invoiceOnly(w, r, func(owner, id string, _ *time.Time) (service.DocumentView, error) {
		return h.DocumentService.Cancel(r.Context(), owner, id)
	})
}

// HandleAccept marks a sent offer accepted.
//
//	@Summary	Accept an offer
//	@Tags		Documents
//	@Produce	json
//	@Param		id	path		string	true	"Offer ID"
//	@Success	200	{object}	DocumentResponse
//	@Failure	409	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/documents/offer/{id}/accept [post].
func (h *DocumentsHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.offerOnly(w, r, h.DocumentService.Accept)
}

// HandleReject marks a sent offer rejected.
//
//	@Summary	Reject an offer
//	@Tags		Documents
//	@Produce	json
//	@Param		id	path		string	true	"Offer ID"
//	@Success	200	{object}	DocumentResponse
//	@Failure	409	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/documents/offer/{id}/reject [post].
func (h *DocumentsHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.offerOnly(w, r, h.DocumentService.Reject)
}

// HandleConvert turns an accepted offer into a draft invoice and returns
// the invoice.
//
//	@Summary	Convert an offer to an invoice
//	@Tags		Documents
//	@Produce	json
//	@Param		id	path		string	true	"Offer ID"
//	@Success	201	{object}	DocumentResponse	"The new draft invoice"
//	@Failure	409	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/documents/offer/{id}/convert [post].
func (h *DocumentsHandler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	owner, typ, id, ok := target(w, r)
	if !ok {
		return
	}
	if typ != domain.TypeOffer {
		writeErr(w, r, apperr.NotFound("offer"))
		return
	}
	v, err := h.DocumentService.Convert(r.Context(), owner, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+v.ContentDigest+`"`)
	httpx.WriteOK(w, http.StatusCreated, toDocumentResponse(v))
}

func (h *DocumentsHandler) invoiceOnly(
	w http.ResponseWriter,
	r *http.Request,
	fn func(owner, id string, date *time.Time) (service.DocumentView, error),
) {
	owner, typ, id, ok := target(w, r)
	if !ok {
		return
	}
	if typ != domain.TypeInvoice {
		writeErr(w, r, apperr.NotFound("invoice"))
		return
	}

	var req DateRequest
	if err := httpx.DecodeJSON(r, &req, documentBodyLimit); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	v, err := fn(owner, id, date)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeDocument(w, v)
}

func (h *DocumentsHandler) offerOnly(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, owner, id string) (service.DocumentView, error),
) {
	owner, typ, id, ok := target(w, r)
	if !ok {
		return
	}
	if typ != domain.TypeOffer {
		writeErr(w, r, apperr.NotFound("offer"))
		return
	}
	v, err := fn(r.Context(), owner, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeDocument(w, v)
}

// parseDate reads an optional YYYY-MM-DD (or RFC 3339) value.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, apperr.Validation(field+" must be a date (YYYY-MM-DD)", map[string]string{field: "date"})
	}
	return &t, nil
}

func (req PatchDocumentRequest) toPatch() (domain.ContentPatch, error) {
	p := domain.ContentPatch{
		ClientID: req.ClientID,
		TaxRate:  req.TaxRate,
		Currency: req.Currency,
		Notes:    req.Notes,
	}
	if req.LineItems != nil {
		items := make([]domain.LineItem, 0, len(*req.LineItems))
		for _, li := range *req.LineItems {
			items = append(items, domain.LineItem(li))
		}
		p.LineItems = &items
	}

	var err error
	for _, f := range []struct {
		name string
		in   *string
		out  **time.Time
	}{
		{"issueDate", req.IssueDate, &p.IssueDate},
		{"dueDate", req.DueDate, &p.DueDate},
		{"validUntil", req.ValidUntil, &p.ValidUntil},
	} {
		if f.in == nil {
			continue
		}
		if *f.out, err = parseDate(f.name, *f.in); err != nil {
			return domain.ContentPatch{}, err
		}
	}
	return p, nil
}

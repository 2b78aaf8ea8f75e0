package http

import (
	"net/http"

	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/pkg/httpx"
)

const sendBodyLimit = 1 << 20

type SendHandler struct {
	SendService *service.SendService
}

// ServeHTTP runs the send pipeline for one document.
//
//	@Summary		Send a document by e-mail
//	@Description	Renders the invoice or offer as PDF and mails it from the platform address on behalf of a verified sender identity.
//	@Description	When contentDigest is supplied the stored document (and legacyDocument, if given) must still hash to it.
//	@Tags			Documents
//	@Accept			json
//	@Produce		json
//	@Param			request	body		service.SendInput	true	"Send request"
//	@Success		200		{object}	service.SendResult	"Wrapped in {ok:true,data}"
//	@Failure		400		{object}	ErrorResponse		"validation_failed"
//	@Failure		401		{object}	ErrorResponse		"unauthorized"
//	@Failure		404		{object}	ErrorResponse		"not_found"
//	@Failure		409		{object}	ErrorResponse		"stale_document, operation_not_permitted, sender_not_verified"
//	@Failure		429		{object}	ErrorResponse		"rate_limited"
//	@Failure		501		{object}	ErrorResponse		"not_configured"
//	@Failure		500		{object}	ErrorResponse		"upstream_failure, internal_error"
//	@Security		BearerAuth
//	@Router			/v1/documents/send [post].
func (h *SendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var in service.SendInput
	if err := httpx.DecodeJSON(r, &in, sendBodyLimit); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	in.Credential, _ = httpx.BearerToken(r)
	in.ClientIP = httpx.IPKeyExtractor(r)

	res, err := h.SendService.Send(r.Context(), in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, res)
}

package http

import (
	"net/http"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/pkg/httpx"
)

const identityBodyLimit = 16 << 10

type SenderIdentitiesHandler struct {
	SenderIdentityService *service.SenderIdentityService
}

func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		writeErr(w, r, apperr.Auth("missing principal"))
	}
	return id, ok
}

func requestMeta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{IP: httpx.IPKeyExtractor(r), UserAgent: r.UserAgent()}
}

// HandleCreate registers a sender address and mails a verification link.
//
//	@Summary		Create a sender identity
//	@Description	Creates a pending identity (or reuses a pending one) and mails a one-time verification link valid for 24 hours.
//	@Description	An already verified address is returned unchanged; a disabled one is never reactivated.
//	@Tags			Sender identities
//	@Accept			json
//	@Produce		json
//	@Param			request	body		service.CreateIdentityInput	true	"Address and display name"
//	@Success		201		{object}	SenderIdentityResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"identity_disabled"
//	@Failure		429		{object}	ErrorResponse	"rate_limited, cooldown"
//	@Failure		500		{object}	ErrorResponse	"upstream_failure"
//	@Failure		501		{object}	ErrorResponse	"not_configured"
//	@Security		BearerAuth
//	@Router			/v1/sender-identities [post].
func (h *SenderIdentitiesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in service.CreateIdentityInput
	if err := httpx.DecodeJSON(r, &in, identityBodyLimit); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	si, err := h.SenderIdentityService.Create(r.Context(), ownerID, in, requestMeta(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	status := http.StatusCreated
	if si.Status == domain.IdentityVerified {
		status = http.StatusOK
	}
	httpx.WriteOK(w, status, toSenderIdentityResponse(si))
}

// HandleList lists the caller's sender identities.
//
//	@Summary	List sender identities
//	@Tags		Sender identities
//	@Produce	json
//	@Success	200	{array}		SenderIdentityResponse
//	@Failure	401	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/sender-identities [get].
func (h *SenderIdentitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	list, err := h.SenderIdentityService.List(r.Context(), ownerID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := make([]SenderIdentityResponse, 0, len(list))
	for _, si := range list {
		out = append(out, toSenderIdentityResponse(si))
	}
	httpx.WriteOK(w, http.StatusOK, out)
}

// HandleResend mails a fresh link; older links stop working.
//
//	@Summary	Resend the verification link
//	@Tags		Sender identities
//	@Produce	json
//	@Param		id	path		string	true	"Sender identity ID"
//	@Success	200	{object}	SenderIdentityResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	409	{object}	ErrorResponse	"already_verified, identity_disabled"
//	@Failure	429	{object}	ErrorResponse	"cooldown"
//	@Failure	500	{object}	ErrorResponse	"upstream_failure"
//	@Failure	501	{object}	ErrorResponse	"not_configured"
//	@Security	BearerAuth
//	@Router		/v1/sender-identities/{id}/resend [post].
func (h *SenderIdentitiesHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	si, err := h.SenderIdentityService.Resend(r.Context(), ownerID, r.PathValue("id"), requestMeta(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, toSenderIdentityResponse(si))
}

// HandleDisable retires an identity for good.
//
//	@Summary	Disable a sender identity
//	@Tags		Sender identities
//	@Produce	json
//	@Param		id	path		string	true	"Sender identity ID"
//	@Success	200	{object}	SenderIdentityResponse
//	@Failure	404	{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/sender-identities/{id}/disable [post].
func (h *SenderIdentitiesHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	si, err := h.SenderIdentityService.Disable(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, toSenderIdentityResponse(si))
}

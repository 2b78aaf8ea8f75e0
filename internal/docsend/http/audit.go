package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/pkg/httpx"
)

type AuditHandler struct {
	AuditTrail *service.AuditTrail
}

// ServeHTTP lists the caller's audit events, newest first.
//
//	@Summary	List audit events
//	@Tags		Audit
//	@Produce	json
//	@Param		entityType	query		string	false	"document or sender_identity"
//	@Param		entityId	query		string	false	"Entity ID"
//	@Param		limit		query		int		false	"Max events (default 100, max 1000)"
//	@Success	200			{array}		AuditEventResponse
//	@Failure	401			{object}	ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/audit-events [get].
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := store.AuditFilter{
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	events, err := h.AuditTrail.List(r.Context(), ownerID, f)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, AuditEventResponse{
			ID:         e.ID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt,
		})
	}
	httpx.WriteOK(w, http.StatusOK, out)
}

package docsendsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListAuditEvents returns the caller's audit trail, newest first.
func (s *Session) ListAuditEvents(ctx context.Context, q AuditQuery) ([]AuditEvent, error) {
	if err := s.requireScope(ScopeRead); err != nil {
		return nil, err
	}

	v := url.Values{}
	if q.EntityType != "" {
		v.Set("entityType", q.EntityType)
	}
	if q.EntityID != "" {
		v.Set("entityId", q.EntityID)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/v1/audit-events"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	resp, err := s.client.doRequest(ctx, http.MethodGet, path, s.token, nil, nil)
	if err != nil {
		return nil, err
	}

	var out []AuditEvent
	if err := decodeData(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

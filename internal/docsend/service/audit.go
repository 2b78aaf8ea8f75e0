package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
	"github.com/aussiebroadwan/docsend/pkg/idx"
)

// AuditTrail appends and lists audit events. Record always goes through a
// caller-supplied repository so the event commits with the change it
// describes.
type AuditTrail struct {
	Store store.Store
	Now   func() time.Time
}

func (a *AuditTrail) Record(ctx context.Context, repo store.AuditEvents, e domain.AuditEvent) error {
	now := nowFrom(a.Now)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.ID == "" {
		e.ID = idx.NewAt(e.CreatedAt).String()
	}
	return repo.AppendAuditEvent(ctx, e)
}

func (a *AuditTrail) List(ctx context.Context, ownerID string, f store.AuditFilter) ([]domain.AuditEvent, error) {
	events, err := a.Store.AuditEvents().ListAuditEvents(ctx, ownerID, f)
	if err != nil {
		return nil, mapStoreErr(err, "audit events")
	}
	return events, nil
}

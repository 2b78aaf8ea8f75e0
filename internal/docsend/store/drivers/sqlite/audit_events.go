package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
)

type auditEventsRepo struct {
	db dbtx
}

const defaultAuditLimit = 100

func (r *auditEventsRepo) AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	meta := "{}"
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		meta = string(b)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, owner_id, action, entity_type, entity_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Action, e.EntityType, e.EntityID, meta, e.CreatedAt.UTC(),
	)
	return err
}

func (r *auditEventsRepo) ListAuditEvents(ctx context.Context, ownerID string, f store.AuditFilter) ([]domain.AuditEvent, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{ownerID}
	)
	if f.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, f.EntityType)
	}
	if f.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultAuditLimit
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, action, entity_type, entity_id, metadata, created_at
		FROM audit_events
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var (
			e    domain.AuditEvent
			meta string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Action, &e.EntityType, &e.EntityID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode audit metadata: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

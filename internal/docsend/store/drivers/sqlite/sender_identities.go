package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
	"github.com/aussiebroadwan/docsend/internal/docsend/store"
)

type senderIdentitiesRepo struct {
	db dbtx
}

const senderIdentityColumns = `id, owner_id, email, display_name, status, verified_at,
	last_verification_sent_at, last_used_at, created_at, updated_at`

func scanSenderIdentity(row rowScanner) (domain.SenderIdentity, error) {
	var (
		si                             domain.SenderIdentity
		status                         string
		verifiedAt, lastSent, lastUsed sql.NullTime
	)
	err := row.Scan(&si.ID, &si.OwnerID, &si.Email, &si.DisplayName, &status,
		&verifiedAt, &lastSent, &lastUsed, &si.CreatedAt, &si.UpdatedAt)
	if err != nil {
		return domain.SenderIdentity{}, mapNotFound(err)
	}
	si.Status = domain.IdentityStatus(status)
	si.VerifiedAt = mapNullTimePtr(verifiedAt)
	si.LastVerificationSentAt = mapNullTimePtr(lastSent)
	si.LastUsedAt = mapNullTimePtr(lastUsed)
	si.CreatedAt = si.CreatedAt.UTC()
	si.UpdatedAt = si.UpdatedAt.UTC()
	return si, nil
}

func (r *senderIdentitiesRepo) GetSenderIdentity(ctx context.Context, id string) (domain.SenderIdentity, error) {
	return scanSenderIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+senderIdentityColumns+` FROM sender_identities WHERE id = ?`, id))
}

func (r *senderIdentitiesRepo) GetOwnedSenderIdentity(ctx context.Context, ownerID, id string) (domain.SenderIdentity, error) {
	return scanSenderIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+senderIdentityColumns+` FROM sender_identities WHERE id = ? AND owner_id = ?`, id, ownerID))
}

func (r *senderIdentitiesRepo) GetSenderIdentityByEmail(ctx context.Context, ownerID, email string) (domain.SenderIdentity, error) {
	return scanSenderIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+senderIdentityColumns+` FROM sender_identities WHERE owner_id = ? AND email = ?`, ownerID, email))
}

func (r *senderIdentitiesRepo) CreateSenderIdentity(ctx context.Context, si domain.SenderIdentity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sender_identities (`+senderIdentityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		si.ID, si.OwnerID, si.Email, si.DisplayName, string(si.Status),
		mapOptionalTime(si.VerifiedAt), mapOptionalTime(si.LastVerificationSentAt), mapOptionalTime(si.LastUsedAt),
		si.CreatedAt.UTC(), si.UpdatedAt.UTC(),
	)
	return mapUnique(err)
}

func (r *senderIdentitiesRepo) ListSenderIdentities(ctx context.Context, ownerID string) ([]domain.SenderIdentity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+senderIdentityColumns+` FROM sender_identities WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SenderIdentity
	for rows.Next() {
		si, err := scanSenderIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

func (r *senderIdentitiesRepo) UpdateDisplayName(ctx context.Context, id, displayName string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sender_identities SET display_name = ?, updated_at = ? WHERE id = ? AND status = 'pending'`,
		displayName, at.UTC(), id)
	return expectOne(res, err, store.ErrConflict)
}

func (r *senderIdentitiesRepo) MarkVerificationSent(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sender_identities SET last_verification_sent_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), at.UTC(), id)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *senderIdentitiesRepo) MarkVerified(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sender_identities
		SET status = 'verified', verified_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		at.UTC(), at.UTC(), id)
	return expectOne(res, err, store.ErrConflict)
}

func (r *senderIdentitiesRepo) Disable(ctx context.Context, ownerID, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sender_identities
		SET status = 'disabled',
		    updated_at = CASE WHEN status = 'disabled' THEN updated_at ELSE ? END
		WHERE id = ? AND owner_id = ?`,
		at.UTC(), id, ownerID)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *senderIdentitiesRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sender_identities SET last_used_at = ? WHERE id = ?`, at.UTC(), id)
	return expectOne(res, err, store.ErrNotFound)
}

func (r *senderIdentitiesRepo) CountVerified(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sender_identities WHERE owner_id = ? AND status = 'verified'`, ownerID,
	).Scan(&n)
	return n, err
}

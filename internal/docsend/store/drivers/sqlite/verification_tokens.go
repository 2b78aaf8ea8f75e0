package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
)

type verificationTokensRepo struct {
	db dbtx
}

func (r *verificationTokensRepo) CreateVerificationToken(ctx context.Context, t domain.VerificationToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_tokens
		    (id, sender_identity_id, token_hash, expires_at, used_at, superseded_at, request_ip, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SenderIdentityID, t.TokenHash, t.ExpiresAt.UTC(),
		mapOptionalTime(t.UsedAt), mapOptionalTime(t.SupersededAt),
		t.RequestIP, t.UserAgent, t.CreatedAt.UTC(),
	)
	return mapUnique(err)
}

func (r *verificationTokensRepo) GetVerificationTokenByHash(ctx context.Context, hash string) (domain.VerificationToken, error) {
	var (
		t                    domain.VerificationToken
		usedAt, supersededAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sender_identity_id, token_hash, expires_at, used_at, superseded_at, request_ip, user_agent, created_at
		FROM verification_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.SenderIdentityID, &t.TokenHash, &t.ExpiresAt, &usedAt, &supersededAt,
		&t.RequestIP, &t.UserAgent, &t.CreatedAt)
	if err != nil {
		return domain.VerificationToken{}, mapNotFound(err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UsedAt = mapNullTimePtr(usedAt)
	t.SupersededAt = mapNullTimePtr(supersededAt)
	return t, nil
}

func (r *verificationTokensRepo) SupersedeActive(ctx context.Context, senderIdentityID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verification_tokens SET superseded_at = ?
		WHERE sender_identity_id = ? AND used_at IS NULL AND superseded_at IS NULL`,
		at.UTC(), senderIdentityID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *verificationTokensRepo) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE verification_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`, at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *verificationTokensRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

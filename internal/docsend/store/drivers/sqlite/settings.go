package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/docsend/internal/docsend/domain"
)

type settingsRepo struct {
	db dbtx
}

func (r *settingsRepo) GetOwnerSettings(ctx context.Context, ownerID string) (domain.OwnerSettings, error) {
	var (
		s         domain.OwnerSettings
		defaultID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT owner_id, company_name, email_signature, default_sender_identity_id
		FROM owner_settings WHERE owner_id = ?`, ownerID,
	).Scan(&s.OwnerID, &s.CompanyName, &s.EmailSignature, &defaultID)
	if err != nil {
		return domain.OwnerSettings{}, mapNotFound(err)
	}
	s.DefaultSenderIdentityID = mapNullString(defaultID)
	return s, nil
}

func (r *settingsRepo) UpsertOwnerSettings(ctx context.Context, s domain.OwnerSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO owner_settings (owner_id, company_name, email_signature, default_sender_identity_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
		    company_name = excluded.company_name,
		    email_signature = excluded.email_signature,
		    default_sender_identity_id = excluded.default_sender_identity_id`,
		s.OwnerID, s.CompanyName, s.EmailSignature, mapStringNull(s.DefaultSenderIdentityID),
	)
	return err
}

type clientsRepo struct {
	db dbtx
}

func (r *clientsRepo) GetClient(ctx context.Context, ownerID, id string) (domain.Client, error) {
	var c domain.Client
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, email FROM clients WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	return c, nil
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (id, owner_id, name, email) VALUES (?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Email)
	return mapUnique(err)
}

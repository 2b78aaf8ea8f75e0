package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/docsend/internal/docsend/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // outer DB stays open

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Documents() store.Documents               { return &documentsRepo{db: t.tx} }
func (t *txStore) SenderIdentities() store.SenderIdentities { return &senderIdentitiesRepo{db: t.tx} }
func (t *txStore) VerificationTokens() store.VerificationTokens {
	return &verificationTokensRepo{db: t.tx}
}
func (t *txStore) AuditEvents() store.AuditEvents { return &auditEventsRepo{db: t.tx} }
func (t *txStore) Settings() store.Settings       { return &settingsRepo{db: t.tx} }
func (t *txStore) Clients() store.Clients         { return &clientsRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx

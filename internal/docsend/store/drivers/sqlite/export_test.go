package sqlite

import (
	"context"

	"github.com/aussiebroadwan/docsend/internal/docsend/store"
)

// ExecForTest runs raw SQL on a transaction opened by this driver.
func ExecForTest(ctx context.Context, tx store.Tx, query string) error {
	_, err := tx.(*txStore).tx.ExecContext(ctx, query)
	return err
}

package database

import (
	"context"

	"gorm.io/gorm"
)

// txKey is the context key used to store transactions
type txKey struct{}

// transactionFromContext extracts a transaction from the context
func transactionFromContext(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	if !ok {
		return nil
	}
	return tx
}

// contextWithTransaction creates a context containing a transaction
func contextWithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// conn returns the DB handle, preferring a transaction bound to the context.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx := transactionFromContext(ctx); tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

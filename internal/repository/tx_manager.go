package repository

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
// Every multi-step mutation in the BOM core (version allocation, approve,
// activate, per-plant seeding) runs inside exactly one RunInTx call and rolls
// back fully on error.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
	// RunInSavepoint runs fn under a savepoint of the enclosing transaction.
	// On Postgres a failed statement aborts the whole transaction; rolling
	// back to the savepoint confines the failure to fn so the caller can keep
	// using the transaction. Outside a transaction it behaves like RunInTx.
	RunInSavepoint(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

func (t *transactionManager) RunInSavepoint(ctx context.Context, fn func(txCtx context.Context) error) error {
	// gorm's nested Transaction on a tx handle emits SAVEPOINT / ROLLBACK TO.
	return GetDB(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	})
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

package repositories

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type txKey struct{}

type txState struct {
	db *gorm.DB

	mu          sync.Mutex
	afterCommit []func()
}

// ExecuteInTransaction runs fn inside one database transaction. Every
// repository called with the context fn receives joins that transaction.
// Nested calls reuse the outer transaction, so fn commits or rolls back
// together with its caller.
func ExecuteInTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	state := &txState{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.db = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
	if err != nil {
		return err
	}
	for _, hook := range state.afterCommit {
		hook()
	}
	return nil
}

// AfterCommit defers hook until the transaction carried by ctx commits.
// Outside a transaction hook runs immediately; after a rollback it never runs.
func AfterCommit(ctx context.Context, hook func()) {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		hook()
		return
	}
	state.mu.Lock()
	state.afterCommit = append(state.afterCommit, hook)
	state.mu.Unlock()
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.db.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

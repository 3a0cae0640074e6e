// Package txn describes the unit-of-work boundary shared by the use cases.
//
// A transaction is carried on the context. Repositories pick it up from
// there, so a use case can compose several repository calls (and other use
// cases) into one atomic unit by wrapping them in Manager.WithinTx.
package txn

import (
	"context"
	"sync"
)

type Manager interface {
	// WithinTx runs fn inside a transaction. If ctx already carries one, fn
	// joins it and the outermost caller decides commit or rollback.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type hooksKey struct{}

// Hooks collects callbacks that must only run once the outermost
// transaction has committed.
type Hooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// WithHooks attaches a fresh hook list to ctx. Managers call it when they
// open an outermost transaction.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// Run executes the collected hooks in registration order.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// AfterCommit defers fn until the transaction on ctx commits. It is dropped
// on rollback. Without a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	h, ok := ctx.Value(hooksKey{}).(*Hooks)
	if !ok {
		fn(ctx)
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

package memory

import (
	"context"

	"driveme/internal/ports"
)

// UnitOfWork is a pass-through transaction boundary for the memory store.
// The ledger's own lock provides the serialization a real tx would.
type UnitOfWork struct{}

// NewUnitOfWork constructs a pass-through unit of work.
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{}
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// WithinTx runs fn directly with the caller's context.
func (uow *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

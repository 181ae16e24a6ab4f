package ports

import (
	"context"
	"time"

	"driveme/internal/domain/request"
)

// UnitOfWork runs a function within a storage transaction. Implementations
// without transactional storage may simply invoke fn.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RequestLedger owns the canonical collection of ride requests. It is the only
// component permitted to mutate request status, and every transition method
// serializes per id: under concurrent contention exactly one of cancel, match
// and expire succeeds, the losers observe request.ErrConflict.
type RequestLedger interface {
	// Create persists a new PENDING request and assigns its id.
	Create(ctx context.Context, req *request.RideRequest) error

	// GetByID returns the request or request.ErrNotFound.
	GetByID(ctx context.Context, id string) (*request.RideRequest, error)

	// ListByRequester returns the requester's requests, newest first.
	ListByRequester(ctx context.Context, requesterID string) ([]*request.RideRequest, error)

	// ListPending returns all currently PENDING requests, newest first.
	ListPending(ctx context.Context) ([]*request.RideRequest, error)

	// ListPendingIDsOlderThan returns ids of PENDING requests created before cutoff.
	ListPendingIDsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)

	// Cancel applies the owner-only PENDING -> CANCELLED transition.
	Cancel(ctx context.Context, id, requesterID string) (*request.RideRequest, error)

	// MarkMatched applies the PENDING -> MATCHED transition.
	MarkMatched(ctx context.Context, id string) (*request.RideRequest, error)

	// Expire applies PENDING -> EXPIRED; a no-op on non-PENDING requests.
	Expire(ctx context.Context, id string) (*request.RideRequest, error)
}

// PassengerDirectory resolves requester identities. It is an external
// collaborator: account management itself is out of scope.
type PassengerDirectory interface {
	// Resolve confirms the passenger exists and is active. Returns
	// request.ErrNotFound or request.ErrRequesterInactive otherwise.
	Resolve(ctx context.Context, passengerID string) error
}

// VehicleDirectory looks up vehicle ownership, also externally owned.
type VehicleDirectory interface {
	// OwnerOf returns the owning passenger id or request.ErrNotFound.
	OwnerOf(ctx context.Context, vehicleID string) (string, error)
}

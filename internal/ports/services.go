package ports

import (
	"context"
	"time"

	"driveme/internal/domain/geo"
	"driveme/internal/domain/pricing"
	"driveme/internal/domain/request"
)

// CreateRequestInput carries a passenger's ride submission.
type CreateRequestInput struct {
	RequesterID   string
	Pickup        geo.Location
	Destination   geo.Location
	RequestedTime time.Time
	WithPet       bool
	VehicleID     string // optional
}

// RequestService orchestrates the ride request lifecycle: validation, pricing,
// the ledger write, and the driver broadcast.
type RequestService interface {
	// CreateRequest validates the requester (and vehicle ownership when a
	// vehicle is given), prices the trip, persists a PENDING request, and
	// broadcasts it to subscribed drivers. The durable write happens before
	// the broadcast.
	CreateRequest(ctx context.Context, in CreateRequestInput) (*request.RideRequest, error)

	// CancelRequest cancels an open request on behalf of its owner.
	CancelRequest(ctx context.Context, requestID, requesterID string) (*request.RideRequest, error)

	// MatchRequest records an externally decided match outcome.
	MatchRequest(ctx context.Context, requestID string) (*request.RideRequest, error)

	// ExpireRequest expires an open request; idempotent on non-PENDING ones.
	ExpireRequest(ctx context.Context, requestID string) (*request.RideRequest, error)

	// ExpireStale expires every PENDING request older than olderThan and
	// returns how many transitions were applied.
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)

	GetRequest(ctx context.Context, requestID string) (*request.RideRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*request.RideRequest, error)
	ListPending(ctx context.Context) ([]*request.RideRequest, error)

	// PreviewPrice and PreviewPriceByDistance are pure preview operations
	// with no side effects, callable before a request is created.
	PreviewPrice(pickup, destination geo.Location) pricing.Estimate
	PreviewPriceByDistance(distanceKM float64) pricing.Estimate
}

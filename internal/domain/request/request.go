package request

import (
	"strings"
	"time"

	"driveme/internal/domain/geo"
	"driveme/internal/domain/pricing"
)

// RideRequest is the domain entity corresponding to the `ride_requests` table.
// The price estimate is fixed at creation and never recomputed.
type RideRequest struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Actors
	RequesterID string
	VehicleID   *string // requester's own vehicle, if specified

	// Trip details
	RequestedTime time.Time
	WithPet       bool
	Pickup        geo.Location
	Destination   geo.Location

	// Pricing, computed once at creation
	Price pricing.Estimate

	// Lifecycle
	Status Status
}

// NewRideRequest constructs a ride request in PENDING state.
func NewRideRequest(requesterID string, pickup, destination geo.Location, requestedTime time.Time, withPet bool, vehicleID string, price pricing.Estimate) (*RideRequest, error) {
	if requesterID = strings.TrimSpace(requesterID); requesterID == "" {
		return nil, ErrRequesterRequired
	}
	if pickup.IsZero() || destination.IsZero() {
		return nil, ErrInvalidInput
	}
	if requestedTime.IsZero() {
		requestedTime = time.Now().UTC()
	}

	now := time.Now().UTC()
	req := &RideRequest{
		CreatedAt:     now,
		UpdatedAt:     now,
		RequesterID:   requesterID,
		RequestedTime: requestedTime.UTC(),
		WithPet:       withPet,
		Pickup:        pickup,
		Destination:   destination,
		Price:         price,
		Status:        StatusPending,
	}
	if vehicleID = strings.TrimSpace(vehicleID); vehicleID != "" {
		req.VehicleID = &vehicleID
	}

	return req, nil
}

// DistanceKM returns the trip distance the price was derived from.
func (req *RideRequest) DistanceKM() float64 {
	return req.Price.DistanceKM
}

// Cancel transitions PENDING -> CANCELLED. Only the original requester may
// cancel; a request that already left PENDING yields ErrConflict.
func (req *RideRequest) Cancel(requesterID string) error {
	if req.RequesterID != strings.TrimSpace(requesterID) {
		return ErrForbidden
	}
	if req.Status != StatusPending {
		return ErrConflict
	}
	req.setStatus(StatusCancelled)
	return nil
}

// MarkMatched transitions PENDING -> MATCHED. Which driver was chosen is
// decided outside this core; this only records the outcome.
func (req *RideRequest) MarkMatched() error {
	if req.Status != StatusPending {
		return ErrConflict
	}
	req.setStatus(StatusMatched)
	return nil
}

// Expire transitions PENDING -> EXPIRED. Unlike Cancel and MarkMatched it is
// idempotent: expiring a non-PENDING request is a no-op, not an error.
func (req *RideRequest) Expire() {
	if req.Status != StatusPending {
		return
	}
	req.setStatus(StatusExpired)
}

// Clone returns a copy safe to hand out across goroutines.
func (req *RideRequest) Clone() *RideRequest {
	cp := *req
	if req.VehicleID != nil {
		v := *req.VehicleID
		cp.VehicleID = &v
	}
	return &cp
}

// ----- internal helpers -----

func (req *RideRequest) setStatus(status Status) {
	req.Status = status
	req.UpdatedAt = time.Now().UTC()
}

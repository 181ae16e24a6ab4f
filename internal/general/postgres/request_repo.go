package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"driveme/internal/domain/geo"
	"driveme/internal/domain/pricing"
	"driveme/internal/domain/request"
	"driveme/internal/ports"

	"github.com/jackc/pgx/v5"
)

// RequestRepo persists ride requests using pgx and plain SQL. Lifecycle
// transitions lock the row (FOR UPDATE) so concurrent callers serialize per id.
type RequestRepo struct{}

// NewRequestRepo constructs a new RequestRepo.
func NewRequestRepo() ports.RequestLedger {
	return &RequestRepo{}
}

const requestColumns = `
	id, created_at, updated_at, requester_id, vehicle_id,
	requested_time, with_pet,
	pickup_lat, pickup_lng, pickup_address,
	dest_lat, dest_lng, dest_address,
	price_min, price_max, price_currency, distance_km,
	status`

// Create inserts a new ride request row and assigns its generated id.
func (repo *RequestRepo) Create(ctx context.Context, req *request.RideRequest) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO ride_requests (
			requester_id, vehicle_id, requested_time, with_pet,
			pickup_lat, pickup_lng, pickup_address,
			dest_lat, dest_lng, dest_address,
			price_min, price_max, price_currency, distance_km,
			status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`,
		req.RequesterID,
		req.VehicleID,
		req.RequestedTime,
		req.WithPet,
		req.Pickup.Latitude, req.Pickup.Longitude, req.Pickup.Address,
		req.Destination.Latitude, req.Destination.Longitude, req.Destination.Address,
		req.Price.MinAmount, req.Price.MaxAmount, req.Price.Currency, req.Price.DistanceKM,
		req.Status.String(),
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ride request: %w", err)
	}

	return nil
}

// GetByID fetches a ride request by primary key (uuid).
func (repo *RequestRepo) GetByID(ctx context.Context, id string) (*request.RideRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT`+requestColumns+` FROM ride_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrNotFound
		}
		return nil, fmt.Errorf("get ride request: %w", err)
	}
	return req, nil
}

// ListByRequester returns the requester's requests, newest first.
func (repo *RequestRepo) ListByRequester(ctx context.Context, requesterID string) ([]*request.RideRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT`+requestColumns+`
		FROM ride_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC
	`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("query requests by requester: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ListPending returns every currently PENDING request, newest first. This is
// the feed drivers poll when they are not on the broadcast channel.
func (repo *RequestRepo) ListPending(ctx context.Context) ([]*request.RideRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT`+requestColumns+`
		FROM ride_requests
		WHERE status = $1
		ORDER BY created_at DESC
	`, request.StatusPending.String())
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ListPendingIDsOlderThan returns ids of PENDING requests created before cutoff.
func (repo *RequestRepo) ListPendingIDsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id
		FROM ride_requests
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
	`, request.StatusPending.String(), cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stale pending requests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan request id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

// Cancel applies the owner-only PENDING -> CANCELLED transition.
func (repo *RequestRepo) Cancel(ctx context.Context, id, requesterID string) (*request.RideRequest, error) {
	return repo.transition(ctx, id, func(req *request.RideRequest) error {
		return req.Cancel(requesterID)
	})
}

// MarkMatched applies the PENDING -> MATCHED transition.
func (repo *RequestRepo) MarkMatched(ctx context.Context, id string) (*request.RideRequest, error) {
	return repo.transition(ctx, id, func(req *request.RideRequest) error {
		return req.MarkMatched()
	})
}

// Expire applies PENDING -> EXPIRED; already non-PENDING rows pass unchanged.
func (repo *RequestRepo) Expire(ctx context.Context, id string) (*request.RideRequest, error) {
	return repo.transition(ctx, id, func(req *request.RideRequest) error {
		req.Expire()
		return nil
	})
}

// transition locks the row, applies the domain guard, and persists the new
// status. The row lock is what makes concurrent transitions on one id
// first-come-first-served: losers re-read a non-PENDING status and get the
// guard's conflict error.
func (repo *RequestRepo) transition(ctx context.Context, id string, apply func(*request.RideRequest) error) (*request.RideRequest, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT`+requestColumns+` FROM ride_requests WHERE id = $1 FOR UPDATE`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, request.ErrNotFound
		}
		return nil, fmt.Errorf("lock ride request: %w", err)
	}

	before := req.Status
	if err := apply(req); err != nil {
		return nil, err
	}
	if req.Status == before {
		// idempotent no-op (expire on a settled request)
		return req, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE ride_requests
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, req.Status.String(), req.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update ride request status: %w", err)
	}

	return req, nil
}

// ----- scanning helpers -----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*request.RideRequest, error) {
	var (
		req      request.RideRequest
		status   string
		price    pricing.Estimate
		pickup   geo.Location
		dest     geo.Location
		currency string
	)

	err := row.Scan(
		&req.ID, &req.CreatedAt, &req.UpdatedAt, &req.RequesterID, &req.VehicleID,
		&req.RequestedTime, &req.WithPet,
		&pickup.Latitude, &pickup.Longitude, &pickup.Address,
		&dest.Latitude, &dest.Longitude, &dest.Address,
		&price.MinAmount, &price.MaxAmount, &currency, &price.DistanceKM,
		&status,
	)
	if err != nil {
		return nil, err
	}

	price.Currency = currency
	req.Pickup = pickup
	req.Destination = dest
	req.Price = price
	req.Status = request.Status(status)

	return &req, nil
}

func collectRequests(rows pgx.Rows) ([]*request.RideRequest, error) {
	var out []*request.RideRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

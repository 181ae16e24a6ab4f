package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"driveme/internal/domain/request"
	"driveme/internal/ports"

	"github.com/jackc/pgx/v5"
)

// PassengerDirectory resolves requester accounts against the shared accounts
// schema. Account CRUD itself is owned by another service; this only reads.
type PassengerDirectory struct{}

// NewPassengerDirectory constructs a PassengerDirectory.
func NewPassengerDirectory() ports.PassengerDirectory {
	return &PassengerDirectory{}
}

// Resolve confirms the passenger exists and is active.
func (dir *PassengerDirectory) Resolve(ctx context.Context, passengerID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var status string
	err = tx.QueryRow(ctx, `
		SELECT status FROM passengers WHERE id = $1
	`, passengerID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return request.ErrNotFound
		}
		return fmt.Errorf("resolve passenger: %w", err)
	}

	if !strings.EqualFold(status, "ACTIVE") {
		return request.ErrRequesterInactive
	}
	return nil
}

// VehicleDirectory reads vehicle ownership from the shared vehicles table.
type VehicleDirectory struct{}

// NewVehicleDirectory constructs a VehicleDirectory.
func NewVehicleDirectory() ports.VehicleDirectory {
	return &VehicleDirectory{}
}

// OwnerOf returns the owning passenger id for a vehicle.
func (dir *VehicleDirectory) OwnerOf(ctx context.Context, vehicleID string) (string, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return "", err
	}

	var ownerID string
	err = tx.QueryRow(ctx, `
		SELECT passenger_id FROM vehicles WHERE id = $1
	`, vehicleID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", request.ErrNotFound
		}
		return "", fmt.Errorf("resolve vehicle owner: %w", err)
	}

	return ownerID, nil
}

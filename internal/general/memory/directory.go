package memory

import (
	"context"
	"sync"

	"driveme/internal/domain/request"
	"driveme/internal/ports"
)

// PassengerDirectory is an in-process passenger registry for memory-store runs.
type PassengerDirectory struct {
	mu       sync.RWMutex
	inactive map[string]bool
	known    map[string]bool
	openReg  bool
}

// NewPassengerDirectory returns a directory that accepts every passenger id.
// Registered ids can still be marked inactive to exercise validation paths.
func NewPassengerDirectory() *PassengerDirectory {
	return &PassengerDirectory{
		inactive: make(map[string]bool),
		known:    make(map[string]bool),
		openReg:  true,
	}
}

// NewClosedPassengerDirectory returns a directory that only knows registered ids.
func NewClosedPassengerDirectory() *PassengerDirectory {
	directory := NewPassengerDirectory()
	directory.openReg = false
	return directory
}

var _ ports.PassengerDirectory = (*PassengerDirectory)(nil)

// Register adds a passenger id, active by default.
func (directory *PassengerDirectory) Register(passengerID string) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	directory.known[passengerID] = true
	delete(directory.inactive, passengerID)
}

// Deactivate marks a passenger id inactive.
func (directory *PassengerDirectory) Deactivate(passengerID string) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	directory.known[passengerID] = true
	directory.inactive[passengerID] = true
}

// Resolve reports whether the passenger may open requests.
func (directory *PassengerDirectory) Resolve(_ context.Context, passengerID string) error {
	directory.mu.RLock()
	defer directory.mu.RUnlock()

	if directory.inactive[passengerID] {
		return request.ErrRequesterInactive
	}
	if !directory.openReg && !directory.known[passengerID] {
		return request.ErrNotFound
	}
	return nil
}

// VehicleDirectory is an in-process vehicle registry keyed by vehicle id.
type VehicleDirectory struct {
	mu     sync.RWMutex
	owners map[string]string
}

// NewVehicleDirectory returns an empty vehicle registry.
func NewVehicleDirectory() *VehicleDirectory {
	return &VehicleDirectory{owners: make(map[string]string)}
}

var _ ports.VehicleDirectory = (*VehicleDirectory)(nil)

// Register records a vehicle and its owning passenger.
func (directory *VehicleDirectory) Register(vehicleID, passengerID string) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	directory.owners[vehicleID] = passengerID
}

// OwnerOf returns the owning passenger id or request.ErrNotFound.
func (directory *VehicleDirectory) OwnerOf(_ context.Context, vehicleID string) (string, error) {
	directory.mu.RLock()
	defer directory.mu.RUnlock()

	owner, ok := directory.owners[vehicleID]
	if !ok {
		return "", request.ErrNotFound
	}
	return owner, nil
}

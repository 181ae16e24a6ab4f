package request

import "errors"

// Error kinds surfaced by the ledger and the coordinator. Callers map these
// to externally observable outcomes (HTTP 404/403/409/400).
var (
	ErrNotFound          = errors.New("ride request not found")
	ErrForbidden         = errors.New("caller does not own this ride request")
	ErrConflict          = errors.New("ride request is no longer pending")
	ErrInvalidInput      = errors.New("invalid ride request input")
	ErrRequesterRequired = errors.New("requester id is required")
	ErrRequesterInactive = errors.New("requester account is not active")
	ErrVehicleNotOwned   = errors.New("vehicle does not belong to the requester")
)

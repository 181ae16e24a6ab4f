package request

import (
	"errors"
	"strings"
)

// Status is the lifecycle state of a ride request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusMatched   Status = "MATCHED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

var ErrInvalidStatus = errors.New("invalid ride request status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusMatched, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Terminal indicates whether no further transition is defined out of status.
func (status Status) Terminal() bool {
	return status == StatusMatched || status == StatusCancelled || status == StatusExpired
}

// CanTransitionTo specifies if the status can transition to the next status.
func (status Status) CanTransitionTo(next Status) bool {
	if status != StatusPending {
		return false
	}
	return next == StatusMatched || next == StatusCancelled || next == StatusExpired
}

package service

import (
	"context"

	"driveme/internal/domain/request"
)

// GetRequest returns a single ride request by id.
func (service *requestService) GetRequest(ctx context.Context, requestID string) (*request.RideRequest, error) {
	var req *request.RideRequest

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		found, err := service.ledger.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		req = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}

// ListByRequester returns the requester's ride requests, newest first.
func (service *requestService) ListByRequester(ctx context.Context, requesterID string) ([]*request.RideRequest, error) {
	var reqs []*request.RideRequest

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		found, err := service.ledger.ListByRequester(txCtx, requesterID)
		if err != nil {
			return err
		}
		reqs = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reqs, nil
}

// ListPending returns all open ride requests, newest first.
func (service *requestService) ListPending(ctx context.Context) ([]*request.RideRequest, error) {
	var reqs []*request.RideRequest

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		found, err := service.ledger.ListPending(txCtx)
		if err != nil {
			return err
		}
		reqs = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reqs, nil
}

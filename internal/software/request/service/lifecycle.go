package service

import (
	"context"

	"driveme/internal/domain/request"

	"github.com/google/uuid"
)

// MatchRequest records an externally decided match outcome. The matching
// decision itself is made elsewhere; this only settles the request.
func (service *requestService) MatchRequest(ctx context.Context, requestID string) (*request.RideRequest, error) {
	correlationID := uuid.NewString()
	ctx = service.logger.WithRequestID(ctx, correlationID)
	ctx = service.logger.WithRequestRef(ctx, requestID)

	var matched *request.RideRequest

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		req, err := service.ledger.MarkMatched(txCtx, requestID)
		if err != nil {
			return err
		}
		matched = req
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_match_failed", "Failed to mark ride request matched", err, nil)
		return nil, err
	}

	if err := service.relayStatus(ctx, matched.ID, matched.Status.String(), correlationID); err != nil {
		service.logger.Error(ctx, "request_status_relay_failed", "Failed to relay request status to RabbitMQ", err, nil)
	}

	service.logger.Info(ctx, "request_matched", "Ride request marked matched", nil)

	return matched, nil
}

// ExpireRequest expires an open request. Expiring a settled request is a no-op
// that reports the current state, so retries are harmless.
func (service *requestService) ExpireRequest(ctx context.Context, requestID string) (*request.RideRequest, error) {
	correlationID := uuid.NewString()
	ctx = service.logger.WithRequestID(ctx, correlationID)
	ctx = service.logger.WithRequestRef(ctx, requestID)

	var req *request.RideRequest

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		expired, err := service.ledger.Expire(txCtx, requestID)
		if err != nil {
			return err
		}
		req = expired
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_expire_failed", "Failed to expire ride request", err, nil)
		return nil, err
	}

	// only an actual transition is worth relaying
	if req.Status == request.StatusExpired {
		if err := service.relayStatus(ctx, req.ID, req.Status.String(), correlationID); err != nil {
			service.logger.Error(ctx, "request_status_relay_failed", "Failed to relay request status to RabbitMQ", err, nil)
		}
	}

	service.logger.Info(ctx, "request_expired", "Ride request expire applied", map[string]any{
		"status": req.Status.String(),
	})

	return req, nil
}

package service

import (
	"context"

	"driveme/internal/domain/request"

	"github.com/google/uuid"
)

// CancelRequest cancels an open request on behalf of its owner. Only the
// requester may cancel, and only while the request is still PENDING.
func (service *requestService) CancelRequest(ctx context.Context, requestID, requesterID string) (*request.RideRequest, error) {
	correlationID := uuid.NewString()
	ctx = service.logger.WithRequestID(ctx, correlationID)
	ctx = service.logger.WithRequestRef(ctx, requestID)

	var cancelled *request.RideRequest

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		req, err := service.ledger.Cancel(txCtx, requestID, requesterID)
		if err != nil {
			return err
		}
		cancelled = req
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_cancel_failed", "Failed to cancel ride request", err, map[string]any{
			"requester_id": requesterID,
		})
		return nil, err
	}

	if err := service.relayStatus(ctx, cancelled.ID, cancelled.Status.String(), correlationID); err != nil {
		service.logger.Error(ctx, "request_status_relay_failed", "Failed to relay request status to RabbitMQ", err, nil)
	}

	service.logger.Info(ctx, "request_cancelled", "Ride request cancelled by requester", map[string]any{
		"requester_id": requesterID,
	})

	return cancelled, nil
}

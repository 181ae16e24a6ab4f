package service

import (
	"context"
	"errors"
	"time"

	"driveme/internal/domain/request"
)

// ExpireStale expires every PENDING request created more than olderThan ago
// and returns the number of transitions applied. Requests settled by a
// concurrent cancel or match between the listing and the transition are
// skipped, not failed.
func (service *requestService) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	var ids []string
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		stale, err := service.ledger.ListPendingIDsOlderThan(txCtx, cutoff)
		if err != nil {
			return err
		}
		ids = stale
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_sweep_failed", "Failed to list stale ride requests", err, nil)
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		req, err := service.ExpireRequest(ctx, id)
		if err != nil {
			if errors.Is(err, request.ErrNotFound) {
				continue
			}
			return expired, err
		}
		if req.Status == request.StatusExpired {
			expired++
		}
	}

	service.logger.Info(ctx, "request_sweep_done", "Stale ride request sweep finished", map[string]any{
		"candidates": len(ids),
		"expired":    expired,
		"older_than": olderThan.String(),
	})

	return expired, nil
}

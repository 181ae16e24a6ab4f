package service

import (
	"context"
	"fmt"
	"time"

	"driveme/internal/domain/request"
	"driveme/internal/general/contracts"
	"driveme/internal/ports"

	"github.com/google/uuid"
)

// CreateRequest validates the requester, prices the trip, persists a PENDING
// request and then announces it. The ledger write always completes before any
// announcement: a driver can only ever see a request that is durably stored.
func (service *requestService) CreateRequest(ctx context.Context, in ports.CreateRequestInput) (*request.RideRequest, error) {
	correlationID := uuid.NewString()
	ctx = service.logger.WithRequestID(ctx, correlationID)

	// price the trip up front; pricing is pure and needs no storage
	distance := in.Pickup.DistanceTo(&in.Destination)
	estimate := service.estimator.EstimateForDistance(distance)

	var created *request.RideRequest

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// requester must exist and be active
		if err := service.passengers.Resolve(txCtx, in.RequesterID); err != nil {
			return err
		}

		// when a vehicle is named it must belong to the requester
		if in.VehicleID != "" {
			owner, err := service.vehicles.OwnerOf(txCtx, in.VehicleID)
			if err != nil {
				return err
			}
			if owner != in.RequesterID {
				return request.ErrVehicleNotOwned
			}
		}

		req, err := request.NewRideRequest(in.RequesterID, in.Pickup, in.Destination, in.RequestedTime, in.WithPet, in.VehicleID, estimate)
		if err != nil {
			return err
		}

		if err := service.ledger.Create(txCtx, req); err != nil {
			return err
		}
		created = req

		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "request_create_failed", "Failed to create ride request", err, map[string]any{
			"requester_id": in.RequesterID,
		})
		return nil, err
	}

	ctx = service.logger.WithRequestRef(ctx, created.ID)

	// the commit above happened-before this publish
	event := contracts.RequestOpenEvent{
		RequestID: created.ID,
		PickupLat: created.Pickup.Latitude,
		PickupLng: created.Pickup.Longitude,
		DestLat:   created.Destination.Latitude,
		DestLng:   created.Destination.Longitude,
		PriceEstimate: contracts.PriceRange{
			MinAmount:  created.Price.MinAmount,
			MaxAmount:  created.Price.MaxAmount,
			Currency:   created.Price.Currency,
			DistanceKM: created.Price.DistanceKM,
		},
		CreatedAt: created.CreatedAt,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "request-service",
			SentAt:        time.Now().UTC(),
		},
	}
	service.feed.Publish(event)

	// broker relay is best effort; connected drivers already got the event
	if err := service.relayOpenEvent(ctx, event); err != nil {
		service.logger.Error(ctx, "request_event_relay_failed", "Failed to relay open request to RabbitMQ", err, map[string]any{
			"request_ref": created.ID,
		})
	}
	if err := service.relayStatus(ctx, created.ID, created.Status.String(), correlationID); err != nil {
		service.logger.Error(ctx, "request_status_relay_failed", "Failed to relay request status to RabbitMQ", err, map[string]any{
			"request_ref": created.ID,
		})
	}

	service.logger.Info(ctx, "request_created", fmt.Sprintf("Ride request %s created", created.ID), map[string]any{
		"requester_id": created.RequesterID,
		"distance_km":  created.Price.DistanceKM,
		"min_amount":   created.Price.MinAmount,
		"max_amount":   created.Price.MaxAmount,
		"currency":     created.Price.Currency,
	})

	return created, nil
}

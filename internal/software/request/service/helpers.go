package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"driveme/internal/general/contracts"
)

// relayOpenEvent publishes an open request announcement to the fanout exchange.
func (service *requestService) relayOpenEvent(ctx context.Context, event contracts.RequestOpenEvent) error {
	if service.pub == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeRequestFanout, "", body); err != nil {
		return err
	}

	service.logger.Info(ctx, "request_event_published", "Published open request to RabbitMQ", map[string]any{
		"exchange": contracts.ExchangeRequestFanout,
	})

	return nil
}

// relayStatus publishes a status update to the topic exchange using routing key
// request.status.{status}, e.g. request.status.cancelled.
func (service *requestService) relayStatus(ctx context.Context, requestID, status, correlationID string) error {
	if service.pub == nil {
		return nil
	}

	msg := contracts.RequestStatusMessage{
		RequestID: requestID,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "request-service",
			SentAt:        time.Now().UTC(),
		},
	}

	routingKey := contracts.RouteRequestStatusPrefix + strings.ToLower(status)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeRequestTopic, routingKey, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "request_status_published", "Published request status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})

	return nil
}

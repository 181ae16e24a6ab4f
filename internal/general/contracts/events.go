package contracts

import "time"

// RequestOpenEvent is the snapshot broadcast to every connected driver when a
// new ride request is created. It has no identity of its own beyond delivery.
type RequestOpenEvent struct {
	RequestID     string     `json:"requestId"`
	PickupLat     float64    `json:"pickupLat"`
	PickupLng     float64    `json:"pickupLng"`
	DestLat       float64    `json:"destLat"`
	DestLng       float64    `json:"destLng"`
	PriceEstimate PriceRange `json:"priceEstimate"`
	CreatedAt     time.Time  `json:"createdAt"`
	Envelope
}

// RequestStatusMessage is relayed on the topic exchange whenever a request
// changes lifecycle state. Routing key: "request.status.{STATUS}".
type RequestStatusMessage struct {
	RequestID string    `json:"request_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}

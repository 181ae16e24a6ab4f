package handler

import (
	"time"

	"driveme/internal/domain/request"
)

// requestResponse is the HTTP representation of a ride request.
type requestResponse struct {
	RequestID     string        `json:"request_id"`
	RequesterID   string        `json:"requester_id"`
	VehicleID     string        `json:"vehicle_id,omitempty"`
	Status        string        `json:"status"`
	RequestedTime time.Time     `json:"requested_time"`
	WithPet       bool          `json:"with_pet"`
	Pickup        locationBody  `json:"pickup"`
	Destination   locationBody  `json:"destination"`
	Price         priceEstimate `json:"price_estimate"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type locationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type priceEstimate struct {
	MinAmount  float64 `json:"min_amount"`
	MaxAmount  float64 `json:"max_amount"`
	Currency   string  `json:"currency"`
	DistanceKM float64 `json:"distance_km"`
}

func toRequestResponse(req *request.RideRequest) requestResponse {
	res := requestResponse{
		RequestID:     req.ID,
		RequesterID:   req.RequesterID,
		Status:        req.Status.String(),
		RequestedTime: req.RequestedTime,
		WithPet:       req.WithPet,
		Pickup: locationBody{
			Latitude:  req.Pickup.Latitude,
			Longitude: req.Pickup.Longitude,
			Address:   req.Pickup.Address,
		},
		Destination: locationBody{
			Latitude:  req.Destination.Latitude,
			Longitude: req.Destination.Longitude,
			Address:   req.Destination.Address,
		},
		Price: priceEstimate{
			MinAmount:  req.Price.MinAmount,
			MaxAmount:  req.Price.MaxAmount,
			Currency:   req.Price.Currency,
			DistanceKM: req.Price.DistanceKM,
		},
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}
	if req.VehicleID != nil {
		res.VehicleID = *req.VehicleID
	}
	return res
}

func toRequestResponses(reqs []*request.RideRequest) []requestResponse {
	out := make([]requestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestResponse(req))
	}
	return out
}

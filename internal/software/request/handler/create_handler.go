package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"driveme/internal/domain/geo"
	"driveme/internal/general/jwt"
	"driveme/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type createRequestBody struct {
	RequesterID          string  `json:"requester_id"`
	PickupLatitude       float64 `json:"pickup_latitude"`
	PickupLongitude      float64 `json:"pickup_longitude"`
	PickupAddress        string  `json:"pickup_address"`
	DestinationLatitude  float64 `json:"destination_latitude"`
	DestinationLongitude float64 `json:"destination_longitude"`
	DestinationAddress   string  `json:"destination_address"`
	RequestedTime        string  `json:"requested_time"` // RFC 3339, optional
	WithPet              bool    `json:"with_pet"`
	VehicleID            string  `json:"vehicle_id"` // optional
}

// ----- Handler: POST /requests -----

func (handler *RequestHTTPHandler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	var req createRequestBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	// fill or verify requester_id against the token subject
	sub := strings.TrimSpace(claims.Subject)
	if strings.TrimSpace(req.RequesterID) == "" {
		req.RequesterID = sub
	} else if req.RequesterID != sub {
		handler.httpError(ctx, w, http.StatusForbidden, "requester_id does not match token subject", errors.New("requester/token mismatch"))
		return
	}

	pickup, err := geo.NewLocation(req.PickupLatitude, req.PickupLongitude, req.PickupAddress)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid pickup: "+err.Error(), err)
		return
	}
	destination, err := geo.NewLocation(req.DestinationLatitude, req.DestinationLongitude, req.DestinationAddress)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid destination: "+err.Error(), err)
		return
	}

	var requestedTime time.Time
	if strings.TrimSpace(req.RequestedTime) != "" {
		requestedTime, err = time.Parse(time.RFC3339, req.RequestedTime)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "requested_time must be RFC 3339", err)
			return
		}
	}

	in := ports.CreateRequestInput{
		RequesterID:   strings.TrimSpace(req.RequesterID),
		Pickup:        pickup,
		Destination:   destination,
		RequestedTime: requestedTime,
		WithPet:       req.WithPet,
		VehicleID:     strings.TrimSpace(req.VehicleID),
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	created, err := handler.svc.CreateRequest(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, toRequestResponse(created))
}

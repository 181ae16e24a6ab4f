package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"driveme/internal/domain/geo"
	"driveme/internal/domain/pricing"
)

// --- Request DTO (HTTP boundary) ---

// pricePreviewBody accepts either a pair of coordinates or a raw distance.
type pricePreviewBody struct {
	PickupLatitude       *float64 `json:"pickup_latitude"`
	PickupLongitude      *float64 `json:"pickup_longitude"`
	DestinationLatitude  *float64 `json:"destination_latitude"`
	DestinationLongitude *float64 `json:"destination_longitude"`
	DistanceKM           *float64 `json:"distance_km"`
}

// ----- Handler: POST /price/preview -----

func (handler *RequestHTTPHandler) handlePricePreview(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	var req pricePreviewBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	var estimate pricing.Estimate
	switch {
	case req.DistanceKM != nil:
		estimate = handler.svc.PreviewPriceByDistance(*req.DistanceKM)

	case req.PickupLatitude != nil && req.PickupLongitude != nil &&
		req.DestinationLatitude != nil && req.DestinationLongitude != nil:
		pickup, err := geo.NewLocation(*req.PickupLatitude, *req.PickupLongitude, "")
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "invalid pickup: "+err.Error(), err)
			return
		}
		destination, err := geo.NewLocation(*req.DestinationLatitude, *req.DestinationLongitude, "")
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "invalid destination: "+err.Error(), err)
			return
		}
		estimate = handler.svc.PreviewPrice(pickup, destination)

	default:
		handler.httpError(ctx, w, http.StatusBadRequest,
			"provide either distance_km or both pickup and destination coordinates", errors.New("incomplete preview input"))
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, priceEstimate{
		MinAmount:  estimate.MinAmount,
		MaxAmount:  estimate.MaxAmount,
		Currency:   estimate.Currency,
		DistanceKM: estimate.DistanceKM,
	})
}

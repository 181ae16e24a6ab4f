package service

import (
	"driveme/internal/domain/geo"
	"driveme/internal/domain/pricing"
)

// PreviewPrice estimates the fare range for a trip without creating a request.
func (service *requestService) PreviewPrice(pickup, destination geo.Location) pricing.Estimate {
	return service.estimator.EstimateForDistance(pickup.DistanceTo(&destination))
}

// PreviewPriceByDistance estimates the fare range for a known distance.
func (service *requestService) PreviewPriceByDistance(distanceKM float64) pricing.Estimate {
	return service.estimator.EstimateForDistance(distanceKM)
}

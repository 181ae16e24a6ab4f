package geo

import (
	"errors"
	"math"
	"strings"
)

// Location is an immutable coordinate pair with a free-text address label.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewLocation constructs a Location after range-checking the coordinates.
func NewLocation(latitude, longitude float64, address string) (Location, error) {
	if latitude < -90 || latitude > 90 || math.IsNaN(latitude) {
		return Location{}, ErrInvalidLatitude
	}
	if longitude < -180 || longitude > 180 || math.IsNaN(longitude) {
		return Location{}, ErrInvalidLongitude
	}
	return Location{
		Latitude:  latitude,
		Longitude: longitude,
		Address:   strings.TrimSpace(address),
	}, nil
}

// IsZero reports whether the location carries no data at all.
func (location Location) IsZero() bool {
	return location.Latitude == 0 && location.Longitude == 0 && location.Address == ""
}

// DistanceTo returns the great-circle distance to other in kilometers.
// A nil other yields 0; presence checks belong to the caller.
func (location Location) DistanceTo(other *Location) float64 {
	if other == nil {
		return 0
	}
	return HaversineKM(location.Latitude, location.Longitude, other.Latitude, other.Longitude)
}

// HaversineKM computes the great-circle distance between two points in kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0 // Earth radius in km
	a1 := lat1 * math.Pi / 180
	a2 := lat2 * math.Pi / 180
	da := (lat2 - lat1) * math.Pi / 180
	db := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

package pricing

import "math"

// Default rates as charged in production (TRY per km).
const (
	DefaultMinRatePerKM = 12.00
	DefaultMaxRatePerKM = 18.00
	DefaultFloor        = 50.00
	DefaultSpread       = 20.00
	DefaultCurrency     = "TRY"
)

// Estimate is a [min, max] price range derived from trip distance.
type Estimate struct {
	MinAmount  float64
	MaxAmount  float64
	Currency   string
	DistanceKM float64
}

// Estimator derives price estimates from distance using fixed per-km rates
// and a price floor. It is a total function: it never returns an error.
type Estimator struct {
	minRatePerKM float64
	maxRatePerKM float64
	floor        float64
	spread       float64
	currency     string
}

// Options carries the recognized pricing knobs. Zero values fall back to the defaults.
type Options struct {
	MinRatePerKM float64
	MaxRatePerKM float64
	Floor        float64
	Spread       float64
	Currency     string
}

// NewEstimator builds an Estimator, substituting defaults for unset options.
func NewEstimator(opts Options) *Estimator {
	est := &Estimator{
		minRatePerKM: opts.MinRatePerKM,
		maxRatePerKM: opts.MaxRatePerKM,
		floor:        opts.Floor,
		spread:       opts.Spread,
		currency:     opts.Currency,
	}
	if est.minRatePerKM <= 0 {
		est.minRatePerKM = DefaultMinRatePerKM
	}
	if est.maxRatePerKM <= 0 {
		est.maxRatePerKM = DefaultMaxRatePerKM
	}
	if est.floor <= 0 {
		est.floor = DefaultFloor
	}
	if est.spread <= 0 {
		est.spread = DefaultSpread
	}
	if est.currency == "" {
		est.currency = DefaultCurrency
	}
	return est
}

// EstimateForDistance returns the price range for a trip of the given length.
// Negative distance is treated as 0.
func (est *Estimator) EstimateForDistance(distanceKM float64) Estimate {
	if distanceKM < 0 || math.IsNaN(distanceKM) {
		distanceKM = 0
	}

	minAmount := roundToCents(est.minRatePerKM * distanceKM)
	maxAmount := roundToCents(est.maxRatePerKM * distanceKM)

	// the range bottoms out at the floor, with a guaranteed spread on top
	if minAmount < est.floor {
		minAmount = est.floor
	}
	if maxAmount < est.floor+est.spread {
		maxAmount = est.floor + est.spread
	}

	return Estimate{
		MinAmount:  minAmount,
		MaxAmount:  maxAmount,
		Currency:   est.currency,
		DistanceKM: distanceKM,
	}
}

// roundToCents rounds to 2 decimal places, half up.
func roundToCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

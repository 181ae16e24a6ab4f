package service

import (
	"driveme/internal/domain/pricing"
	"driveme/internal/general/broadcast"
	"driveme/internal/general/logger"
	"driveme/internal/ports"
)

// requestService encapsulates the ride request lifecycle logic and dependencies.
type requestService struct {
	logger     *logger.Logger
	uow        ports.UnitOfWork
	ledger     ports.RequestLedger
	passengers ports.PassengerDirectory
	vehicles   ports.VehicleDirectory
	estimator  *pricing.Estimator
	feed       *broadcast.Channel
	pub        ports.MessagePublisher
}

// NewRequestService creates a new RequestService with the provided dependencies.
// pub may be nil when no broker is configured.
func NewRequestService(
	log *logger.Logger,
	uow ports.UnitOfWork,
	ledger ports.RequestLedger,
	passengers ports.PassengerDirectory,
	vehicles ports.VehicleDirectory,
	estimator *pricing.Estimator,
	feed *broadcast.Channel,
	pub ports.MessagePublisher,
) ports.RequestService {
	return &requestService{
		logger:     log,
		uow:        uow,
		ledger:     ledger,
		passengers: passengers,
		vehicles:   vehicles,
		estimator:  estimator,
		feed:       feed,
		pub:        pub,
	}
}

package sweeper

import (
	"context"
	"fmt"
	"time"

	"driveme/internal/domain/pricing"
	"driveme/internal/general/broadcast"
	"driveme/internal/general/config"
	"driveme/internal/general/logger"
	"driveme/internal/general/postgres"
	"driveme/internal/general/rabbitmq"
	"driveme/internal/ports"
	"driveme/internal/software/request/service"
)

// Run performs a single expiry sweep over stale PENDING requests and exits.
// Intended to be invoked periodically, e.g. from cron.
func Run(ctx context.Context, olderThan time.Duration) error {
	log := logger.New("sweeper")
	ctx = log.WithRequestID(ctx, "sweep-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// status relays still go out for every expiry the sweep applies
	var pub ports.MessagePublisher
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "rabbitmq_connection_failed", "Sweeping without RabbitMQ relay", err, nil)
	} else {
		defer rmq.Close()
		pub = rabbitmq.NewMQPublisher(rmq)
	}

	// the sweep never creates requests, so the feed stays subscriber-free
	svc := service.NewRequestService(log, postgres.NewUnitOfWork(pool), postgres.NewRequestRepo(),
		postgres.NewPassengerDirectory(), postgres.NewVehicleDirectory(),
		pricing.NewEstimator(pricing.Options{}), broadcast.NewChannel(log, cfg.Broadcast.Buffer), pub)

	expired, err := svc.ExpireStale(ctx, olderThan)
	if err != nil {
		log.Error(ctx, "sweep_failed", "Expiry sweep failed", err, map[string]any{"expired": expired})
		return err
	}

	log.Info(ctx, "sweep_finished", fmt.Sprintf("Expired %d stale requests", expired),
		map[string]any{"older_than": olderThan.String()})

	return nil
}

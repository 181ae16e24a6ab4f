package requestservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"driveme/internal/domain/pricing"
	"driveme/internal/general/broadcast"
	"driveme/internal/general/config"
	"driveme/internal/general/jwt"
	"driveme/internal/general/logger"
	"driveme/internal/general/memory"
	"driveme/internal/general/postgres"
	"driveme/internal/general/rabbitmq"
	"driveme/internal/general/websocket"
	"driveme/internal/ports"
	"driveme/internal/software/request/handler"
	"driveme/internal/software/request/service"
)

// Run wires the request service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	// static request ID for startup logs
	log := logger.New("request-service")
	ctx = log.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// storage: Postgres by default, in-memory for local development
	var (
		uow        ports.UnitOfWork
		ledger     ports.RequestLedger
		passengers ports.PassengerDirectory
		vehicles   ports.VehicleDirectory
	)
	if cfg.Service.Store == "memory" {
		uow = memory.NewUnitOfWork()
		ledger = memory.NewLedger()
		passengers = memory.NewPassengerDirectory()
		vehicles = memory.NewVehicleDirectory()
		log.Info(ctx, "store_selected", "Using in-memory store", nil)
	} else {
		pool, err := postgres.NewPool(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
			return err
		}
		defer pool.Close()

		uow = postgres.NewUnitOfWork(pool)
		ledger = postgres.NewRequestRepo()
		passengers = postgres.NewPassengerDirectory()
		vehicles = postgres.NewVehicleDirectory()
	}

	// broker relay is optional: a failed connect degrades to in-process fan-out only
	var pub ports.MessagePublisher
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "rabbitmq_connection_failed", "Running without RabbitMQ relay", err, nil)
	} else {
		defer rmq.Close()
		pub = rabbitmq.NewMQPublisher(rmq)
	}

	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	estimator := pricing.NewEstimator(pricing.Options{
		MinRatePerKM: cfg.Pricing.MinRatePerKM,
		MaxRatePerKM: cfg.Pricing.MaxRatePerKM,
		Floor:        cfg.Pricing.Floor,
		Spread:       cfg.Pricing.Spread,
		Currency:     cfg.Pricing.Currency,
	})

	feedChannel := broadcast.NewChannel(log, cfg.Broadcast.Buffer)
	feed := websocket.NewFeed(log, jwtManager, feedChannel)

	svc := service.NewRequestService(log, uow, ledger, passengers, vehicles, estimator, feedChannel, pub)

	mux := http.NewServeMux()
	httpHandler := handler.NewRequestHTTPHandler(svc, log, jwtManager, feed)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Service.Port),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started",
		fmt.Sprintf("Request Service started on port %d", cfg.Service.Port),
		map[string]any{"port": cfg.Service.Port, "max_concurrent": maxConcurrent, "store": cfg.Service.Store},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Service.Port})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}

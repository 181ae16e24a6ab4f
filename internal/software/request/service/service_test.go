package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"driveme/internal/domain/geo"
	"driveme/internal/domain/pricing"
	"driveme/internal/domain/request"
	"driveme/internal/general/broadcast"
	"driveme/internal/general/logger"
	"driveme/internal/general/memory"
	"driveme/internal/ports"
)

type harness struct {
	service    ports.RequestService
	ledger     *memory.Ledger
	passengers *memory.PassengerDirectory
	vehicles   *memory.VehicleDirectory
	feed       *broadcast.Channel
	pub        *capturePublisher
}

// capturePublisher records broker relays instead of talking to RabbitMQ.
type capturePublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
}

type capturedMessage struct {
	Exchange   string
	RoutingKey string
	Body       []byte
}

func (pub *capturePublisher) Publish(exchange, routingKey string, body []byte) error {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	cp := make([]byte, len(body))
	copy(cp, body)
	pub.messages = append(pub.messages, capturedMessage{Exchange: exchange, RoutingKey: routingKey, Body: cp})
	return nil
}

func (pub *capturePublisher) byExchange(exchange string) []capturedMessage {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	var out []capturedMessage
	for _, m := range pub.messages {
		if m.Exchange == exchange {
			out = append(out, m)
		}
	}
	return out
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := logger.New("request-service-test")
	ledger := memory.NewLedger()
	passengers := memory.NewPassengerDirectory()
	vehicles := memory.NewVehicleDirectory()
	feed := broadcast.NewChannel(log, 16)
	pub := &capturePublisher{}

	svc := NewRequestService(log, memory.NewUnitOfWork(), ledger, passengers, vehicles,
		pricing.NewEstimator(pricing.Options{}), feed, pub)

	return &harness{
		service:    svc,
		ledger:     ledger,
		passengers: passengers,
		vehicles:   vehicles,
		feed:       feed,
		pub:        pub,
	}
}

func istanbulTrip(t *testing.T) (geo.Location, geo.Location) {
	t.Helper()
	pickup, err := geo.NewLocation(41.0082, 28.9784, "Sultanahmet")
	if err != nil {
		t.Fatalf("pickup: %v", err)
	}
	dest, err := geo.NewLocation(41.0370, 28.9850, "Taksim")
	if err != nil {
		t.Fatalf("destination: %v", err)
	}
	return pickup, dest
}

func createInput(t *testing.T, requesterID string) ports.CreateRequestInput {
	t.Helper()
	pickup, dest := istanbulTrip(t)
	return ports.CreateRequestInput{
		RequesterID: requesterID,
		Pickup:      pickup,
		Destination: dest,
	}
}

func TestCreateRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sub := h.feed.Subscribe()
	defer h.feed.Unsubscribe(sub)

	created, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	if created.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if created.Status != request.StatusPending {
		t.Fatalf("status = %s, want PENDING", created.Status)
	}
	if created.Price.Currency != "TRY" {
		t.Fatalf("currency = %s, want TRY", created.Price.Currency)
	}
	// short urban hop: both bounds land on their floors
	if created.Price.MinAmount != 50.00 {
		t.Fatalf("min = %.2f, want 50.00", created.Price.MinAmount)
	}
	if created.Price.MaxAmount != 70.00 {
		t.Fatalf("max = %.2f, want 70.00", created.Price.MaxAmount)
	}

	// subscriber gets exactly one event, and only after the ledger write
	select {
	case event := <-sub.Events():
		if event.RequestID != created.ID {
			t.Fatalf("event request id = %s, want %s", event.RequestID, created.ID)
		}
		if _, err := h.ledger.GetByID(ctx, event.RequestID); err != nil {
			t.Fatalf("event delivered before ledger write: %v", err)
		}
		if event.PriceEstimate.MinAmount != 50.00 || event.PriceEstimate.MaxAmount != 70.00 {
			t.Fatalf("event estimate = [%.2f, %.2f], want [50.00, 70.00]",
				event.PriceEstimate.MinAmount, event.PriceEstimate.MaxAmount)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast event received")
	}

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected second event: %+v", extra)
	default:
	}

	// both broker relays fired: the open event and the initial status
	if got := len(h.pub.byExchange("request_fanout")); got != 1 {
		t.Fatalf("fanout relays = %d, want 1", got)
	}
	status := h.pub.byExchange("request_topic")
	if len(status) != 1 || status[0].RoutingKey != "request.status.pending" {
		t.Fatalf("status relays = %+v, want one request.status.pending", status)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.passengers.Deactivate("passenger-frozen")
	h.vehicles.Register("vehicle-1", "passenger-1")

	tests := []struct {
		name    string
		mutate  func(*ports.CreateRequestInput)
		wantErr error
	}{
		{
			name:    "inactive requester",
			mutate:  func(in *ports.CreateRequestInput) { in.RequesterID = "passenger-frozen" },
			wantErr: request.ErrRequesterInactive,
		},
		{
			name:    "missing requester",
			mutate:  func(in *ports.CreateRequestInput) { in.RequesterID = "  " },
			wantErr: request.ErrRequesterRequired,
		},
		{
			name:    "unknown vehicle",
			mutate:  func(in *ports.CreateRequestInput) { in.VehicleID = "vehicle-unknown" },
			wantErr: request.ErrNotFound,
		},
		{
			name: "vehicle owned by someone else",
			mutate: func(in *ports.CreateRequestInput) {
				in.RequesterID = "passenger-2"
				in.VehicleID = "vehicle-1"
			},
			wantErr: request.ErrVehicleNotOwned,
		},
		{
			name:    "zero pickup",
			mutate:  func(in *ports.CreateRequestInput) { in.Pickup = geo.Location{} },
			wantErr: request.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := createInput(t, "passenger-1")
			tt.mutate(&in)

			if _, err := h.service.CreateRequest(ctx, in); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateRequestWithOwnVehicle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.vehicles.Register("vehicle-9", "passenger-1")

	in := createInput(t, "passenger-1")
	in.VehicleID = "vehicle-9"
	in.WithPet = true

	created, err := h.service.CreateRequest(ctx, in)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if created.VehicleID == nil || *created.VehicleID != "vehicle-9" {
		t.Fatalf("vehicle id = %v, want vehicle-9", created.VehicleID)
	}
	if !created.WithPet {
		t.Fatal("expected with_pet to persist")
	}
}

func TestCancelRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	// a stranger may not cancel, and the request stays open
	if _, err := h.service.CancelRequest(ctx, created.ID, "passenger-2"); !errors.Is(err, request.ErrForbidden) {
		t.Fatalf("stranger cancel err = %v, want ErrForbidden", err)
	}
	got, err := h.service.GetRequest(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Status != request.StatusPending {
		t.Fatalf("status after forbidden cancel = %s, want PENDING", got.Status)
	}

	// the owner may
	cancelled, err := h.service.CancelRequest(ctx, created.ID, "passenger-1")
	if err != nil {
		t.Fatalf("owner cancel: %v", err)
	}
	if cancelled.Status != request.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}

	// but only once
	if _, err := h.service.CancelRequest(ctx, created.ID, "passenger-1"); !errors.Is(err, request.ErrConflict) {
		t.Fatalf("second cancel err = %v, want ErrConflict", err)
	}

	if _, err := h.service.CancelRequest(ctx, "no-such-id", "passenger-1"); !errors.Is(err, request.ErrNotFound) {
		t.Fatalf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestMatchRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	matched, err := h.service.MatchRequest(ctx, created.ID)
	if err != nil {
		t.Fatalf("MatchRequest: %v", err)
	}
	if matched.Status != request.StatusMatched {
		t.Fatalf("status = %s, want MATCHED", matched.Status)
	}

	if _, err := h.service.MatchRequest(ctx, created.ID); !errors.Is(err, request.ErrConflict) {
		t.Fatalf("second match err = %v, want ErrConflict", err)
	}
	if _, err := h.service.CancelRequest(ctx, created.ID, "passenger-1"); !errors.Is(err, request.ErrConflict) {
		t.Fatalf("cancel after match err = %v, want ErrConflict", err)
	}

	relays := h.pub.byExchange("request_topic")
	last := relays[len(relays)-1]
	if last.RoutingKey != "request.status.matched" {
		t.Fatalf("last status routing key = %s, want request.status.matched", last.RoutingKey)
	}
}

func TestExpireRequestIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	expired, err := h.service.ExpireRequest(ctx, created.ID)
	if err != nil {
		t.Fatalf("ExpireRequest: %v", err)
	}
	if expired.Status != request.StatusExpired {
		t.Fatalf("status = %s, want EXPIRED", expired.Status)
	}

	// a repeat is a quiet no-op
	again, err := h.service.ExpireRequest(ctx, created.ID)
	if err != nil {
		t.Fatalf("repeat ExpireRequest: %v", err)
	}
	if again.Status != request.StatusExpired {
		t.Fatalf("status after repeat = %s, want EXPIRED", again.Status)
	}

	// expire never clobbers a settled state
	other, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := h.service.CancelRequest(ctx, other.ID, "passenger-1"); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	after, err := h.service.ExpireRequest(ctx, other.ID)
	if err != nil {
		t.Fatalf("ExpireRequest on cancelled: %v", err)
	}
	if after.Status != request.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED preserved", after.Status)
	}
}

func TestExpireStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		created, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
		if err != nil {
			t.Fatalf("CreateRequest: %v", err)
		}
		ids = append(ids, created.ID)
	}

	// one request was settled before the sweep
	if _, err := h.service.CancelRequest(ctx, ids[0], "passenger-1"); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}

	// nothing is old enough yet
	n, err := h.service.ExpireStale(ctx, time.Hour)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 0 {
		t.Fatalf("expired = %d, want 0", n)
	}

	// a negative cutoff makes every pending request stale
	n, err = h.service.ExpireStale(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 2 {
		t.Fatalf("expired = %d, want 2", n)
	}

	for _, id := range ids[1:] {
		got, err := h.service.GetRequest(ctx, id)
		if err != nil {
			t.Fatalf("GetRequest(%s): %v", id, err)
		}
		if got.Status != request.StatusExpired {
			t.Fatalf("request %s status = %s, want EXPIRED", id, got.Status)
		}
	}
}

func TestListQueries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	second, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := h.service.CreateRequest(ctx, createInput(t, "passenger-2")); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	mine, err := h.service.ListByRequester(ctx, "passenger-1")
	if err != nil {
		t.Fatalf("ListByRequester: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("len(mine) = %d, want 2", len(mine))
	}
	if mine[0].ID != second.ID || mine[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", mine[0].ID, mine[1].ID)
	}

	if _, err := h.service.CancelRequest(ctx, first.ID, "passenger-1"); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}

	pending, err := h.service.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	for _, req := range pending {
		if req.Status != request.StatusPending {
			t.Fatalf("pending listing contains %s", req.Status)
		}
	}
}

func TestPricePreviews(t *testing.T) {
	h := newHarness(t)
	pickup, dest := istanbulTrip(t)

	preview := h.service.PreviewPrice(pickup, dest)
	if preview.MinAmount != 50.00 || preview.MaxAmount != 70.00 {
		t.Fatalf("preview = [%.2f, %.2f], want [50.00, 70.00]", preview.MinAmount, preview.MaxAmount)
	}
	if preview.Currency != "TRY" {
		t.Fatalf("currency = %s, want TRY", preview.Currency)
	}

	byDistance := h.service.PreviewPriceByDistance(10)
	if byDistance.MinAmount != 120.00 || byDistance.MaxAmount != 180.00 {
		t.Fatalf("10km preview = [%.2f, %.2f], want [120.00, 180.00]", byDistance.MinAmount, byDistance.MaxAmount)
	}

	// previews are side-effect free
	if h.feed.SubscriberCount() != 0 {
		t.Fatal("preview touched the broadcast channel")
	}
	if len(h.pub.messages) != 0 {
		t.Fatalf("preview relayed %d messages", len(h.pub.messages))
	}
}

// TestConcurrentSettlement drives cancel, match and expire at the same request
// concurrently: exactly one of cancel/match settles it, expire never errors.
func TestConcurrentSettlement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		created, err := h.service.CreateRequest(ctx, createInput(t, "passenger-1"))
		if err != nil {
			t.Fatalf("CreateRequest: %v", err)
		}

		var wg sync.WaitGroup
		results := make(chan error, 3)

		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := h.service.CancelRequest(ctx, created.ID, "passenger-1")
			results <- err
		}()
		go func() {
			defer wg.Done()
			_, err := h.service.MatchRequest(ctx, created.ID)
			results <- err
		}()
		go func() {
			defer wg.Done()
			_, err := h.service.ExpireRequest(ctx, created.ID)
			results <- err
		}()
		wg.Wait()
		close(results)

		var conflicts, failures int
		for err := range results {
			switch {
			case err == nil:
			case errors.Is(err, request.ErrConflict):
				conflicts++
			default:
				failures++
			}
		}
		if failures != 0 {
			t.Fatalf("iteration %d: unexpected non-conflict failures", i)
		}
		// expire loses quietly, so at most cancel and match can conflict
		if conflicts > 2 {
			t.Fatalf("iteration %d: conflicts = %d, want <= 2", i, conflicts)
		}

		got, err := h.service.GetRequest(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetRequest: %v", err)
		}
		if got.Status == request.StatusPending {
			t.Fatalf("iteration %d: request still PENDING after contention", i)
		}
	}
}

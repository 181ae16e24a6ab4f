package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"driveme/internal/domain/request"
	"driveme/internal/ports"

	"github.com/google/uuid"
)

// Ledger is an in-process RequestLedger. It backs tests and memory-store dev
// runs with the same per-id transition semantics as the Postgres ledger: all
// mutations happen under one lock, so exactly one concurrent transition wins.
type Ledger struct {
	mu   sync.Mutex
	byID map[string]*entry
	seq  uint64
}

type entry struct {
	req *request.RideRequest
	seq uint64 // creation order tiebreak for newest-first listings
}

// NewLedger constructs an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{byID: make(map[string]*entry)}
}

var _ ports.RequestLedger = (*Ledger)(nil)

// Create stores a new PENDING request and assigns a fresh uuid.
func (ledger *Ledger) Create(_ context.Context, req *request.RideRequest) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	req.ID = uuid.NewString()
	ledger.seq++
	ledger.byID[req.ID] = &entry{req: req.Clone(), seq: ledger.seq}
	return nil
}

// GetByID returns a copy of the stored request or request.ErrNotFound.
func (ledger *Ledger) GetByID(_ context.Context, id string) (*request.RideRequest, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	ent, ok := ledger.byID[id]
	if !ok {
		return nil, request.ErrNotFound
	}
	return ent.req.Clone(), nil
}

// ListByRequester returns the requester's requests, newest first.
func (ledger *Ledger) ListByRequester(_ context.Context, requesterID string) ([]*request.RideRequest, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	return ledger.collect(func(ent *entry) bool {
		return ent.req.RequesterID == requesterID
	}), nil
}

// ListPending returns all currently PENDING requests, newest first.
func (ledger *Ledger) ListPending(_ context.Context) ([]*request.RideRequest, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	return ledger.collect(func(ent *entry) bool {
		return ent.req.Status == request.StatusPending
	}), nil
}

// ListPendingIDsOlderThan returns ids of PENDING requests created before cutoff.
func (ledger *Ledger) ListPendingIDsOlderThan(_ context.Context, cutoff time.Time) ([]string, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	var ids []string
	for id, ent := range ledger.byID {
		if ent.req.Status == request.StatusPending && ent.req.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Cancel applies the owner-only PENDING -> CANCELLED transition.
func (ledger *Ledger) Cancel(_ context.Context, id, requesterID string) (*request.RideRequest, error) {
	return ledger.transition(id, func(req *request.RideRequest) error {
		return req.Cancel(requesterID)
	})
}

// MarkMatched applies the PENDING -> MATCHED transition.
func (ledger *Ledger) MarkMatched(_ context.Context, id string) (*request.RideRequest, error) {
	return ledger.transition(id, func(req *request.RideRequest) error {
		return req.MarkMatched()
	})
}

// Expire applies PENDING -> EXPIRED; a no-op on settled requests.
func (ledger *Ledger) Expire(_ context.Context, id string) (*request.RideRequest, error) {
	return ledger.transition(id, func(req *request.RideRequest) error {
		req.Expire()
		return nil
	})
}

// transition applies a domain guard to the stored entity under the lock.
func (ledger *Ledger) transition(id string, apply func(*request.RideRequest) error) (*request.RideRequest, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	ent, ok := ledger.byID[id]
	if !ok {
		return nil, request.ErrNotFound
	}
	if err := apply(ent.req); err != nil {
		return nil, err
	}
	return ent.req.Clone(), nil
}

// collect gathers matching entries newest first. Callers hold the lock.
func (ledger *Ledger) collect(match func(*entry) bool) []*request.RideRequest {
	var ents []*entry
	for _, ent := range ledger.byID {
		if match(ent) {
			ents = append(ents, ent)
		}
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].seq > ents[j].seq })

	out := make([]*request.RideRequest, 0, len(ents))
	for _, ent := range ents {
		out = append(out, ent.req.Clone())
	}
	return out
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"driveme/internal/domain/pricing"
	"driveme/internal/domain/user"
	"driveme/internal/general/broadcast"
	"driveme/internal/general/jwt"
	"driveme/internal/general/logger"
	"driveme/internal/general/memory"
	"driveme/internal/general/websocket"
	"driveme/internal/software/request/service"
)

type fixture struct {
	mux  *http.ServeMux
	auth *jwt.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New("request-handler-test")
	auth := jwt.NewManager("test-secret", time.Hour)
	feedChannel := broadcast.NewChannel(log, 16)

	svc := service.NewRequestService(log, memory.NewUnitOfWork(), memory.NewLedger(),
		memory.NewPassengerDirectory(), memory.NewVehicleDirectory(),
		pricing.NewEstimator(pricing.Options{}), feedChannel, nil)

	h := NewRequestHTTPHandler(svc, log, auth, websocket.NewFeed(log, auth, feedChannel))
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	return &fixture{mux: mux, auth: auth}
}

func (f *fixture) token(t *testing.T, userID string, role user.Role) string {
	t.Helper()
	token, _, err := f.auth.IssueUserToken(userID, role)
	if err != nil {
		t.Fatalf("IssueUserToken: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func createBody() map[string]any {
	return map[string]any{
		"pickup_latitude":       41.0082,
		"pickup_longitude":      28.9784,
		"pickup_address":        "Sultanahmet",
		"destination_latitude":  41.0370,
		"destination_longitude": 28.9850,
		"destination_address":   "Taksim",
	}
}

func (f *fixture) createRequest(t *testing.T, token string) requestResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/requests", token, createBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res requestResponse
	decodeBody(t, rec, &res)
	return res
}

func TestCreateRequestEndpoint(t *testing.T) {
	f := newFixture(t)
	passenger := f.token(t, "passenger-1", user.RolePassenger)

	res := f.createRequest(t, passenger)
	if res.RequestID == "" {
		t.Fatal("expected request_id in response")
	}
	if res.Status != "PENDING" {
		t.Fatalf("status = %s, want PENDING", res.Status)
	}
	if res.RequesterID != "passenger-1" {
		t.Fatalf("requester_id = %s, want passenger-1 (from token)", res.RequesterID)
	}
	if res.Price.MinAmount != 50.00 || res.Price.MaxAmount != 70.00 {
		t.Fatalf("price = [%.2f, %.2f], want [50.00, 70.00]", res.Price.MinAmount, res.Price.MaxAmount)
	}
	if res.Price.Currency != "TRY" {
		t.Fatalf("currency = %s, want TRY", res.Price.Currency)
	}
}

func TestCreateRequestEndpointRejections(t *testing.T) {
	f := newFixture(t)
	passenger := f.token(t, "passenger-1", user.RolePassenger)
	driver := f.token(t, "driver-1", user.RoleDriver)

	tests := []struct {
		name       string
		token      string
		mutate     func(map[string]any)
		wantStatus int
	}{
		{
			name:       "no token",
			token:      "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong role",
			token:      driver,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "requester_id does not match subject",
			token:      passenger,
			mutate:     func(b map[string]any) { b["requester_id"] = "passenger-2" },
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "latitude out of range",
			token:      passenger,
			mutate:     func(b map[string]any) { b["pickup_latitude"] = 95.0 },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			token:      passenger,
			mutate:     func(b map[string]any) { b["surge_multiplier"] = 2.0 },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createBody()
			if tt.mutate != nil {
				tt.mutate(body)
			}
			rec := f.do(t, http.MethodPost, "/requests", tt.token, body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestCancelEndpoint(t *testing.T) {
	f := newFixture(t)
	owner := f.token(t, "passenger-1", user.RolePassenger)
	stranger := f.token(t, "passenger-2", user.RolePassenger)

	created := f.createRequest(t, owner)

	if rec := f.do(t, http.MethodPost, "/requests/"+created.RequestID+"/cancel", stranger, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stranger cancel status = %d, want 403", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/requests/"+created.RequestID+"/cancel", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner cancel status = %d, body %s", rec.Code, rec.Body.String())
	}
	var cancelled requestResponse
	decodeBody(t, rec, &cancelled)
	if cancelled.Status != "CANCELLED" {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}

	if rec := f.do(t, http.MethodPost, "/requests/"+created.RequestID+"/cancel", owner, nil); rec.Code != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409", rec.Code)
	}

	if rec := f.do(t, http.MethodPost, "/requests/does-not-exist/cancel", owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id cancel status = %d, want 404", rec.Code)
	}
}

func TestMatchAndExpireEndpoints(t *testing.T) {
	f := newFixture(t)
	owner := f.token(t, "passenger-1", user.RolePassenger)
	driver := f.token(t, "driver-1", user.RoleDriver)
	admin := f.token(t, "admin-1", user.RoleAdmin)

	created := f.createRequest(t, owner)

	// passengers cannot record match outcomes
	if rec := f.do(t, http.MethodPost, "/requests/"+created.RequestID+"/match", owner, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("passenger match status = %d, want 403", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/requests/"+created.RequestID+"/match", driver, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("driver match status = %d, body %s", rec.Code, rec.Body.String())
	}
	var matched requestResponse
	decodeBody(t, rec, &matched)
	if matched.Status != "MATCHED" {
		t.Fatalf("status = %s, want MATCHED", matched.Status)
	}

	if rec := f.do(t, http.MethodPost, "/requests/"+created.RequestID+"/match", driver, nil); rec.Code != http.StatusConflict {
		t.Fatalf("second match status = %d, want 409", rec.Code)
	}

	// expire on a settled request reports the settled state
	rec = f.do(t, http.MethodPost, "/requests/"+created.RequestID+"/expire", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expire status = %d, body %s", rec.Code, rec.Body.String())
	}
	var afterExpire requestResponse
	decodeBody(t, rec, &afterExpire)
	if afterExpire.Status != "MATCHED" {
		t.Fatalf("status = %s, want MATCHED preserved", afterExpire.Status)
	}

	// expire is admin-only
	if rec := f.do(t, http.MethodPost, "/requests/"+created.RequestID+"/expire", driver, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("driver expire status = %d, want 403", rec.Code)
	}
}

func TestQueryEndpoints(t *testing.T) {
	f := newFixture(t)
	owner := f.token(t, "passenger-1", user.RolePassenger)
	other := f.token(t, "passenger-2", user.RolePassenger)
	driver := f.token(t, "driver-1", user.RoleDriver)

	created := f.createRequest(t, owner)
	f.createRequest(t, owner)

	rec := f.do(t, http.MethodGet, "/requests/"+created.RequestID, owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", rec.Code, rec.Body.String())
	}

	// another passenger cannot read it, a driver can
	if rec := f.do(t, http.MethodGet, "/requests/"+created.RequestID, other, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("other passenger get status = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/requests/"+created.RequestID, driver, nil); rec.Code != http.StatusOK {
		t.Fatalf("driver get status = %d, want 200", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, "/requests/nope", owner, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown get status = %d, want 404", rec.Code)
	}

	var listing struct {
		Requests []requestResponse `json:"requests"`
		Count    int               `json:"count"`
	}

	rec = f.do(t, http.MethodGet, "/requests/pending", driver, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pending status = %d", rec.Code)
	}
	decodeBody(t, rec, &listing)
	if listing.Count != 2 {
		t.Fatalf("pending count = %d, want 2", listing.Count)
	}

	rec = f.do(t, http.MethodGet, "/requests/mine", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine status = %d", rec.Code)
	}
	decodeBody(t, rec, &listing)
	if listing.Count != 2 {
		t.Fatalf("mine count = %d, want 2", listing.Count)
	}

	rec = f.do(t, http.MethodGet, "/requests/mine", other, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mine status = %d", rec.Code)
	}
	decodeBody(t, rec, &listing)
	if listing.Count != 0 {
		t.Fatalf("other passenger mine count = %d, want 0", listing.Count)
	}
}

func TestPricePreviewEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/price/preview", "", map[string]any{"distance_km": 10.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body %s", rec.Code, rec.Body.String())
	}
	var est priceEstimate
	decodeBody(t, rec, &est)
	if est.MinAmount != 120.00 || est.MaxAmount != 180.00 {
		t.Fatalf("preview = [%.2f, %.2f], want [120.00, 180.00]", est.MinAmount, est.MaxAmount)
	}

	rec = f.do(t, http.MethodPost, "/price/preview", "", createBody())
	if rec.Code != http.StatusBadRequest {
		// createBody carries address fields the preview does not accept
		t.Fatalf("preview with unknown fields status = %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/price/preview", "", map[string]any{
		"pickup_latitude":       41.0082,
		"pickup_longitude":      28.9784,
		"destination_latitude":  41.0370,
		"destination_longitude": 28.9850,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("coordinate preview status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &est)
	if est.MinAmount != 50.00 || est.MaxAmount != 70.00 {
		t.Fatalf("coordinate preview = [%.2f, %.2f], want [50.00, 70.00]", est.MinAmount, est.MaxAmount)
	}

	if rec := f.do(t, http.MethodPost, "/price/preview", "", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty preview status = %d, want 400", rec.Code)
	}
}

func TestTokenAndHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/tokens", "", map[string]any{"user_id": "passenger-9", "role": "PASSENGER"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("token status = %d, body %s", rec.Code, rec.Body.String())
	}
	var token TokenResponse
	decodeBody(t, rec, &token)
	if token.Token == "" {
		t.Fatal("expected a token")
	}

	// the issued token works against a protected route
	if rec := f.do(t, http.MethodPost, "/requests", token.Token, createBody()); rec.Code != http.StatusCreated {
		t.Fatalf("create with issued token status = %d, body %s", rec.Code, rec.Body.String())
	}

	if rec := f.do(t, http.MethodPost, "/tokens", "", map[string]any{"user_id": "x", "role": "SUPERUSER"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad role token status = %d, want 400", rec.Code)
	}

	if rec := f.do(t, http.MethodGet, "/requests/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

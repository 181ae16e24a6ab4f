package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"driveme/internal/domain/request"
	"driveme/internal/domain/user"
	"driveme/internal/general/jwt"
	"driveme/internal/general/logger"
	"driveme/internal/general/websocket"
	"driveme/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// RequestHTTPHandler adapts HTTP requests to the RequestService.
type RequestHTTPHandler struct {
	svc    ports.RequestService
	logger *logger.Logger
	auth   *jwt.Manager
	feed   *websocket.Feed
}

// NewRequestHTTPHandler wires an HTTP handler around the RequestService.
func NewRequestHTTPHandler(
	svc ports.RequestService,
	log *logger.Logger,
	auth *jwt.Manager,
	feed *websocket.Feed,
) *RequestHTTPHandler {
	return &RequestHTTPHandler{svc: svc, logger: log, auth: auth, feed: feed}
}

// RegisterRoutes mounts request endpoints on the provided mux.
func (handler *RequestHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /requests",
		jwt.AuthMiddlewareFunc(handler.auth, user.RolePassenger)(handler.handleCreateRequest),
	)
	mux.HandleFunc("POST /requests/{request_id}/cancel",
		jwt.AuthMiddlewareFunc(handler.auth, user.RolePassenger)(handler.handleCancelRequest),
	)
	mux.HandleFunc("POST /requests/{request_id}/match",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver, user.RoleAdmin)(handler.handleMatchRequest),
	)
	mux.HandleFunc("POST /requests/{request_id}/expire",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleAdmin)(handler.handleExpireRequest),
	)

	mux.HandleFunc("GET /requests/pending",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver, user.RoleAdmin)(handler.handleListPending),
	)
	mux.HandleFunc("GET /requests/mine",
		jwt.AuthMiddlewareFunc(handler.auth, user.RolePassenger)(handler.handleListMine),
	)
	mux.HandleFunc("GET /requests/{request_id}",
		jwt.AuthMiddlewareFunc(handler.auth, user.RolePassenger, user.RoleDriver, user.RoleAdmin)(handler.handleGetRequest),
	)

	mux.HandleFunc("POST /price/preview", handler.handlePricePreview)

	// WebSocket feed does its own first-frame auth
	mux.HandleFunc("GET /ws/driver/{driver_id}", handler.feed.ConnectDriver)

	mux.HandleFunc("GET /requests/health", handler.handleHealth)
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
}

// ----- token endpoint (development helper) -----

type TokenRequest struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

func (handler *RequestHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	if !req.Role.Valid() {
		handler.httpError(ctx, w, http.StatusBadRequest, "role must be one of: PASSENGER, DRIVER, ADMIN", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueUserToken(req.UserID, req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": req.Role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    req.UserID,
		Role:      req.Role,
	})
}

// ----- health -----

func (handler *RequestHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ----- general helpers -----

func (handler *RequestHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *RequestHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// serviceError maps domain error kinds to HTTP statuses.
func (handler *RequestHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
	case errors.Is(err, request.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "request not found", err)
	case errors.Is(err, request.ErrForbidden), errors.Is(err, request.ErrVehicleNotOwned):
		handler.httpError(ctx, w, http.StatusForbidden, err.Error(), err)
	case errors.Is(err, request.ErrConflict):
		handler.httpError(ctx, w, http.StatusConflict, "request is no longer open", err)
	case errors.Is(err, context.DeadlineExceeded):
		handler.httpError(ctx, w, http.StatusGatewayTimeout, "operation timed out", err)
	default:
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	}
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *RequestHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

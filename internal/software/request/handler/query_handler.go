package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"driveme/internal/general/jwt"
)

// ----- Handler: GET /requests/{request_id} -----

func (handler *RequestHTTPHandler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := handler.svc.GetRequest(ctxWithTimeout, requestID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	// passengers may only read their own requests
	if claims := jwt.RequireClaims(r); claims != nil && claims.Role.IsPassenger() {
		if req.RequesterID != strings.TrimSpace(claims.Subject) {
			handler.httpError(ctxWithTimeout, w, http.StatusForbidden, "request belongs to another passenger", errors.New("requester/token mismatch"))
			return
		}
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toRequestResponse(req))
}

// ----- Handler: GET /requests/pending -----

func (handler *RequestHTTPHandler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reqs, err := handler.svc.ListPending(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{
		"requests": toRequestResponses(reqs),
		"count":    len(reqs),
	})
}

// ----- Handler: GET /requests/mine -----

func (handler *RequestHTTPHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reqs, err := handler.svc.ListByRequester(ctxWithTimeout, strings.TrimSpace(claims.Subject))
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{
		"requests": toRequestResponses(reqs),
		"count":    len(reqs),
	})
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// ----- Handler: POST /requests/{request_id}/match -----

func (handler *RequestHTTPHandler) handleMatchRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	matched, err := handler.svc.MatchRequest(ctxWithTimeout, requestID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toRequestResponse(matched))
}

// ----- Handler: POST /requests/{request_id}/expire -----

func (handler *RequestHTTPHandler) handleExpireRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	expired, err := handler.svc.ExpireRequest(ctxWithTimeout, requestID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toRequestResponse(expired))
}

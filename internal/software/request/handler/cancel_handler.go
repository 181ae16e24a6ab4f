package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"driveme/internal/general/jwt"
)

// ----- Handler: POST /requests/{request_id}/cancel -----

func (handler *RequestHTTPHandler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", nil)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// the token subject is the only identity allowed to cancel
	cancelled, err := handler.svc.CancelRequest(ctxWithTimeout, requestID, strings.TrimSpace(claims.Subject))
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toRequestResponse(cancelled))
}

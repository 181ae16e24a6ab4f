package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"driveme/internal/domain/user"
	"driveme/internal/general/broadcast"
	"driveme/internal/general/jwt"
	"driveme/internal/general/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	readDeadline     = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Feed streams newly opened ride requests to connected drivers over WebSocket
// with first-frame JWT auth. Each connection gets its own broadcast
// subscription; a driver that connects after an event was published never
// receives it.
type Feed struct {
	logger     *logger.Logger
	jwtMgr     *jwt.Manager
	requests   *broadcast.Channel
	writeLocks sync.Map // *websocket.Conn -> *sync.Mutex
}

// NewFeed creates the driver feed handler.
func NewFeed(log *logger.Logger, jwtMgr *jwt.Manager, requests *broadcast.Channel) *Feed {
	return &Feed{
		logger:   log,
		jwtMgr:   jwtMgr,
		requests: requests,
	}
}

// ConnectDriver handles WebSocket connections from drivers.
func (feed *Feed) ConnectDriver(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		feed.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	// Teardown order (LIFO on return):
	defer conn.Close()                 // close the socket last
	defer feed.writeLocks.Delete(conn) // forget per-connection mutex (idempotent)

	// 2) Auth deadline
	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		feed.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		feed.sendAuthError(conn, "internal server error")
		return
	}

	// 3) First frame must carry the token
	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			feed.logger.Error(r.Context(), "ws_auth_timeout", "Client disconnected before authentication", err, nil)
		} else {
			feed.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		}
		feed.sendAuthError(conn, "authentication timeout: please send auth message within 5 seconds")
		return
	}

	if msgType != websocket.TextMessage {
		feed.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		feed.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(firstFrame, feed.jwtMgr, user.RoleDriver)
	if err != nil {
		feed.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		feed.sendAuthError(conn, "authentication failed: invalid token")
		return
	}

	// 4) Path param must match the subject in claims
	if drvID := r.PathValue("driver_id"); drvID != "" && drvID != res.Claims.Subject {
		feed.logger.Error(r.Context(), "ws_auth_failed", "Driver ID mismatch", nil, map[string]any{
			"path_driver_id": drvID,
			"token_subject":  res.Claims.Subject,
		})
		feed.sendAuthError(conn, "driver ID mismatch")
		return
	}
	driverID := res.Claims.Subject

	// 5) Ack the auth
	if err := feed.sendAuthSuccess(conn, driverID); err != nil {
		feed.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	feed.logger.Info(r.Context(), "ws_connected", "Driver WebSocket connected",
		map[string]any{"driver_id": driverID})

	// 6) Reset read deadline after auth
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	// 7) Ping loop (every 30s) using the per-connection writer lock
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			mu := feed.lockOf(conn)
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				// close socket to unblock the reader; goroutine exits
				_ = conn.Close()
				feed.logger.Error(r.Context(), "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}
		}
	}()

	// 8) Subscribe this connection to the open-request stream; unsubscribe on exit
	sub := feed.requests.Subscribe()
	defer feed.requests.Unsubscribe(sub)

	done := make(chan struct{})
	defer close(done)

	// 9) Writer: push each open request to the driver as it arrives
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := feed.writeJSON(conn, map[string]any{
					"type": "request_open",
					"data": event,
				}); err != nil {
					feed.logger.Error(r.Context(), "ws_push_failed", "Failed to push request to driver", err, map[string]any{
						"driver_id":   driverID,
						"request_ref": event.RequestID,
					})
					_ = conn.Close()
					return
				}
			}
		}
	}()

	// 10) Read loop: the feed is one-way, so inbound frames only keep the
	// connection alive and detect closes
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				feed.logger.Error(r.Context(), "ws_unexpected_close", "Driver connection closed unexpectedly", err, map[string]any{
					"driver_id": driverID,
				})
				feed.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				feed.logger.Info(r.Context(), "ws_connection_closed", "Driver connection closed normally", map[string]any{
					"driver_id": driverID,
				})
				feed.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			return
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = feed.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"bad json"}`))
			continue
		}

		switch msg.Type {
		case "ping":
			_ = feed.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"pong"}`))
		default:
			_ = feed.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"unknown message type"}`))
		}
	}
}

// sendAuthError sends an authentication error message to the client.
func (feed *Feed) sendAuthError(conn *websocket.Conn, message string) error {
	return feed.writeJSON(conn, map[string]any{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	})
}

// sendAuthSuccess sends an authentication success message to the client.
func (feed *Feed) sendAuthSuccess(conn *websocket.Conn, driverID string) error {
	return feed.writeJSON(conn, map[string]any{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"driver_id": driverID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-unlock-service/internal/app"
	"quiz-unlock-service/internal/domain"
)

// WSHandler streams a user's cool-down over a websocket until the connection closes.
type WSHandler struct {
	gate     *app.UnlockGate
	tick     time.Duration
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(gate *app.UnlockGate, tick time.Duration, log *zap.Logger) *WSHandler {
	if tick <= 0 {
		tick = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		gate: gate,
		tick: tick,
		log:  log.With(zap.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS sends "status" on connect, "countdown" on every tick while the user
// waits and a single "unlocked" each time the cool-down runs out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	// The server's read timeout still applies to the hijacked connection.
	_ = conn.SetReadDeadline(time.Time{})

	status, err := h.gate.Status(r.Context(), userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if err := conn.WriteJSON(outboundMessage[domain.UnlockStatus]{Type: "status", Payload: status}); err != nil {
		return
	}

	// Clients only send close frames; the reader exists to notice them.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	wasEligible := status.Eligible
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		status, err := h.gate.Status(r.Context(), userID)
		if err != nil {
			h.log.Warn("ws status failed", zap.String("user_id", userID), zap.Error(err))
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "status unavailable"}})
			return
		}

		var msgType string
		switch {
		case !status.Eligible:
			msgType = "countdown"
		case !wasEligible:
			msgType = "unlocked"
		}
		wasEligible = status.Eligible
		if msgType == "" {
			continue
		}
		if err := conn.WriteJSON(outboundMessage[domain.UnlockStatus]{Type: msgType, Payload: status}); err != nil {
			h.log.Debug("ws write error", zap.Error(err))
			return
		}
	}
}

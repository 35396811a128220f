package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"msgboard/internal/model"
)

// defaultWriteTimeout bounds a single event write to one feed client.
const defaultWriteTimeout = 5 * time.Second

// checkOrigin accepts the upgrade when ALLOWED_ORIGINS is "*" or lists the
// request's Origin.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.Config.AllowsAnyOrigin() {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.Config.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// HandleWebSocket handles GET /api/ws. The connection stays registered until
// its read loop fails, which is also how HandleBroadcast evicts a client.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: h.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.ClientMu.Lock()
	h.Clients[conn] = true
	totalClients := len(h.Clients)
	h.ClientMu.Unlock()

	h.Logger.Info("websocket client connected", zap.Int("clients", totalClients))

	// 受信内容は使わない。切断検知のためだけに読む
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	h.ClientMu.Lock()
	delete(h.Clients, conn)
	h.Logger.Info("websocket client disconnected", zap.Int("clients", len(h.Clients)))
	h.ClientMu.Unlock()
}

// publish queues an event for HandleBroadcast. When the queue is full the
// event is dropped rather than holding up the PUT request.
func (h *Handler) publish(event model.CreatedEventMessage) {
	select {
	case h.Broadcast <- event:
	default:
		h.Logger.Warn("broadcast queue full, dropping event", zap.String("id", event.Message.ID))
	}
}

func (h *Handler) feedClients() []*websocket.Conn {
	h.ClientMu.RLock()
	defer h.ClientMu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(h.Clients))
	for conn := range h.Clients {
		conns = append(conns, conn)
	}
	return conns
}

// HandleBroadcast sends create events to all connected WebSocket clients
// until Broadcast is closed. A client that cannot take an event within
// WriteTimeout is closed so it does not stall the feed for everyone else.
func (h *Handler) HandleBroadcast() {
	for event := range h.Broadcast {
		for _, conn := range h.feedClients() {
			conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.Logger.Warn("dropping websocket client", zap.String("id", event.Message.ID), zap.Error(err))
				conn.Close()
			}
		}
	}
}

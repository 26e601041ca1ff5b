// Package telemetry streams action frames to WebSocket clients as JSON.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Versifine/mouselook/internal/event"
)

const (
	clientBuffer = 64
	writeWait    = 2 * time.Second
)

type envelope struct {
	Type string    `json:"type"`
	Ts   time.Time `json:"ts"`
	Data any       `json:"data"`
}

type frameData struct {
	Tick       uint64 `json:"tick"`
	Yaw        int32  `json:"yaw"`
	Pitch      int32  `json:"pitch"`
	Velocity   int32  `json:"velocity"`
	Flags      uint32 `json:"flags"`
	Buttons    uint8  `json:"buttons"`
	ScrollUp   bool   `json:"scroll_up,omitempty"`
	ScrollDown bool   `json:"scroll_down,omitempty"`
}

type activationData struct {
	Active bool   `json:"active"`
	Mode   string `json:"mode"`
}

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

// Hub tracks connected clients. A client whose buffer fills is dropped
// rather than allowed to slow the others.
//
// Bus handlers run concurrently, so frames can reach the hub out of order.
// Frames are sent in increasing tick order; a frame older than the last one
// sent is discarded.
type Hub struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*client]struct{}
	lastTick uint64
}

func NewHub(bus *event.Bus) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
	if bus != nil {
		bus.Subscribe(event.EventActionFrame, h.onFrame)
		bus.Subscribe(event.EventActivation, h.onActivation)
	}
	return h
}

func (h *Hub) onFrame(raw any) {
	f, ok := raw.(event.ActionFrame)
	if !ok {
		return
	}
	msg, err := encode("frame", f.At, frameData{
		Tick:       f.Tick,
		Yaw:        f.Yaw,
		Pitch:      f.Pitch,
		Velocity:   f.Velocity,
		Flags:      f.Flags,
		Buttons:    f.Buttons,
		ScrollUp:   f.ScrollUp,
		ScrollDown: f.ScrollDown,
	})
	if err != nil {
		slog.Error("Telemetry encode failed", "type", "frame", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if f.Tick <= h.lastTick {
		return
	}
	h.lastTick = f.Tick
	h.sendLocked(msg)
}

func (h *Hub) onActivation(raw any) {
	evt, ok := raw.(event.ActivationEvent)
	if !ok {
		return
	}
	h.broadcast("activation", time.Now(), activationData{Active: evt.Active, Mode: evt.Mode})
}

func encode(typ string, at time.Time, data any) ([]byte, error) {
	if at.IsZero() {
		at = time.Now()
	}
	return json.Marshal(envelope{Type: typ, Ts: at, Data: data})
}

func (h *Hub) broadcast(typ string, at time.Time, data any) {
	msg, err := encode(typ, at, data)
	if err != nil {
		slog.Error("Telemetry encode failed", "type", typ, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(msg)
}

func (h *Hub) sendLocked(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("Telemetry client too slow, disconnecting", "remote", c.remote)
			h.removeLocked(c)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("Telemetry upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, remote: conn.RemoteAddr().String(), send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Info("Telemetry client connected", "remote", c.remote)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only watches for the peer going away.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ListenAndServe serves the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Telemetry listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.closeAll()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

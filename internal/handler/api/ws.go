package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"SignalFuse/internal/service/events"
	xlogger "SignalFuse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHub streams pipeline events (fused signals, triggered alerts, analysis
// results) to websocket clients. A slow client is disconnected rather than
// allowed to block the hub.
type WSHub struct {
	bus    *events.Bus
	logger *xlogger.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}

	stop chan struct{}
	once sync.Once
}

type wsClient struct {
	conn *websocket.Conn
	send chan events.Event
}

func NewWSHub(bus *events.Bus, logger *xlogger.Logger) *WSHub {
	return &WSHub{
		bus:     bus,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
		stop:    make(chan struct{}),
	}
}

func (h *WSHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/alerts", h.Handle)
}

// Run pumps bus events to all connected clients until the context ends.
func (h *WSHub) Run(ctx context.Context) {
	ch, cancel := h.bus.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(ev)
		}
	}
}

// Stop disconnects every client and halts the pump.
func (h *WSHub) Stop() {
	h.once.Do(func() { close(h.stop) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) broadcast(ev events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			// client too slow, prune it so the hub never blocks
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// Handle upgrades the connection and registers the client.
func (h *WSHub) Handle(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	client := &wsClient{
		conn: conn,
		send: make(chan events.Event, 64),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

func (h *WSHub) writePump(c *wsClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer c.conn.Close()
	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump drains client frames so pings are answered; inbound payloads are
// ignored.
func (h *WSHub) readPump(c *wsClient) {
	defer c.conn.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *WSHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"devpilot/internal/constants"
	"devpilot/internal/events"
	"devpilot/internal/logger"
	"devpilot/internal/orchestrator"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// allowedOrigins are the origin prefixes accepted for browser clients
var allowedOrigins = []string{
	"http://localhost",
	"https://localhost",
	"http://127.0.0.1",
	"https://127.0.0.1",
	"http://[::1]",
	"https://[::1]",
}

// checkOrigin accepts clients without an Origin header (CLI tools) and
// browsers on localhost
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range allowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}

	logger.WithFields(logger.Fields{
		"origin": origin,
		"remote": r.RemoteAddr,
	}).Warn("WebSocket connection rejected - invalid origin")
	return false
}

var upgrader = websocket.Upgrader{
	CheckOrigin:     checkOrigin,
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// client is one WebSocket connection. Writes are serialised because event
// delivery and command replies happen on different goroutines.
type client struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

// WriteJSON writes one frame with a deadline
func (c *client) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(constants.DefaultWSWriteTimeout))
	return c.ws.WriteJSON(v)
}

// Hub streams every bus event to connected clients and runs the commands
// they send
type Hub struct {
	orch Orchestrator
	sub  events.Subscription

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

// NewHub subscribes a hub to every event of orch's bus
func NewHub(orch Orchestrator) *Hub {
	h := &Hub{
		orch:    orch,
		clients: make(map[string]*client),
	}
	h.sub = orch.Bus().SubscribeAll(h.broadcast)
	return h
}

// broadcast forwards an event that was already published on the bus. It
// writes with events.SendToConns rather than Bus.BroadcastToWebSocket,
// which would publish the event again and re-enter this subscriber.
func (h *Hub) broadcast(e events.Event) {
	h.mu.RLock()
	conns := make([]events.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	events.SendToConns(conns, e)
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and reads command messages until the client
// disconnects
// @Summary Event stream
// @Description WebSocket carrying every event as {type, payload}; command messages are answered with command-result
// @Tags events,websocket
// @Success 101 {string} string "Switching Protocols"
// @Router /ws [get]
func (h *Hub) Serve(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.WithError(err).Warn("Failed to upgrade WebSocket connection")
		return nil
	}

	cl := &client{id: uuid.NewString(), ws: ws}
	if !h.register(cl) {
		ws.Close()
		return nil
	}
	log := logger.WithField("client", cl.id)
	log.Debug("WebSocket client connected")

	defer func() {
		h.unregister(cl)
		ws.Close()
		log.Debug("WebSocket client disconnected")
	}()

	for {
		var msg ClientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("WebSocket read failed")
			}
			return nil
		}
		if !h.track() {
			return nil
		}
		go h.run(cl, msg)
	}
}

// run executes one command message and replies on the sending connection
func (h *Hub) run(cl *client, msg ClientMessage) {
	defer h.wg.Done()

	res := h.orch.Execute(context.Background(), orchestrator.Command{Type: msg.Type, Service: msg.Service})
	reply := CommandResultMessage{Type: MessageTypeCommandResult, Command: msg.Type, Result: res}
	if err := cl.WriteJSON(reply); err != nil {
		logger.WithError(err).WithField("client", cl.id).Debug("Failed to deliver command result")
	}
}

func (h *Hub) register(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl.id] = cl
	return true
}

// track reserves a slot for one command goroutine unless the hub is closed
func (h *Hub) track() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return false
	}
	h.wg.Add(1)
	return true
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, cl.id)
}

// Close detaches the hub from the bus, disconnects every client and waits
// for in-flight commands
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, cl := range h.clients {
		cl.mu.Lock()
		_ = cl.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		cl.mu.Unlock()
		cl.ws.Close()
	}
	h.mu.Unlock()

	h.orch.Bus().Unsubscribe(h.sub)
	h.wg.Wait()
}

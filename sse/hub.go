package sse

import (
	"maps"
	"slices"
	"sync"

	"github.com/skillsenselab/livescribe/logger"
)

// clientBuffer is the per-client event channel capacity. A browser on a
// healthy connection drains far faster than the pipeline emits; the
// buffer absorbs short stalls without blocking the broadcast loop.
const clientBuffer = 256

// Message is one event queued for a client.
type Message struct {
	Event string
	Data  []byte
}

// Client is one connected SSE subscriber.
type Client struct {
	id     string
	events chan Message
}

// NewClient creates a client with the given ID. IDs come from the HTTP
// layer, one uuid per connection.
func NewClient(id string) *Client {
	return &Client{
		id:     id,
		events: make(chan Message, clientBuffer),
	}
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// Events returns the channel the serving loop reads from.
func (c *Client) Events() <-chan Message { return c.events }

// Send queues a message for the client. It returns false when the
// client's buffer is full; the message is dropped rather than blocking
// the hub.
func (c *Client) Send(msg Message) bool {
	select {
	case c.events <- msg:
		return true
	default:
		return false
	}
}

// close releases the client's event channel. Only the hub's run loop
// calls this, so sends and close cannot race.
func (c *Client) close() {
	close(c.events)
}

// Hub fans broadcast events out to every connected client. All map
// mutation happens on the Run goroutine; the mutex only guards
// read-side accessors.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool

	joins  chan *Client
	leaves chan *Client
	outbox chan Message
	quit   chan struct{}

	log *logger.Logger
}

// NewHub creates a hub. Call Run in a goroutine before registering
// clients, and Stop to shut it down.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		joins:   make(chan *Client),
		leaves:  make(chan *Client),
		outbox:  make(chan Message, clientBuffer),
		quit:    make(chan struct{}),
		log:     logger.Get("sse"),
	}
}

// Run is the hub's event loop. It returns after Stop, once every client
// channel has been closed.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.dropAll()
			return
		case c := <-h.joins:
			h.attach(c)
		case c := <-h.leaves:
			h.detach(c)
		case msg := <-h.outbox:
			h.fanOut(msg)
		}
	}
}

// Stop shuts the hub down and disconnects all clients. Safe to call
// more than once.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.quit)
	}
}

// Register attaches a client to the hub. It is a no-op after Stop.
func (h *Hub) Register(client *Client) {
	select {
	case h.joins <- client:
	case <-h.quit:
	}
}

// Unregister detaches a client and closes its event channel. It is a
// no-op after Stop; shutdown closes the channel instead.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.leaves <- client:
	case <-h.quit:
	}
}

// Broadcast queues an event for every connected client.
func (h *Hub) Broadcast(event string, data []byte) {
	select {
	case h.outbox <- Message{Event: event, Data: data}:
	case <-h.quit:
	}
}

func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client registered", logger.Fields(
		logger.FieldClientID, c.id,
		"total_clients", total,
	))
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client unregistered", logger.Fields(
		logger.FieldClientID, c.id,
		"total_clients", total,
	))
}

// fanOut delivers a message to every client. Runs on the hub goroutine.
func (h *Hub) fanOut(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.clients {
		if !client.Send(msg) {
			h.log.Warn("client buffer full, dropping event", logger.Fields(
				logger.FieldClientID, id,
				"event", msg.Event,
			))
		}
	}
}

// dropAll disconnects every client during shutdown.
func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.close()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientIDs returns the IDs of all connected clients.
func (h *Hub) ClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Collect(maps.Keys(h.clients))
}

var _ Broadcaster = (*Hub)(nil)

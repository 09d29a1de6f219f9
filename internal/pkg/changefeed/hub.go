package changefeed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Op is the kind of table change carried on the feed
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change is one committed table mutation. The feed is advisory only:
// subscribers re-fetch on receipt, they never treat the payload as truth.
type Change struct {
	Op        Op          `json:"op"`
	Table     string      `json:"table"`
	Record    interface{} `json:"record,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of subscribed clients and fans committed changes
// out to them, keyed by table name.
type Hub struct {
	// Registered clients organized by table name
	clients map[string]map[*Client]bool

	// Channel for changes to broadcast
	broadcast chan *Change

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for concurrent access to clients map
	mu sync.RWMutex

	// Mutex for change listeners
	listenersMu sync.RWMutex

	// In-process change listeners
	listeners []chan *Change

	// Logger for Hub operations
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan *Change, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]map[*Client]bool),
		listeners:  []chan *Change{},
		logger:     logger,
	}
}

// Run starts the hub, handling client registrations and broadcasts
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case change := <-h.broadcast:
			h.broadcastChange(change)
		}
	}
}

// Publish queues a committed change for broadcast without blocking the
// caller; the feed being full or slow must never delay a lifecycle commit.
func (h *Hub) Publish(change Change) {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- &change:
	default:
		h.logger.Warn().Str("table", change.Table).Msg("Change feed buffer full, dropping change")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	table := client.table
	if _, ok := h.clients[table]; !ok {
		h.clients[table] = make(map[*Client]bool)
	}
	h.clients[table][client] = true

	h.logger.Info().
		Str("table", table).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Change feed client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	table := client.table
	if _, ok := h.clients[table]; ok {
		if _, ok := h.clients[table][client]; ok {
			delete(h.clients[table], client)
			close(client.send)

			if len(h.clients[table]) == 0 {
				delete(h.clients, table)
			}

			h.logger.Info().
				Str("table", table).
				Str("addr", client.conn.RemoteAddr().String()).
				Msg("Change feed client unregistered")
		}
	}
}

func (h *Hub) broadcastChange(change *Change) {
	h.notifyListeners(change)

	h.mu.RLock()
	clients, ok := h.clients[change.Table]
	if !ok {
		h.mu.RUnlock()
		return
	}

	data, err := json.Marshal(change)
	if err != nil {
		h.mu.RUnlock()
		h.logger.Error().Err(err).Str("table", change.Table).Msg("Failed to marshal change for broadcast")
		return
	}

	// Clients whose send buffer is full are slow or disconnected; collect
	// them and drop them after releasing the read lock
	var slow []*Client
	for client := range clients {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.unregisterClient(client)
	}
}

// notifyListeners sends a change to all registered in-process listeners
func (h *Hub) notifyListeners(change *Change) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()

	for _, listener := range h.listeners {
		select {
		case listener <- change:
		default:
			h.logger.Warn().Msg("Skipped slow change listener")
		}
	}
}

// AddListener registers a channel to receive all changes
func (h *Hub) AddListener(listener chan *Change) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	h.listeners = append(h.listeners, listener)
}

// RemoveListener removes a listener from the hub
func (h *Hub) RemoveListener(listener chan *Change) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	for i, l := range h.listeners {
		if l == listener {
			h.listeners[i] = h.listeners[len(h.listeners)-1]
			h.listeners = h.listeners[:len(h.listeners)-1]
			break
		}
	}
}

// ClientCount returns the number of connected clients for a table
func (h *Hub) ClientCount(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.clients[table]; ok {
		return len(clients)
	}
	return 0
}

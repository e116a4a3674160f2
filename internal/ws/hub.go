package ws

import (
	"sync"

	"mindcascade/internal/game"
	"mindcascade/internal/ledger"
	"mindcascade/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "ws_clients_connected",
	Help: "Websocket clients currently streaming stats",
})

func init() {
	prometheus.MustRegister(connectedClients)
}

// Hub tracks connected stat-stream clients by session. Each session with at
// least one client holds a single ledger subscription that fans out to all of
// them. A session reloaded into a new ledger moves the subscription there.
type Hub struct {
	// Games builds level runs for clients that play over the stream.
	Games *game.Factory

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	subs    map[string]subscription
}

type subscription struct {
	ledger *ledger.Ledger
	cancel func()
}

func NewHub() *Hub {
	return &Hub{
		Games:   game.NewFactory(),
		clients: make(map[string]map[*Client]struct{}),
		subs:    make(map[string]subscription),
	}
}

func (h *Hub) register(c *Client, l *ledger.Ledger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.SessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.SessionID] = set
	}
	if sub, ok := h.subs[c.SessionID]; !ok || sub.ledger != l {
		if ok {
			sub.cancel()
			logger.Debug("ws: session ledger replaced", "session_id", c.SessionID)
		}
		sessionID := c.SessionID
		h.subs[sessionID] = subscription{
			ledger: l,
			cancel: l.Subscribe(func(s ledger.Snapshot) {
				h.Broadcast(sessionID, StatsMessage(s))
			}),
		}
	}
	set[c] = struct{}{}
	connectedClients.Inc()
	logger.Debug("ws: client registered", "session_id", c.SessionID, "session_clients", len(set))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.SessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.SessionID)
		if sub, ok := h.subs[c.SessionID]; ok {
			sub.cancel()
			delete(h.subs, c.SessionID)
		}
	}
	connectedClients.Dec()
}

// currentLedger returns the ledger the session is currently subscribed to.
func (h *Hub) currentLedger(sessionID string) (*ledger.Ledger, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sub, ok := h.subs[sessionID]
	return sub.ledger, ok
}

// Count returns the number of clients connected for a session.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Broadcast queues msg to every client of a session.
func (h *Hub) Broadcast(sessionID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[sessionID] {
		c.queue(msg)
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.Close()
	}
}

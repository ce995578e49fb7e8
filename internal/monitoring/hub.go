// Package monitoring pushes live shop events to connected dashboards.
package monitoring

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"neodukaan-backend/internal/metrics"
	"neodukaan-backend/internal/timeutil"
)

const (
	EventSaleSettled  = "sale.settled"
	EventKhataPayment = "khata.payment"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Event struct {
	Type      string    `json:"type"`
	ShopID    string    `json:"-"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is what services need from the hub.
type Publisher interface {
	Publish(shopID, eventType string, data any)
}

type client struct {
	conn   *websocket.Conn
	shopID string
	send   chan Event
}

// Hub fans events out to the websocket clients of the event's shop.
type Hub struct {
	log        *logrus.Entry
	clients    map[string]map[*client]bool
	clientsMux sync.Mutex
	broadcast  chan Event
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		log:       log,
		clients:   make(map[string]map[*client]bool),
		broadcast: make(chan Event, 256),
	}
}

// Publish queues an event. It never blocks a request: when the queue is
// full the event is dropped.
func (h *Hub) Publish(shopID, eventType string, data any) {
	ev := Event{Type: eventType, ShopID: shopID, Data: data, Timestamp: timeutil.Now()}
	select {
	case h.broadcast <- ev:
	default:
		h.log.WithField("type", eventType).Warn("live feed queue full, event dropped")
	}
}

// Run delivers queued events until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for c := range h.clients[ev.ShopID] {
		select {
		case c.send <- ev:
		default:
			// slow client
			h.removeLocked(c)
		}
	}
}

// ClientCount returns the number of connected clients of a shop.
func (h *Hub) ClientCount(shopID string) int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients[shopID])
}

// ServeWS upgrades the request and subscribes it to the shop's events.
// The caller has already authenticated the shop.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, shopID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade error")
		return
	}

	c := &client{conn: conn, shopID: shopID, send: make(chan Event, 32)}
	h.clientsMux.Lock()
	if h.clients[shopID] == nil {
		h.clients[shopID] = make(map[*client]bool)
	}
	h.clients[shopID][c] = true
	h.clientsMux.Unlock()
	metrics.LiveClients.Inc()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	shopClients := h.clients[c.shopID]
	if !shopClients[c] {
		return
	}
	delete(shopClients, c)
	if len(shopClients) == 0 {
		delete(h.clients, c.shopID)
	}
	close(c.send)
	metrics.LiveClients.Dec()
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for _, shopClients := range h.clients {
		for c := range shopClients {
			h.removeLocked(c)
		}
	}
}

package websocket

import (
	"context"
	"sync"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/utils"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var logger = utils.PackageLogger("websocket")

// Message types sent over the socket besides partner notifications
const (
	MessageTypeConnected = "connected"
)

// Message represents a frame sent over WebSocket
type Message struct {
	Type      string      `json:"type"`
	Title     string      `json:"title,omitempty"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	PartnerID string      `json:"partnerId,omitempty"`
}

// Client is one connection of a partner. A partner may hold several.
type Client struct {
	PartnerID primitive.ObjectID
	Conn      *websocket.Conn
	writeMu   sync.Mutex
}

// WriteJSON serializes writes; the connection supports one writer at a time
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Hub maintains the set of active clients and delivers partner notifications
type Hub struct {
	clients    map[primitive.ObjectID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.PartnerID] == nil {
				h.clients[client.PartnerID] = make(map[*Client]bool)
			}
			h.clients[client.PartnerID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.PartnerID]; ok {
				delete(conns, client)
				if len(conns) == 0 {
					delete(h.clients, client.PartnerID)
				}
			}
			h.mu.Unlock()
			client.Conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conns := range h.clients {
		for client := range conns {
			client.Conn.Close()
		}
		delete(h.clients, id)
	}
}

// Connected reports how many connections the partner holds
func (h *Hub) Connected(partnerID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[partnerID])
}

// SendToPartner writes msg to every connection of the partner and returns
// the number of connections reached
func (h *Hub) SendToPartner(partnerID primitive.ObjectID, msg Message) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[partnerID]))
	for client := range h.clients[partnerID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range targets {
		if err := client.WriteJSON(msg); err != nil {
			logger.Debug().Err(err).Str("partner", partnerID.Hex()).Msg("websocket write failed")
			continue
		}
		sent++
	}
	return sent
}

// Notify delivers a partner notification to the partner's open connections
func (h *Hub) Notify(ctx context.Context, n models.Notification) {
	h.SendToPartner(n.PartnerID, Message{
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		PartnerID: n.PartnerID.Hex(),
	})
}

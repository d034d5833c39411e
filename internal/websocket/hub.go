package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// TopicAll receives every event regardless of booking
const TopicAll = "all"

// Message is the frame pushed to subscribed clients
type Message struct {
	Type      models.EventType   `json:"type"`
	BookingID string             `json:"bookingId"`
	Event     models.DomainEvent `json:"event"`
	Timestamp int64              `json:"timestamp"`
}

type envelope struct {
	topics []string
	data   []byte
	kind   models.EventType
}

// Client represents a WebSocket client connection
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

// Hub fans domain events out to clients subscribed by booking or to all
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
	mu         sync.RWMutex
	log        logger.Logger
}

// NewHub creates a new Hub
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]bool)
			}
			h.clients[client.topic][client] = true
			h.log.Debug("websocket client registered", "topic", client.topic, "clients", len(h.clients[client.topic]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			delivered := 0
			for _, topic := range msg.topics {
				for client := range h.clients[topic] {
					select {
					case client.send <- msg.data:
						delivered++
					default:
						h.remove(client)
					}
				}
			}
			h.mu.Unlock()
			h.log.Debug("websocket broadcast", "type", msg.kind, "delivered", delivered)
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.topic)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// Publish queues an event for the "all" topic and for its booking's topic
func (h *Hub) Publish(ctx context.Context, event models.DomainEvent) error {
	msg := Message{
		Type:      event.Type(),
		BookingID: event.AggregateID.String(),
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- envelope{topics: []string{TopicAll, msg.BookingID}, data: data, kind: msg.Type}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of clients subscribed to a topic
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// TopicFor maps an optional booking ID query value to a topic
func TopicFor(bookingID string) (string, error) {
	if bookingID == "" {
		return TopicAll, nil
	}
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

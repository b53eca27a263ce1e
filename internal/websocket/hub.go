package websocket

import (
	"context"
	"sync"
	"time"

	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single frame write to a peer.
	writeWait = 10 * time.Second
	// outboxSize is how many frames may wait for a slow subscriber before it is dropped.
	outboxSize = 64
)

// Subscriber is anything the hub can push a frame to.
type Subscriber interface {
	Send(payload []byte) error
	Close()
}

// Client wraps one websocket connection. Writes are serialized.
type Client struct {
	Conn *websocket.Conn
	mu   sync.Mutex
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{Conn: conn}
}

func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) Close() {
	_ = c.Conn.Close()
}

// Message is a frame to fan out to every subscriber except From.
type Message struct {
	From    Subscriber
	Payload []byte
}

// Hub owns the set of connected subscribers. All map access happens on the Run
// goroutine; each subscriber is written to by its own writer goroutine.
type Hub struct {
	clients    map[Subscriber]chan []byte
	register   chan Subscriber
	unregister chan Subscriber
	broadcast  chan Message
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[Subscriber]chan []byte),
		register:   make(chan Subscriber),
		unregister: make(chan Subscriber),
		broadcast:  make(chan Message),
		done:       make(chan struct{}),
	}
}

// Run processes register, unregister and broadcast requests until ctx ends,
// then closes every remaining subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			metrics.WSClients.Set(0)
			return
		case client := <-h.register:
			if _, ok := h.clients[client]; ok {
				continue
			}
			outbox := make(chan []byte, outboxSize)
			h.clients[client] = outbox
			go h.write(client, outbox)
			metrics.WSClients.Set(float64(len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				metrics.WSClients.Set(float64(len(h.clients)))
			}
		case msg := <-h.broadcast:
			for client, outbox := range h.clients {
				if client == msg.From {
					continue
				}
				select {
				case outbox <- msg.Payload:
				default:
					logger.SystemLogger.Warn("Dropping websocket client with a full outbox", zap.Int("queued", len(outbox)))
					h.drop(client)
				}
			}
			metrics.WSClients.Set(float64(len(h.clients)))
		}
	}
}

// drop forgets client, stops its writer and closes it. Run goroutine only.
func (h *Hub) drop(client Subscriber) {
	close(h.clients[client])
	delete(h.clients, client)
	client.Close()
}

// write drains outbox into client until the outbox closes or a send fails.
func (h *Hub) write(client Subscriber, outbox <-chan []byte) {
	for payload := range outbox {
		if err := client.Send(payload); err != nil {
			logger.SystemLogger.Warn("Dropping websocket client after failed send", zap.Error(err))
			h.Unregister(client)
			return
		}
	}
}

// Register adds a subscriber. It returns false once the hub has stopped.
func (h *Hub) Register(s Subscriber) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(s Subscriber) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Broadcast queues payload for every subscriber other than from. from may be nil.
func (h *Hub) Broadcast(from Subscriber, payload []byte) {
	select {
	case h.broadcast <- Message{From: from, Payload: payload}:
	case <-h.done:
	}
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

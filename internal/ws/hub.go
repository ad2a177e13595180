package ws

import (
	"log"
	"sync"
	"sync/atomic"
)

// Hub maintains the set of active clients and broadcasts full-state frames
// to them. All client-set changes happen on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	count      atomic.Int64

	// current is the last broadcast frame; new clients receive it on register.
	current []byte
}

// NewHub creates a hub. initial is sent to clients that register before the
// first broadcast.
func NewHub(initial []byte) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
		current:    initial,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			if h.current != nil && !client.trySend(h.current) {
				h.drop(client)
			}
			log.Printf("WebSocket client connected (total: %d)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Printf("WebSocket client disconnected (total: %d)", len(h.clients))
			}

		case msg := <-h.broadcast:
			h.current = msg
			for client := range h.clients {
				// A full buffer means the client stopped reading; cut it loose
				// rather than hold up everyone else.
				if !client.trySend(msg) {
					h.drop(client)
				}
			}

		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Broadcast queues msg for every registered client. Frames are delivered in
// the order Broadcast is called.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Register adds a client and sends it the current state.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	return int(h.count.Load())
}

// Close stops Run and closes every client's send channel.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	h.count.Store(int64(len(h.clients)))
	c.close()
}

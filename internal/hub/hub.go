// Package hub fans credential events out to the live sessions of a user.
package hub

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrStopped = errors.New("hub: stopped")

type EventType string

const (
	// EventRecordChanged means the user's directory record was approved, revoked or deleted.
	EventRecordChanged EventType = "record_changed"
	// EventSignedOut means every credential issued to the user was revoked.
	EventSignedOut EventType = "signed_out"
)

type Event struct {
	Type EventType `json:"type"`
	UID  string    `json:"uid"`
	At   time.Time `json:"at"`
}

// Publisher delivers an event to every session of Event.UID, on this replica or all of them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Client struct {
	ID   string
	UID  string
	Send chan Event
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	// done is closed when Run returns.
	done chan struct{}
	mu   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				if client.UID != event.UID {
					continue
				}
				select {
				case client.Send <- event:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds client. After Run has returned it does nothing.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes client and closes its Send channel. After Run has
// returned it does nothing.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish delivers event to the sessions connected to this replica.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount reports how many sessions of uid are connected.
func (h *Hub) ClientCount(uid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, client := range h.clients {
		if client.UID == uid {
			n++
		}
	}
	return n
}

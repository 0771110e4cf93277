// Package realtime pushes swap events to connected participants over
// websockets. The hub is an events.Subscriber: every event it handles is
// forwarded to the open connections of the event's recipients.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"alumnet/internal/events"
	"alumnet/internal/logger"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
	pingTimeout  = 5 * time.Second
)

// Message is the frame written to clients.
type Message struct {
	Type       events.Type            `json:"type"`
	EntityID   uuid.UUID              `json:"entity_id"`
	ActorID    uuid.UUID              `json:"actor_id,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type Client struct {
	UserID uuid.UUID
	conn   *websocket.Conn
	send   chan Message

	ctx    context.Context
	cancel context.CancelFunc
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	dropped atomic.Int64
	log     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: map[uuid.UUID]map[*Client]struct{}{},
		log:     logger.OrNop(log).With("component", "realtime"),
	}
}

// AddClient registers conn and starts its writer. parent bounds the client's lifetime.
func (h *Hub) AddClient(parent context.Context, userID uuid.UUID, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(parent)
	c := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop(h.log)
	go c.keepAliveLoop()
	return c
}

func (h *Hub) RemoveClient(c *Client) {
	c.cancel()

	h.mu.Lock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()

	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Connections reports how many sockets userID has open.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Dropped reports messages discarded because a client's buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// BroadcastToUsers never blocks; a slow client loses messages, not the sender.
func (h *Hub) BroadcastToUsers(userIDs []uuid.UUID, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			select {
			case c.send <- msg:
			default:
				h.dropped.Add(1)
			}
		}
	}
}

func (h *Hub) Name() string { return "realtime" }

func (h *Hub) Handle(_ context.Context, ev events.Event) error {
	if len(ev.Recipients) == 0 {
		return nil
	}
	h.BroadcastToUsers(ev.Recipients, Message{
		Type:       ev.Type,
		EntityID:   ev.EntityID,
		ActorID:    ev.ActorID,
		Data:       ev.Data,
		OccurredAt: ev.OccurredAt,
	})
	return nil
}

// writeLoop owns all writes to the connection. send is never closed, so
// broadcasters cannot race a closed channel.
func (c *Client) writeLoop(log *logger.Logger) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.send:
			writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				log.Debug("websocket write failed", "user_id", c.UserID, "error", err)
				c.cancel()
				return
			}
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, pingTimeout)
			_ = c.conn.Ping(pingCtx)
			cancel()
		}
	}
}

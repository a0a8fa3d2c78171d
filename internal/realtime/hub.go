// Package realtime pushes new thread messages to connected participants.
//
// Each instance keeps the sockets it accepted. With Redis configured, a
// message is published on "thread:<id>" and every instance (this one
// included) delivers it to its local sockets; without Redis delivery is
// local only. Delivery is best-effort: slow sockets are dropped.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/confide/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "thread:"

// Envelope is the frame written to sockets.
type Envelope struct {
	Type string               `json:"type"`
	Data models.ThreadMessage `json:"data"`
}

type Hub struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Client]struct{}
	closed bool
	rdb    *redis.Client
	logger *zap.Logger
}

// NewHub builds a hub. rdb may be nil for single-instance delivery.
func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uuid.UUID]map[*Client]struct{}),
		rdb:    rdb,
		logger: logger,
	}
}

// Run relays Redis thread channels to local sockets until ctx is done.
// Without Redis it just waits for ctx.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		<-ctx.Done()
		return
	}

	pubsub := h.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()
	h.logger.Info("realtime hub subscribed", zap.String("pattern", channelPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			threadID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
			if err != nil {
				h.logger.Warn("ignoring message on unexpected channel", zap.String("channel", msg.Channel))
				continue
			}
			h.deliver(threadID, []byte(msg.Payload))
		}
	}
}

// BroadcastMessage sends msg to every socket watching its thread.
func (h *Hub) BroadcastMessage(ctx context.Context, msg models.ThreadMessage) error {
	data, err := json.Marshal(Envelope{Type: "message", Data: msg})
	if err != nil {
		return fmt.Errorf("marshal message frame: %w", err)
	}

	if h.rdb == nil {
		h.deliver(msg.ThreadID, data)
		return nil
	}
	if err := h.rdb.Publish(ctx, channelPrefix+msg.ThreadID.String(), data).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(c.send)
		return
	}
	room, ok := h.rooms[c.threadID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.threadID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("socket registered",
		zap.String("thread_id", c.threadID.String()),
		zap.String("user_id", c.userID.String()),
	)
}

// Unregister removes c and closes its send queue. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.threadID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.threadID)
	}
}

// Close closes every local socket's send queue, which makes its writer send
// a close frame. Sockets registered afterwards are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	n := 0
	for threadID, room := range h.rooms {
		for c := range room {
			close(c.send)
			n++
		}
		delete(h.rooms, threadID)
	}
	h.logger.Info("realtime hub closed", zap.Int("sockets", n))
}

// Clients reports how many local sockets watch threadID.
func (h *Hub) Clients(threadID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[threadID])
}

func (h *Hub) deliver(threadID uuid.UUID, data []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.rooms[threadID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow socket",
			zap.String("thread_id", threadID.String()),
			zap.String("user_id", c.userID.String()),
		)
		h.Unregister(c)
	}
}

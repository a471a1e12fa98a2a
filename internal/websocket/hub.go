package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-notebook-companion/internal/dto"
	"ai-notebook-companion/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries job notifications between instances.
const ClusterChannel = "embedding_job_events"

type Hub struct {
	// user id -> open connections (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	// Optional; nil disables cross-instance delivery
	rdb *redis.Client
	// Identifies this instance so it skips its own cluster messages
	origin string

	logger logger.ILogger
}

type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

// Run owns registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = append(h.clients[client.userID], client)
			h.mu.Unlock()
			h.logger.Debug("WS_HUB", "Client registered", map[string]interface{}{"user_id": client.userID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// add hands a client to Run; false once the hub has stopped.
func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.userID]
	for i, c := range clients {
		if c == client {
			h.clients[client.userID] = append(clients[:i], clients[i+1:]...)
			close(client.send)
			break
		}
	}
	if len(h.clients[client.userID]) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clients := range h.clients {
		for _, c := range clients {
			close(c.send)
		}
		delete(h.clients, userID)
	}
}

// Connected reports how many connections a user has on this instance.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// NotifyJobFinished delivers the job to the user's local connections and
// forwards it to other instances through Redis.
func (h *Hub) NotifyJobFinished(userID uuid.UUID, job *dto.EmbeddingJobResponse) {
	data, err := json.Marshal(envelope{Type: "embedding_job", Data: job})
	if err != nil {
		h.logger.Error("WS_HUB", "Failed to encode job notification", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(userID, data)

	if h.rdb == nil {
		return
	}
	payload, _ := json.Marshal(clusterMessage{
		Origin:       h.origin,
		TargetUserID: userID.String(),
		Message:      data,
	})
	if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
		h.logger.Warn("WS_HUB", "Cluster publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) deliver(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("WS_HUB", "Send buffer full, dropping client", map[string]interface{}{"user_id": userID})
			go h.drop(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	h.relay(ctx, pubsub.Channel())
}

// relay delivers cluster messages from other instances until ctx ends or the channel closes.
func (h *Hub) relay(ctx context.Context, messages <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			h.receiveCluster(msg.Payload)
		}
	}
}

func (h *Hub) receiveCluster(raw string) {
	var payload clusterMessage
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		h.logger.Warn("WS_HUB", "Dropping malformed cluster message", map[string]interface{}{"error": err.Error()})
		return
	}
	if payload.Origin == h.origin {
		return
	}
	userID, err := uuid.Parse(payload.TargetUserID)
	if err != nil {
		return
	}
	h.deliver(userID, payload.Message)
}

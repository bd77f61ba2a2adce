package websocket

import (
	"context"
	"encoding/json"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries frames between instances: a user's tabs may be
// connected to a different instance than the one that owns the session.
const ClusterChannel = "session_frames"

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-tab)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	// deliveries from this instance and from the cluster channel
	local chan delivery
	done  chan struct{}

	// Redis connection for cross-instance communication
	rdb *redis.Client
	id  string

	logger logger.ILogger
}

type delivery struct {
	userID string
	data   []byte
}

func NewHub(rdb *redis.Client, instanceID string, log logger.ILogger) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		local:      make(chan delivery, 256),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		id:         instanceID,
		logger:     log,
	}
}

// Run owns the client map; it returns when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for uid, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, uid)
			}
			return

		case client := <-h.register:
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.local:
			for _, client := range h.clients[d.userID] {
				select {
				case client.Send <- d.data:
				default:
					h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"user_id": d.userID})
					h.remove(client)
				}
			}
		}
	}
}

// join hands c to Run. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave hands c back to Run; after shutdown there is nothing left to do.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
	}
}

// Push delivers a frame to every connection of the user, here and on the
// other instances.
func (h *Hub) Push(userID string, frame dto.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode frame", map[string]interface{}{"type": frame.Type, "error": err.Error()})
		return
	}

	select {
	case h.local <- delivery{userID: userID, data: data}:
	default:
		h.logger.Warn("Hub", "Delivery queue full, dropping frame", map[string]interface{}{"user_id": userID, "type": frame.Type})
	}

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.id, TargetUserID: userID, Message: data})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish frame to cluster", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.id {
				continue
			}
			select {
			case h.local <- delivery{userID: payload.TargetUserID, data: payload.Message}:
			case <-ctx.Done():
				return
			}
		}
	}
}

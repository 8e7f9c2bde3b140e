package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"messaging-service/internal/service"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "chatroom:"

// Hub is the conversation channel registry: it maps room names to the live
// connections observing them and fans events out to every current member.
// Delivery is at-most-once and best-effort; disconnected peers catch up
// through the message store.
//
// With a Redis client configured, publishes go through Redis pub/sub so
// members connected to other instances receive them too. Without one, the
// hub fans out locally.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]bool

	rdb      *redis.Client
	presence *service.PresenceService
	pubsub   *redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(rdb *redis.Client, presence *service.PresenceService) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:    make(map[string]map[*Client]bool),
		rdb:      rdb,
		presence: presence,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run blocks until Stop. When Redis bridging is enabled it relays incoming
// pub/sub traffic to local room members.
func (h *Hub) Run() {
	if h.rdb == nil {
		<-h.ctx.Done()
		return
	}

	h.pubsub = h.rdb.PSubscribe(h.ctx, redisChannelPrefix+"*")
	ch := h.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Error("Dropping malformed room envelope", "channel", msg.Channel, "error", err)
				continue
			}
			h.deliver(&env)
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}

// Join attaches a connection to its room's subscriber group. A connection
// belongs to exactly one room and is added once per connect.
func (h *Hub) Join(client *Client) {
	h.mu.Lock()
	if h.rooms[client.room] == nil {
		h.rooms[client.room] = make(map[*Client]bool)
	}
	h.rooms[client.room][client] = true
	h.mu.Unlock()

	slog.Info("Client joined room", "clientID", client.id, "userID", client.userID, "room", client.room)

	if h.presence != nil {
		if err := h.presence.SetUserOnline(h.ctx, client.userID); err != nil {
			slog.Error("Failed to set user online", "userID", client.userID, "error", err)
		}
	}
}

// Leave detaches a connection from whatever room it joined. Safe to call
// more than once and safe concurrently with Publish.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	members, ok := h.rooms[client.room]
	if ok && members[client] {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, client.room)
		}
		client.closeSend()
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	slog.Info("Client left room", "clientID", client.id, "userID", client.userID, "room", client.room)

	if h.presence != nil {
		if err := h.presence.SetUserOffline(h.ctx, client.userID); err != nil {
			slog.Error("Failed to set user offline", "userID", client.userID, "error", err)
		}
	}
}

// Publish delivers data to every connection currently joined to room,
// restricted to participants when given. Events published to one room are
// delivered in publish order.
func (h *Hub) Publish(ctx context.Context, room string, participants []uint, data []byte) error {
	env := &Envelope{Room: room, Participants: participants, Data: data}

	if h.rdb != nil {
		payload, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return h.rdb.Publish(ctx, redisChannelPrefix+room, payload).Err()
	}

	h.deliver(env)
	return nil
}

// deliver fans an envelope out to local members. A member whose send queue
// is full is dropped from the room rather than blocking the publisher; its
// write pump shuts the connection down and the client reconnects.
func (h *Hub) deliver(env *Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[env.Room]
	for client := range members {
		if !env.allows(client.userID) {
			continue
		}
		select {
		case client.send <- env.Data:
		default:
			slog.Warn("Dropping slow client", "clientID", client.id, "userID", client.userID, "room", env.Room)
			delete(members, client)
			client.closeSend()
		}
	}
	if len(members) == 0 {
		delete(h.rooms, env.Room)
	}
}

// RoomSize reports how many connections are currently joined to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

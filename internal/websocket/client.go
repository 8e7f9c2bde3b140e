package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/notify"
	"messaging-service/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Attachments arrive base64-encoded inside
	// the JSON frame, so this bounds attachment size too.
	maxMessageSize = 10 << 20
)

// Client is one authenticated connection observing one counterpart. Events
// from the connection are processed sequentially: a send's persist and
// publish complete before the next frame is read, which keeps this
// connection's events in commit order. The peer's connection runs
// independently.
type Client struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	userID     uint
	peerID     uint
	room       string
	messages   *service.MessageService
	dispatcher notify.Dispatcher

	sendClosed int32
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, peerID uint, messages *service.MessageService, dispatcher notify.Dispatcher) *Client {
	return &Client{
		id:         uuid.New().String(),
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		userID:     userID,
		peerID:     peerID,
		room:       RoomName(userID, peerID),
		messages:   messages,
		dispatcher: dispatcher,
	}
}

func (c *Client) Room() string {
	return c.room
}

// Start registers the client with the hub and runs the pumps. It returns
// when the connection is gone and the client has left its room.
func (c *Client) Start() {
	c.hub.Join(c)
	go c.writePump()
	c.readPump()
}

// closeSend is called by the hub exactly once, when the client leaves its
// room; the write pump drains and sends the close frame.
func (c *Client) closeSend() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.userID)
			}
			return
		}

		var evt ClientEvent
		if err := json.Unmarshal(frame, &evt); err != nil {
			slog.Error("Failed to unmarshal client event", "clientID", c.id, "userID", c.userID, "error", err)
			continue
		}

		// Handled inline so the next frame is not read until this event's
		// persist and publish have completed.
		switch evt.Action {
		case ActionSendMessage:
			c.handleSendMessage(c.hub.ctx, &evt)
		case ActionMarkRead:
			c.handleMarkRead(c.hub.ctx, &evt)
		default:
			slog.Warn("Unknown client action", "clientID", c.id, "userID", c.userID, "action", evt.Action)
		}
	}
}

// handleSendMessage re-validates privacy, persists, then publishes. A
// privacy rejection is a silent drop: no row, no event, nothing surfaced to
// the sender beyond a server-side log. A persistence failure likewise never
// produces an event; every delivered chat_message corresponds to exactly
// one persisted row.
func (c *Client) handleSendMessage(ctx context.Context, evt *ClientEvent) {
	in := &service.CreateMessageInput{
		Content:     evt.Content,
		MessageType: evt.MessageType,
		FileName:    evt.FileName,
		FileType:    evt.FileType,
		FileSize:    evt.FileSize,
	}
	if evt.FileData != "" {
		data, err := base64.StdEncoding.DecodeString(evt.FileData)
		if err != nil {
			slog.Error("Invalid attachment encoding", "clientID", c.id, "userID", c.userID, "error", err)
			return
		}
		in.FileData = data
	}

	msg, err := c.messages.Create(ctx, c.userID, c.peerID, in)
	if err != nil {
		if errors.Is(err, service.ErrPrivacyViolation) {
			slog.Warn("Send blocked by privacy policy", "sender", c.userID, "receiver", c.peerID)
		} else {
			slog.Error("Failed to persist message", "sender", c.userID, "receiver", c.peerID, "error", err)
		}
		return
	}

	data, err := json.Marshal(ChatMessageEvent{Type: EventChatMessage, Message: models.NewMessagePayload(msg)})
	if err != nil {
		slog.Error("Failed to encode chat_message event", "messageID", msg.ID, "error", err)
		return
	}
	if err := c.hub.Publish(ctx, c.room, []uint{msg.SenderID, msg.ReceiverID}, data); err != nil {
		slog.Error("Failed to publish chat_message event", "messageID", msg.ID, "error", err)
	}

	// Out-of-band; a dispatch failure never undoes the persisted row.
	go func() {
		if err := c.dispatcher.MessageSent(context.Background(), msg); err != nil {
			slog.Error("Failed to enqueue message notification", "messageID", msg.ID, "error", err)
		}
	}()
}

func (c *Client) handleMarkRead(ctx context.Context, evt *ClientEvent) {
	count, err := c.messages.MarkRead(ctx, c.userID, evt.MessageIDs)
	if err != nil {
		slog.Error("Failed to mark messages read", "reader", c.userID, "error", err)
		return
	}
	slog.Debug("Marked messages read", "reader", c.userID, "requested", len(evt.MessageIDs), "updated", count)

	data, err := json.Marshal(ReadReceiptEvent{Type: EventReadReceipt, MessageIDs: evt.MessageIDs, ReaderID: c.userID})
	if err != nil {
		slog.Error("Failed to encode read_receipt event", "reader", c.userID, "error", err)
		return
	}
	if err := c.hub.Publish(ctx, c.room, nil, data); err != nil {
		slog.Error("Failed to publish read_receipt event", "reader", c.userID, "error", err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "error", err)
				return
			}
		}
	}
}

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"messaging-service/internal/notify"
	"messaging-service/internal/service"
	"messaging-service/internal/utils"
	ws "messaging-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

type WSHandler struct {
	hub        *ws.Hub
	messages   *service.MessageService
	privacy    *service.PrivacyService
	dispatcher notify.Dispatcher
}

func NewWSHandler(hub *ws.Hub, messages *service.MessageService, privacy *service.PrivacyService, dispatcher notify.Dispatcher) *WSHandler {
	return &WSHandler{hub: hub, messages: messages, privacy: privacy, dispatcher: dispatcher}
}

// HandleChat godoc
// @Summary Open the realtime chat channel to a counterpart
// @Description Upgrades to a WebSocket after the privacy policy allows the
// pair. Close code 4001 signals a privacy rejection, 4002 an invalid
// counterpart. No backlog is pushed; clients fetch history over HTTP.
// @Tags websocket
// @Param userId path int true "Counterpart user ID"
// @Param token query string true "JWT"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} map[string]interface{} "Invalid counterpart parameter"
// @Failure 401 {object} map[string]interface{} "Not authenticated"
// @Router /ws/chat/{userId} [get]
func (h *WSHandler) HandleChat(c *gin.Context) {
	userID := c.GetUint("user_id")

	peerID, err := utils.StringToUint(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counterpart user ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "userID", userID, "error", err)
		return
	}

	if peerID == userID {
		closeWith(conn, ws.CloseInvalidCounterpart, "cannot open a chat with yourself")
		return
	}

	allowed, err := h.privacy.CanMessage(c.Request.Context(), userID, peerID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			closeWith(conn, ws.CloseInvalidCounterpart, "unknown counterpart")
		} else {
			slog.Error("Privacy check failed", "userID", userID, "peerID", peerID, "error", err)
			closeWith(conn, websocket.CloseInternalServerErr, "internal error")
		}
		return
	}
	if !allowed {
		slog.Warn("WebSocket connection rejected by privacy policy", "userID", userID, "peerID", peerID)
		closeWith(conn, ws.ClosePrivacyViolation, "privacy violation: not allowed to message this user")
		return
	}

	client := ws.NewClient(h.hub, conn, userID, peerID, h.messages, h.dispatcher)
	slog.Info("Chat channel opened", "userID", userID, "peerID", peerID, "room", client.Room())
	go client.Start()
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		slog.Debug("Error writing close frame", "error", err)
	}
	if err := conn.Close(); err != nil {
		slog.Debug(fmt.Sprintf("Error closing rejected connection: %v", err))
	}
}

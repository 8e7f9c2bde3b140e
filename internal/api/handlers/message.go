package handlers

import (
	"errors"
	"net/http"

	"messaging-service/internal/models"
	"messaging-service/internal/service"
	"messaging-service/internal/utils"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messages *service.MessageService
}

func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// GetConversation godoc
// @Summary Get the conversation with another user
// @Description Returns all messages between the caller and the given user,
// ascending by time. Fetching marks the caller's unread inbound messages in
// the conversation as read.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Counterpart user ID"
// @Success 200 {object} models.ConversationResponse
// @Failure 400 {object} models.ErrorResponse "Invalid counterpart"
// @Failure 403 {object} models.ErrorResponse "Privacy violation"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Router /messages/conversation/{userId} [get]
func (h *MessageHandler) GetConversation(c *gin.Context) {
	viewerID := c.GetUint("user_id")
	otherID, err := utils.StringToUint(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid user ID",
			Details: err.Error(),
		})
		return
	}

	msgs, err := h.messages.GetConversation(c.Request.Context(), viewerID, otherID)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to get conversation"
		switch {
		case errors.Is(err, service.ErrPrivacyViolation):
			// 403, not an empty list: "no messages" and "not allowed to
			// know" must stay distinguishable.
			status = http.StatusForbidden
			message = "You are not allowed to message this user"
		case errors.Is(err, service.ErrInvalidPairing):
			status = http.StatusBadRequest
			message = "Cannot fetch a conversation with yourself"
		case errors.Is(err, service.ErrUserNotFound):
			status = http.StatusNotFound
			message = "User not found"
		}
		c.JSON(status, models.ErrorResponse{Code: status, Message: message})
		return
	}

	payloads := make([]models.MessagePayload, 0, len(msgs))
	for i := range msgs {
		payloads = append(payloads, models.NewMessagePayload(&msgs[i]))
	}
	c.JSON(http.StatusOK, models.ConversationResponse{
		Messages: payloads,
		Total:    len(payloads),
	})
}

// GetUnreadCount godoc
// @Summary Unread message counts for the caller
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UnreadCountResponse
// @Router /messages/unread/count [get]
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	userID := c.GetUint("user_id")

	counts, err := h.messages.UnreadCounts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to count unread messages",
		})
		return
	}
	c.JSON(http.StatusOK, counts)
}

package handlers

import (
	"errors"
	"net/http"

	"messaging-service/internal/models"
	"messaging-service/internal/repository"
	"messaging-service/internal/service"
	"messaging-service/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PresenceHandler struct {
	// presence is nil when no Redis is configured; the endpoint then
	// reports the capability as unavailable rather than guessing.
	presence *service.PresenceService
	users    *repository.UserRepository
}

func NewPresenceHandler(presence *service.PresenceService, users *repository.UserRepository) *PresenceHandler {
	return &PresenceHandler{presence: presence, users: users}
}

// GetPresence godoc
// @Summary Whether a user is currently connected to chat
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} models.PresenceResponse
// @Failure 400 {object} models.ErrorResponse "Invalid user ID"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 503 {object} models.ErrorResponse "Presence tracking disabled"
// @Router /users/{userId}/presence [get]
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	userID, err := utils.StringToUint(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Invalid user ID",
			Details: err.Error(),
		})
		return
	}

	if _, err := h.users.FindByID(c.Request.Context(), userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    http.StatusNotFound,
				Message: "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to look up user",
		})
		return
	}

	if h.presence == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Code:    http.StatusServiceUnavailable,
			Message: "Presence tracking is not enabled",
		})
		return
	}

	online, err := h.presence.IsUserOnline(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Failed to check presence",
		})
		return
	}
	c.JSON(http.StatusOK, models.PresenceResponse{UserID: userID, Online: online})
}

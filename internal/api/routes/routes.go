package routes

import (
	"messaging-service/internal/api/handlers"
	"messaging-service/internal/api/middleware"
	"messaging-service/internal/notify"
	"messaging-service/internal/repository"
	"messaging-service/internal/service"
	"messaging-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Router struct {
	engine          *gin.Engine
	wsHandler       *handlers.WSHandler
	messageHandler  *handlers.MessageHandler
	presenceHandler *handlers.PresenceHandler
	authMW          *middleware.AuthMiddleware
}

func NewRouter(
	hub *websocket.Hub,
	db *gorm.DB,
	dispatcher notify.Dispatcher,
	presence *service.PresenceService,
	jwtSecret string,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	privacyService := service.NewPrivacyService(userRepo)
	messageService := service.NewMessageService(messageRepo, privacyService)

	return &Router{
		engine:          engine,
		wsHandler:       handlers.NewWSHandler(hub, messageService, privacyService, dispatcher),
		messageHandler:  handlers.NewMessageHandler(messageService),
		presenceHandler: handlers.NewPresenceHandler(presence, userRepo),
		authMW:          middleware.NewAuthMiddleware(jwtSecret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Realtime channel: authenticated via query token, counterpart from
	// the route.
	r.engine.GET("/ws/chat/:userId",
		r.authMW.WSAuth(),
		r.wsHandler.HandleChat,
	)

	api := r.engine.Group("/api/v1")
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		messages := auth.Group("/messages")
		{
			messages.GET("/conversation/:userId", r.messageHandler.GetConversation)
			messages.GET("/unread/count", r.messageHandler.GetUnreadCount)
		}

		users := auth.Group("/users")
		{
			users.GET("/:userId/presence", r.presenceHandler.GetPresence)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

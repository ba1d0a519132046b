package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/habitat-apps/docchat/internal/middleware"
)

type RouterDeps struct {
	Auth            *AuthHandler
	Documents       *DocumentHandler
	Chat            *ChatHandler
	JWTSecret       []byte
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/auth/me", deps.Auth.Me)

	authGroup.POST("/documents", deps.Documents.Upload)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)

	authGroup.POST("/sessions", deps.Chat.CreateSession)
	authGroup.GET("/sessions", deps.Chat.ListSessions)
	authGroup.GET("/sessions/:id", deps.Chat.GetSession)
	authGroup.DELETE("/sessions/:id", deps.Chat.DeleteSession)
	authGroup.GET("/sessions/:id/messages", deps.Chat.ListMessages)
	authGroup.POST("/sessions/:id/messages", middleware.RateLimit(deps.RateLimitWindow), deps.Chat.SendMessage)
}

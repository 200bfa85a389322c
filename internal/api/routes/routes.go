package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/theravid/theravid/internal/api/handlers"
	"github.com/theravid/theravid/internal/api/middleware"
)

type Deps struct {
	Auth         *handlers.AuthHandler
	Record       *handlers.RecordHandler
	Chat         *handlers.ChatHandler
	Profile      *handlers.ProfileHandler
	Upload       *handlers.UploadHandler
	Conversation *handlers.ConversationHandler
	WS           *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Capture endpoints are public; a valid token only attributes the
	// recording to its account.
	capture := r.Group("/")
	capture.Use(middleware.OptionalAuth())
	capture.POST("/record", d.Record.Analyze)
	capture.POST("/chat", d.Chat.Send)
	capture.GET("/chat", d.Chat.History)

	r.POST("/api/signup", d.Auth.Signup)
	r.POST("/api/login", d.Auth.Login)

	// Protected routes (JWT)
	auth := r.Group("/api")
	auth.Use(middleware.JWTAuth())

	auth.GET("/me", d.Profile.Me)
	auth.PUT("/me", d.Profile.UpdateMe)
	auth.PUT("/preferences", d.Profile.UpdatePreferences)

	auth.POST("/upload", d.Upload.Store)
	auth.GET("/uploads", d.Upload.Mine)

	// WebSocket lives outside /api but still requires a token.
	r.GET("/ws/chat/:session_id", middleware.JWTAuth(), d.WS.ChatWS)

	// Admin
	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/uploads", d.Upload.Recent)
	admin.GET("/conversations/:session_id", d.Conversation.ListBySession)
}

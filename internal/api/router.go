// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/di"
	"github.com/deAdler-alt/ai-piraci/internal/services"
)

// SetupRouter wires the HTTP routes. Services come from the DI
// container; the router never constructs them.
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	container := di.GetContainer()

	gameService, ok := container.Get("game").(*services.GameService)
	if !ok {
		return nil, fmt.Errorf("game service not initialized")
	}

	speechService, ok := container.Get("speech").(*services.SpeechService)
	if !ok {
		return nil, fmt.Errorf("speech service not initialized")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("llm service not initialized")
	}

	ttsService, ok := container.Get("tts").(*services.TTSService)
	if !ok {
		return nil, fmt.Errorf("tts service not initialized")
	}

	handler := NewHandler(gameService, speechService, llmService, ttsService)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(corsMiddleware())

	r.GET("/health", handler.Health)

	// WebSocket play and audio streaming
	r.GET("/ws/game/:id", handler.GameWebSocket)
	r.GET("/ws/speech", handler.SpeechWebSocket)

	apiGroup := r.Group("/api")
	apiGroup.Use(DefaultRateLimit())
	{
		game := apiGroup.Group("/game")
		{
			game.POST("/start", handler.StartGame)
			game.POST("/conversation", ConversationRateLimit(), LLMTimeout(), handler.ProcessConversation)
			game.GET("/:id", handler.GetGame)
		}

		apiGroup.POST("/speech-to-text", TranscriptionRateLimit(), LLMTimeout(), handler.SpeechToText)
	}

	return r, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

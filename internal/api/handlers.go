// internal/api/handlers.go
package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deAdler-alt/ai-piraci/internal/models"
	"github.com/deAdler-alt/ai-piraci/internal/services"
)

// Handler processes API requests.
type Handler struct {
	GameService      *services.GameService
	SpeechService    *services.SpeechService
	LLMService       *services.LLMService
	WebSocketHandler *WebSocketHandler
	Response         *ResponseHelper
}

func NewHandler(
	gameService *services.GameService,
	speechService *services.SpeechService,
	llmService *services.LLMService,
	ttsService *services.TTSService,
) *Handler {
	return &Handler{
		GameService:      gameService,
		SpeechService:    speechService,
		LLMService:       llmService,
		WebSocketHandler: NewWebSocketHandler(gameService, ttsService),
		Response:         NewResponseHelper(),
	}
}

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError is the standard error shape inside the envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// StartGame creates a new game session.
// POST /api/game/start
func (h *Handler) StartGame(c *gin.Context) {
	var req models.StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyEasy
	}

	session, err := h.GameService.StartGame(req)
	if err != nil {
		h.Response.HandleAppError(c, err)
		return
	}

	h.Response.Created(c, session)
}

// ProcessConversation handles one player message.
// POST /api/game/conversation
func (h *Handler) ProcessConversation(c *gin.Context) {
	var req models.ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.GameID) == "" {
		h.Response.BadRequest(c, "game_id is required")
		return
	}

	result, err := h.GameService.ProcessConversation(c.Request.Context(), req)
	if err != nil {
		h.Response.HandleAppError(c, err)
		return
	}

	h.Response.Success(c, result)
}

// GetGame returns the state of a session. Live sessions are served from
// memory; finished ones fall back to the archive.
// GET /api/game/:id
func (h *Handler) GetGame(c *gin.Context) {
	gameID := c.Param("id")

	session, err := h.GameService.GetGame(gameID)
	if err != nil {
		session, err = h.GameService.LoadArchivedGame(gameID)
		if err != nil {
			h.Response.HandleAppError(c, err)
			return
		}
	}

	h.Response.Success(c, session)
}

const maxAudioUploadBytes = 10 << 20 // 10 MiB

// SpeechToText transcribes an uploaded audio recording.
// POST /api/speech-to-text
func (h *Handler) SpeechToText(c *gin.Context) {
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		h.Response.BadRequest(c, "audio file is required", err.Error())
		return
	}
	defer file.Close()

	if header.Size > maxAudioUploadBytes {
		h.Response.Error(c, http.StatusRequestEntityTooLarge, ErrorAudioInvalid,
			"audio file exceeds the 10 MiB limit")
		return
	}

	audioData, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes+1))
	if err != nil {
		h.Response.InternalError(c, "failed to read audio file", err.Error())
		return
	}

	format := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	if format == "" {
		format = "wav"
	}

	text, err := h.SpeechService.TranscribeAudio(c.Request.Context(), audioData, format)
	if err != nil {
		h.Response.Success(c, models.TranscriptionResult{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	h.Response.Success(c, models.TranscriptionResult{
		Success: true,
		Text:    text,
	})
}

// Health reports process and LLM gateway status.
// GET /health
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	llmState := h.LLMService.GetReadyState()
	if !h.LLMService.IsReady() {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":    "ok",
		"llm":       llmState,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GameWebSocket upgrades the connection for interactive play.
// GET /ws/game/:id
func (h *Handler) GameWebSocket(c *gin.Context) {
	h.WebSocketHandler.GameWebSocket(c)
}

// SpeechWebSocket streams synthesized audio as base64 frames.
// GET /ws/speech
func (h *Handler) SpeechWebSocket(c *gin.Context) {
	h.WebSocketHandler.SpeechWebSocket(c)
}

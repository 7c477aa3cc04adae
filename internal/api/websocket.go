// internal/api/websocket.go
package api

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/deAdler-alt/ai-piraci/internal/errors"
	"github.com/deAdler-alt/ai-piraci/internal/models"
	"github.com/deAdler-alt/ai-piraci/internal/services"
	"github.com/deAdler-alt/ai-piraci/internal/utils"
)

// WebSocketHandler runs interactive game sessions over a socket: the
// client sends player messages, the server answers with full turn
// results. One socket serves one game.
type WebSocketHandler struct {
	gameService *services.GameService
	ttsService  *services.TTSService
	upgrader    websocket.Upgrader
}

func NewWebSocketHandler(gameService *services.GameService, ttsService *services.TTSService) *WebSocketHandler {
	return &WebSocketHandler{
		gameService: gameService,
		ttsService:  ttsService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

// wsPlayerMessage is what the client sends for each turn.
type wsPlayerMessage struct {
	Message      string `json:"message"`
	IncludeAudio bool   `json:"include_audio"`
}

// wsServerEvent wraps everything the server pushes to the client.
type wsServerEvent struct {
	Type  string             `json:"type"`
	Turn  *models.TurnResult `json:"turn,omitempty"`
	Error *APIError          `json:"error,omitempty"`
}

// GameWebSocket upgrades the connection and relays turns until the game
// finishes or the client disconnects.
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	gameID := c.Param("id")

	if _, err := h.gameService.GetGame(gameID); err != nil {
		NewResponseHelper().HandleAppError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("websocket upgrade failed", map[string]interface{}{
			"game_id": gameID,
			"error":   err.Error(),
		})
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	for {
		var playerMsg wsPlayerMessage
		if err := conn.ReadJSON(&playerMsg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.GetLogger().Warn("websocket read failed", map[string]interface{}{
					"game_id": gameID,
					"error":   err.Error(),
				})
			}
			return
		}

		result, err := h.gameService.ProcessConversation(c.Request.Context(), models.ConversationRequest{
			GameID:       gameID,
			Message:      playerMsg.Message,
			IncludeAudio: playerMsg.IncludeAudio,
		})

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err != nil {
			event := wsServerEvent{
				Type:  "error",
				Error: &APIError{Code: wsErrorCode(err), Message: err.Error()},
			}
			if writeErr := conn.WriteJSON(event); writeErr != nil {
				return
			}
			// A finished game cannot continue; drop the connection.
			if errors.IsConflictError(err) {
				return
			}
			continue
		}

		if writeErr := conn.WriteJSON(wsServerEvent{Type: "turn", Turn: result}); writeErr != nil {
			return
		}

		if result.Won || result.Lost {
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game finished"))
			return
		}
	}
}

// wsSpeechRequest asks for one synthesis run.
type wsSpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// wsSpeechEvent carries one audio chunk, the end-of-stream marker or an
// error.
type wsSpeechEvent struct {
	Type  string    `json:"type"`
	Chunk string    `json:"chunk,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// SpeechWebSocket streams synthesized audio for client-supplied text as
// base64 frames. Each request on the socket runs one synthesis; the
// stream for it ends with a "done" event.
func (h *WebSocketHandler) SpeechWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("websocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	for {
		var req wsSpeechRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if strings.TrimSpace(req.Text) == "" {
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if writeErr := conn.WriteJSON(wsSpeechEvent{
				Type:  "error",
				Error: &APIError{Code: ErrorBadRequest, Message: "text is required"},
			}); writeErr != nil {
				return
			}
			continue
		}

		chunks, err := h.ttsService.StreamSpeech(c.Request.Context(), req.Text, req.Voice, 0)
		if err != nil {
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if writeErr := conn.WriteJSON(wsSpeechEvent{
				Type:  "error",
				Error: &APIError{Code: ErrorTTSUnavailable, Message: err.Error()},
			}); writeErr != nil {
				return
			}
			continue
		}

		for chunk := range chunks {
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if writeErr := conn.WriteJSON(wsSpeechEvent{
				Type:  "chunk",
				Chunk: base64.StdEncoding.EncodeToString(chunk),
			}); writeErr != nil {
				return
			}
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if writeErr := conn.WriteJSON(wsSpeechEvent{Type: "done"}); writeErr != nil {
			return
		}
	}
}

func (h *WebSocketHandler) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func wsErrorCode(err error) string {
	switch {
	case errors.IsValidationError(err):
		return ErrorBadRequest
	case errors.IsNotFoundError(err):
		return ErrorGameNotFound
	case errors.IsConflictError(err):
		return ErrorGameFinished
	default:
		return ErrorInternalError
	}
}

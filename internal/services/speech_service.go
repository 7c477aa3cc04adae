// internal/services/speech_service.go
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/errors"
)

// SpeechService transcribes player voice input. The audio travels to a
// multimodal model as a base64 data URI inside an image_url content part;
// the model reads it as audio and returns the Polish transcript.
type SpeechService struct {
	apiKey     string
	baseURL    string
	model      string
	appReferer string
	appTitle   string
	client     *http.Client
}

func NewSpeechService() *SpeechService {
	cfg := config.GetCurrentConfig()
	return &SpeechService{
		apiKey:     cfg.OpenRouterAPIKey,
		baseURL:    cfg.OpenRouterBaseURL,
		model:      cfg.TranscriptionModel,
		appReferer: cfg.AppReferer,
		appTitle:   cfg.AppTitle,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

var audioMIMETypes = map[string]string{
	"wav":  "audio/wav",
	"webm": "audio/webm",
	"mp3":  "audio/mpeg",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
}

// TranscribeAudio converts recorded audio into text. Unknown formats
// are treated as wav.
func (s *SpeechService) TranscribeAudio(ctx context.Context, audioData []byte, audioFormat string) (string, error) {
	if s.apiKey == "" {
		return "", errors.NewConfigurationError("OPENROUTER_API_KEY not set", nil)
	}
	if len(audioData) == 0 {
		return "", errors.NewValidationError("audio data is empty", nil)
	}

	mimeType, ok := audioMIMETypes[strings.ToLower(audioFormat)]
	if !ok {
		mimeType = "audio/wav"
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s",
		mimeType, base64.StdEncoding.EncodeToString(audioData))

	payload := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": "Transcribe this audio to text in Polish. Return only the transcribed text without any additional commentary.",
					},
					{
						"type":      "image_url",
						"image_url": map[string]string{"url": dataURI},
					},
				},
			},
		},
		"temperature": 0.1,
		"max_tokens":  1000,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		s.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("HTTP-Referer", s.appReferer)
	req.Header.Set("X-Title", s.appTitle)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.NewTransportError("speech-to-text request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", errors.NewTransportError(
			fmt.Sprintf("speech-to-text API error (%d): %s", resp.StatusCode, string(respBody)), nil)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewMalformedResponseError("failed to parse transcription response", err)
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", errors.NewMalformedResponseError("transcription returned no text", nil)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// internal/services/tts_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/errors"
)

// TTSService voices pirate replies through the ElevenLabs models hosted
// on Kie.ai. Synthesis is a createTask/poll cycle: the task is submitted,
// then its record is polled until the job succeeds, fails or the wait
// budget runs out. Audio is always best-effort; callers treat an error
// as "no audio", never as a failed turn.
type TTSService struct {
	apiKey       string
	baseURL      string
	model        string
	defaultVoice string
	languageCode string
	client       *http.Client
}

// Voices accepted by the ElevenLabs models. Unknown names fall back to
// the configured default instead of failing the task.
var elevenLabsVoices = map[string]struct{}{
	"Rachel": {}, "Aria": {}, "Roger": {}, "Sarah": {}, "Laura": {},
	"Charlie": {}, "George": {}, "Callum": {}, "River": {}, "Liam": {},
	"Charlotte": {}, "Alice": {}, "Matilda": {}, "Will": {}, "Jessica": {},
	"Eric": {}, "Chris": {}, "Brian": {}, "Daniel": {}, "Lily": {}, "Bill": {},
}

const ttsTextLimit = 5000

func NewTTSService() *TTSService {
	cfg := config.GetCurrentConfig()
	return &TTSService{
		apiKey:       cfg.KieAIAPIKey,
		baseURL:      "https://api.kie.ai/api/v1",
		model:        cfg.ElevenLabsModel,
		defaultVoice: cfg.ElevenLabsVoice,
		languageCode: cfg.ElevenLabsLanguageCode,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured reports whether synthesis is available.
func (s *TTSService) IsConfigured() bool {
	return s.apiKey != ""
}

type ttsTaskInput struct {
	Text            string  `json:"text"`
	Voice           string  `json:"voice"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed"`
	Timestamps      bool    `json:"timestamps"`
	LanguageCode    string  `json:"language_code"`
}

type ttsTaskRequest struct {
	Model string       `json:"model"`
	Input ttsTaskInput `json:"input"`
}

type ttsTaskData struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailMsg    string `json:"failMsg"`
}

type ttsTaskEnvelope struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data ttsTaskData `json:"data"`
}

// CreateTask submits a synthesis job and returns its task id.
func (s *TTSService) CreateTask(ctx context.Context, text, voice string) (string, error) {
	if !s.IsConfigured() {
		return "", errors.NewConfigurationError("KIE_AI_API_KEY not set", nil)
	}
	if len([]rune(text)) > ttsTextLimit {
		return "", errors.NewValidationError(
			fmt.Sprintf("text exceeds %d character limit", ttsTextLimit), nil)
	}

	if voice == "" {
		voice = s.defaultVoice
	}
	if _, ok := elevenLabsVoices[voice]; !ok {
		voice = s.defaultVoice
	}

	payload := ttsTaskRequest{
		Model: s.model,
		Input: ttsTaskInput{
			Text:            text,
			Voice:           voice,
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			Speed:           1.0,
			Timestamps:      false,
			LanguageCode:    s.languageCode,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		s.baseURL+"/jobs/createTask", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.NewTransportError("TTS task creation failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", errors.NewTransportError(
			fmt.Sprintf("TTS API error (%d): %s", resp.StatusCode, string(respBody)), nil)
	}

	var envelope ttsTaskEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", errors.NewMalformedResponseError("failed to parse TTS task response", err)
	}

	if envelope.Data.TaskID == "" {
		return "", errors.NewMalformedResponseError(
			fmt.Sprintf("TTS task creation returned no task id: %s", envelope.Msg), nil)
	}

	return envelope.Data.TaskID, nil
}

// GetTaskStatus fetches the current record for a synthesis task.
func (s *TTSService) GetTaskStatus(ctx context.Context, taskID string) (*ttsTaskData, error) {
	req, err := http.NewRequestWithContext(ctx, "GET",
		s.baseURL+"/jobs/recordInfo?taskId="+url.QueryEscape(taskID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewTransportError("TTS status request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.NewTransportError(
			fmt.Sprintf("TTS API error (%d): %s", resp.StatusCode, string(respBody)), nil)
	}

	var envelope ttsTaskEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.NewMalformedResponseError("failed to parse TTS status response", err)
	}

	return &envelope.Data, nil
}

// GenerateSpeech synthesizes text and returns a URL to the audio file.
// It polls the task until success, failure or maxWait elapses.
func (s *TTSService) GenerateSpeech(ctx context.Context, text, voice string, maxWait time.Duration) (string, error) {
	taskID, err := s.CreateTask(ctx, text, voice)
	if err != nil {
		return "", err
	}

	if maxWait <= 0 {
		maxWait = 60 * time.Second
	}

	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		data, err := s.GetTaskStatus(ctx, taskID)
		if err != nil {
			return "", err
		}

		switch data.State {
		case "success":
			var result struct {
				ResultURLs []string `json:"resultUrls"`
			}
			if err := json.Unmarshal([]byte(data.ResultJSON), &result); err != nil {
				return "", errors.NewMalformedResponseError("failed to parse TTS result", err)
			}
			if len(result.ResultURLs) == 0 {
				return "", errors.NewMalformedResponseError("TTS task succeeded without result URLs", nil)
			}
			return result.ResultURLs[0], nil
		case "failed":
			failMsg := data.FailMsg
			if failMsg == "" {
				failMsg = "unknown error"
			}
			return "", errors.NewProcessingError("TTS task failed: "+failMsg, nil)
		}
	}

	return "", errors.NewProcessingError(
		fmt.Sprintf("TTS task did not complete within %s", maxWait), nil)
}

const ttsChunkSize = 32 * 1024

// StreamSpeech synthesizes text and delivers the finished audio as a
// sequence of byte chunks. The channel closes after the last chunk; a
// failure mid-download closes it early. Wire framing is the caller's
// concern.
func (s *TTSService) StreamSpeech(ctx context.Context, text, voice string, maxWait time.Duration) (<-chan []byte, error) {
	audioURL, err := s.GenerateSpeech(ctx, text, voice, maxWait)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", audioURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewTransportError("audio download failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.NewTransportError(
			fmt.Sprintf("audio download error (%d)", resp.StatusCode), nil)
	}

	chunks := make(chan []byte)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		for {
			buf := make([]byte, ttsChunkSize)
			n, readErr := io.ReadFull(resp.Body, buf)
			if n > 0 {
				select {
				case chunks <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}
			if readErr != nil {
				return
			}
		}
	}()

	return chunks, nil
}

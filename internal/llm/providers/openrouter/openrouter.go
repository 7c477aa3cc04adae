// internal/llm/providers/openrouter/openrouter.go
package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deAdler-alt/ai-piraci/internal/llm"
)

func init() {
	llm.Register("openrouter", func() llm.Provider {
		return &Provider{
			baseURL: "https://openrouter.ai/api/v1",
		}
	})
}

// Provider talks to the OpenRouter chat completions API. One instance
// serves every model the game uses; the model is chosen per request.
type Provider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	defaultModel string
	httpReferer  string
	appName      string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return errors.New("OpenRouter API key not provided")
	}

	p.apiKey = apiKey
	p.client = &http.Client{Timeout: 120 * time.Second}

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = "openai/gpt-4o-mini"
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	if appName, exists := config["app_name"]; exists && appName != "" {
		p.appName = appName
	} else {
		p.appName = "Outwit the AI Pirate Game"
	}

	if httpReferer, exists := config["http_referer"]; exists && httpReferer != "" {
		p.httpReferer = httpReferer
	} else {
		p.httpReferer = "https://github.com/deAdler-alt/ai-piraci"
	}

	return nil
}

func (p *Provider) GetName() string {
	return "OpenRouter"
}

func (p *Provider) buildRequestBody(req llm.CompletionRequest, stream bool) ([]byte, error) {
	messages, err := llm.ValidateMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	requestBody := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	}

	if req.MaxTokens > 0 {
		requestBody["max_tokens"] = req.MaxTokens
	}

	if stream {
		requestBody["stream"] = true
	}

	return json.Marshal(requestBody)
}

func (p *Provider) newHTTPRequest(ctx context.Context, body []byte, stream bool) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		p.baseURL+"/chat/completions",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("HTTP-Referer", p.httpReferer)
	httpReq.Header.Set("X-Title", p.appName)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	return httpReq, nil
}

func (p *Provider) CompleteChat(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	jsonData, err := p.buildRequestBody(req, false)
	if err != nil {
		return nil, err
	}

	httpReq, err := p.newHTTPRequest(ctx, jsonData, false)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("OpenRouter API error (%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		ID      string `json:"id"`
		Choices []struct {
			Index   int `json:"index"`
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, errors.New("OpenRouter returned no choices")
	}

	return &llm.CompletionResponse{
		Text:         response.Choices[0].Message.Content,
		FinishReason: response.Choices[0].FinishReason,
		TokensUsed:   response.Usage.TotalTokens,
		PromptTokens: response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		ModelName:    response.Model,
		ProviderName: p.GetName(),
	}, nil
}

// StreamChat delivers the completion incrementally over a channel.
// The channel is closed after the final chunk or on context cancellation.
func (p *Provider) StreamChat(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	jsonData, err := p.buildRequestBody(req, true)
	if err != nil {
		return nil, err
	}

	httpReq, err := p.newHTTPRequest(ctx, jsonData, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		return nil, fmt.Errorf("OpenRouter API error (%d): %s", httpResp.StatusCode, string(body))
	}

	respChan := make(chan llm.StreamChunk)

	go func() {
		defer httpResp.Body.Close()
		defer close(respChan)

		reader := bufio.NewReader(httpResp.Body)
		var completionSent bool

		for {
			select {
			case <-ctx.Done():
				return
			default:
				line, err := reader.ReadString('\n')
				if err != nil {
					if err != io.EOF {
						respChan <- llm.StreamChunk{Done: true, FinishReason: "error"}
					}
					return
				}

				line = strings.TrimSpace(line)

				// SSE keep-alives arrive as blank lines or comments.
				if line == "" || strings.HasPrefix(line, ":") {
					continue
				}

				line = strings.TrimPrefix(line, "data: ")

				if line == "[DONE]" {
					if !completionSent {
						respChan <- llm.StreamChunk{FinishReason: "stop", Done: true}
					}
					return
				}

				var streamResp struct {
					Choices []struct {
						Delta struct {
							Content string `json:"content"`
						} `json:"delta"`
						FinishReason *string `json:"finish_reason"`
					} `json:"choices"`
				}

				if err := json.Unmarshal([]byte(line), &streamResp); err != nil {
					continue
				}

				if len(streamResp.Choices) > 0 {
					content := streamResp.Choices[0].Delta.Content
					if content != "" {
						respChan <- llm.StreamChunk{Text: content}
					}

					if streamResp.Choices[0].FinishReason != nil {
						respChan <- llm.StreamChunk{
							FinishReason: *streamResp.Choices[0].FinishReason,
							Done:         true,
						}
						completionSent = true
					}
				}
			}
		}
	}()

	return respChan, nil
}

// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Chat roles accepted by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrUnknownProvider = errors.New("unknown LLM provider")
	ErrEmptyMessages   = errors.New("messages list cannot be empty")
	ErrEmptyModel      = errors.New("model name cannot be empty")
)

// Message is one entry of a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the normalized request shape shared by providers.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// CompletionResponse is the normalized response shape.
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// StreamChunk is one fragment of a streaming completion.
type StreamChunk struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	Done         bool   `json:"done"`
}

// Provider is implemented by every LLM backend.
type Provider interface {
	// Initialize configures the provider from string key/value pairs.
	Initialize(config map[string]string) error

	// GetName returns the provider's display name.
	GetName() string

	// CompleteChat runs one blocking chat completion.
	CompleteChat(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// StreamChat runs one streaming chat completion.
	StreamChat(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
}

// ValidateMessages rejects empty message lists, empty content and roles
// outside the chat vocabulary. Providers call it before building a request.
func ValidateMessages(messages []Message) ([]Message, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyMessages
	}

	cleaned := make([]Message, 0, len(messages))
	for _, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		content := strings.TrimSpace(msg.Content)

		if role != RoleSystem && role != RoleUser && role != RoleAssistant {
			return nil, fmt.Errorf("invalid role %q: must be system, user or assistant", msg.Role)
		}
		if content == "" && role != RoleSystem {
			continue
		}

		cleaned = append(cleaned, Message{Role: role, Content: content})
	}

	if len(cleaned) == 0 {
		return nil, ErrEmptyMessages
	}

	return cleaned, nil
}

// Provider registry. Providers register a factory from an init function
// in their own package.
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register adds a provider factory under the given name.
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider creates and initializes the named provider.
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ListProviders returns the names of all registered providers.
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

// internal/services/fake_provider_test.go
package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deAdler-alt/ai-piraci/internal/llm"
)

func TestMain(m *testing.M) {
	// Keep config-created directories out of the package tree.
	tmp, err := os.MkdirTemp("", "ai-piraci-test")
	if err == nil {
		os.Setenv("DATA_DIR", filepath.Join(tmp, "data"))
		os.Setenv("LOG_DIR", filepath.Join(tmp, "logs"))
	}

	code := m.Run()

	if err == nil {
		os.RemoveAll(tmp)
	}
	os.Exit(code)
}

// fakeProvider scripts completions per request. Tests inject a
// CompleteFunc that inspects the request and returns canned text.
type fakeProvider struct {
	CompleteFunc func(req llm.CompletionRequest) (string, error)
	Calls        []llm.CompletionRequest
}

func (p *fakeProvider) Initialize(config map[string]string) error { return nil }

func (p *fakeProvider) GetName() string { return "Fake" }

func (p *fakeProvider) CompleteChat(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.Calls = append(p.Calls, req)
	text, err := p.CompleteFunc(req)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{
		Text:         text,
		FinishReason: "stop",
		ProviderName: p.GetName(),
	}, nil
}

func (p *fakeProvider) StreamChat(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	resp, err := p.CompleteChat(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Text: resp.Text}
	ch <- llm.StreamChunk{FinishReason: "stop", Done: true}
	close(ch)
	return ch, nil
}

// requestKind classifies a request by its system message so scripted
// providers can answer the scorer, the classifier and the pirate
// differently within one turn.
func requestKind(req llm.CompletionRequest) string {
	if len(req.Messages) == 0 || req.Messages[0].Role != llm.RoleSystem {
		return "generate"
	}
	system := req.Messages[0].Content
	switch {
	case strings.Contains(system, "wykrywaniu oszustw"):
		return "merit"
	case strings.Contains(system, "klasyfikatorem"):
		return "similarity"
	default:
		return "generate"
	}
}

// internal/services/llm_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deAdler-alt/ai-piraci/internal/errors"
	"github.com/deAdler-alt/ai-piraci/internal/llm"
)

func TestCleanJSONString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"plain object",
			`{"a": 1}`,
			`{"a": 1}`,
		},
		{
			"markdown fence",
			"```json\n{\"a\": 1}\n```",
			`{"a": 1}`,
		},
		{
			"bare fence",
			"```\n{\"a\": 1}\n```",
			`{"a": 1}`,
		},
		{
			"preamble before object",
			`Oto wynik analizy: {"a": 1}`,
			`{"a": 1}`,
		},
		{
			"trailing commentary",
			`{"a": 1} Mam nadzieję, że to pomoże!`,
			`{"a": 1}`,
		},
		{
			"nested braces stop at balance",
			`{"a": {"b": 2}} {"c": 3}`,
			`{"a": {"b": 2}}`,
		},
		{
			"braces inside strings ignored",
			`{"a": "zawiera } nawias"} reszta`,
			`{"a": "zawiera } nawias"}`,
		},
		{
			"array payload",
			`wynik: [1, 2, 3] koniec`,
			`[1, 2, 3]`,
		},
		{
			"full-width colon and comma",
			`{"a"：1，"b"：2}`,
			`{"a":1,"b":2}`,
		},
		{
			"curly quotes",
			`{“a”: “tekst”}`,
			`{"a": "tekst"}`,
		},
		{
			"zero-width characters",
			"{\"a\":​ 1}",
			`{"a": 1}`,
		},
		{
			"byte order mark",
			"\ufeff{\"a\": 1}",
			`{"a": 1}`,
		},
		{
			"unterminated object falls back to last brace",
			`{"a": 1, "b": {"c": 2}`,
			`{"a": 1, "b": {"c": 2}`,
		},
		{
			"no json at all",
			"przepraszam, nie mogę pomóc",
			"przepraszam, nie mogę pomóc",
		},
		{
			"empty",
			"",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSONString(tt.input))
		})
	}
}

func TestCleanLLMJSONResponseExported(t *testing.T) {
	got := CleanLLMJSONResponse("```json\n{\"x\": true}\n```")
	assert.Equal(t, `{"x": true}`, got)
}

func TestCreateChatCompletion(t *testing.T) {
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			return "Arr, witaj na pokładzie!", nil
		},
	}
	svc := NewLLMServiceWithProvider(provider)

	text, err := svc.CreateChatCompletion(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Witaj"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Arr, witaj na pokładzie!", text)
}

func TestCreateChatCompletionNeverCaches(t *testing.T) {
	calls := 0
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			calls++
			return fmt.Sprintf("odpowiedź %d", calls), nil
		},
	}
	svc := NewLLMServiceWithProvider(provider)

	req := llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "To samo pytanie"}},
	}

	first, err := svc.CreateChatCompletion(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.CreateChatCompletion(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, calls)
}

func TestCreateChatCompletionProviderFailure(t *testing.T) {
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			return "", fmt.Errorf("connection refused")
		},
	}
	svc := NewLLMServiceWithProvider(provider)

	_, err := svc.CreateChatCompletion(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Witaj"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsTransportError(err))
}

func TestCreateStructuredCompletion(t *testing.T) {
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			return "```json\n{\"score\": 42}\n```", nil
		},
	}
	svc := NewLLMServiceWithProvider(provider)

	var out struct {
		Score int `json:"score"`
	}
	err := svc.CreateStructuredCompletion(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Oceń"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Score)
}

func TestCreateStructuredCompletionCachesByRequest(t *testing.T) {
	calls := 0
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			calls++
			return `{"score": 7}`, nil
		},
	}
	svc := NewLLMServiceWithProvider(provider)

	req := llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Oceń tę rozmowę"}},
	}

	var out struct {
		Score int `json:"score"`
	}
	require.NoError(t, svc.CreateStructuredCompletion(context.Background(), req, &out))
	require.NoError(t, svc.CreateStructuredCompletion(context.Background(), req, &out))
	assert.Equal(t, 1, calls)

	// A different conversation misses the cache.
	other := llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Oceń inną rozmowę"}},
	}
	require.NoError(t, svc.CreateStructuredCompletion(context.Background(), other, &out))
	assert.Equal(t, 2, calls)
}

func TestCreateStructuredCompletionMalformedResponse(t *testing.T) {
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			return "to nie jest JSON", nil
		},
	}
	svc := NewLLMServiceWithProvider(provider)

	var out map[string]int
	err := svc.CreateStructuredCompletion(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Oceń"}},
	}, &out)
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeMalformed, appErr.Type)
}

func TestCreateStructuredCompletionDefaultsTemperature(t *testing.T) {
	var captured llm.CompletionRequest
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			captured = req
			return `{"x": 1}`, nil
		},
	}
	svc := NewLLMServiceWithProvider(provider)

	var out map[string]int
	require.NoError(t, svc.CreateStructuredCompletion(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Oceń"}},
	}, &out))

	assert.InDelta(t, 0.3, captured.Temperature, 0.001)
}

func TestLLMServiceNotReady(t *testing.T) {
	svc := createBaseLLMService()

	assert.False(t, svc.IsReady())

	_, err := svc.CreateChatCompletion(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Witaj"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))

	err = svc.CreateStructuredCompletion(context.Background(), llm.CompletionRequest{}, &struct{}{})
	assert.True(t, errors.IsConfigurationError(err))
}

func TestGenerateCacheKeyDistinguishesRequests(t *testing.T) {
	svc := NewLLMServiceWithProvider(&fakeProvider{})

	base := llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "a"}},
		Model:       "m",
		Temperature: 0.3,
		MaxTokens:   100,
	}

	differentContent := base
	differentContent.Messages = []llm.Message{{Role: llm.RoleUser, Content: "b"}}

	differentModel := base
	differentModel.Model = "m2"

	key := svc.generateCacheKey(base)
	assert.Equal(t, key, svc.generateCacheKey(base))
	assert.NotEqual(t, key, svc.generateCacheKey(differentContent))
	assert.NotEqual(t, key, svc.generateCacheKey(differentModel))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "krótki", truncateText("krótki", 10))
	assert.Equal(t, "długi...", truncateText("długi tekst do przycięcia", 5))
}

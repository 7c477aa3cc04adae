// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/errors"
	"github.com/deAdler-alt/ai-piraci/internal/llm"
	"github.com/deAdler-alt/ai-piraci/internal/utils"
)

// LLMService is the single gateway every game component uses to call a
// language model. It wraps the active provider with readiness tracking,
// a short-lived response cache and tolerant JSON extraction for the
// structured analysis calls.
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	cache         *llmCache
	isReady       bool
	readyState    string
}

type llmCache struct {
	cache      map[string]*cacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type cacheEntry struct {
	response  string
	createdAt time.Time
}

// NewLLMService builds the service from the process configuration. A
// missing API key yields a standby service instead of an error, so the
// server can start and report the problem on first use.
func NewLLMService() (*LLMService, error) {
	service := createBaseLLMService()

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "failed to retrieve configuration"
		return service, nil
	}

	if cfg.OpenRouterAPIKey == "" {
		service.readyState = "API key not configured"
		return service, nil
	}

	provider, err := llm.GetProvider("openrouter", map[string]string{
		"api_key":      cfg.OpenRouterAPIKey,
		"base_url":     cfg.OpenRouterBaseURL,
		"http_referer": cfg.AppReferer,
		"app_name":     cfg.AppTitle,
	})
	if err != nil {
		service.readyState = fmt.Sprintf("initialization failed: %v", err)
		return service, nil
	}

	service.provider = provider
	service.providerName = "openrouter"
	service.isReady = true
	service.readyState = "ready"

	return service, nil
}

// NewLLMServiceWithProvider wires an already-initialized provider.
// Tests use it to substitute a scripted provider.
func NewLLMServiceWithProvider(provider llm.Provider) *LLMService {
	service := createBaseLLMService()
	service.provider = provider
	service.providerName = strings.ToLower(provider.GetName())
	service.isReady = true
	service.readyState = "ready"
	return service
}

func createBaseLLMService() *LLMService {
	return &LLMService{
		readyState: "uninitialized",
		cache: &llmCache{
			cache:      make(map[string]*cacheEntry),
			expiration: 30 * time.Minute,
		},
	}
}

// IsReady reports whether the service has a working provider.
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetReadyState returns a human-readable readiness description.
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderName returns the active provider's registry name.
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

func (s *LLMService) activeProvider() (llm.Provider, error) {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider == nil || !s.isReady {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("LLM service not ready: %s", s.readyState), nil)
	}
	return s.provider, nil
}

func (s *LLMService) generateCacheKey(req llm.CompletionRequest) string {
	var b strings.Builder
	for _, msg := range req.Messages {
		b.WriteString(msg.Role)
		b.WriteString(":::")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	hashInput := fmt.Sprintf("%s:::%s:::%.2f:::%d:::%s",
		b.String(), req.Model, req.Temperature, req.MaxTokens, s.GetProviderName())
	h := md5.New()
	h.Write([]byte(hashInput))
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (c *llmCache) get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists {
		return "", false
	}
	if time.Since(entry.createdAt) > c.expiration {
		return "", false
	}
	return entry.response, true
}

func (c *llmCache) save(key, response string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &cacheEntry{response: response, createdAt: time.Now()}

	if len(c.cache) > 1000 {
		c.cleanupOldest(100)
	}
}

func (c *llmCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.createdAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	maxToDelete := min(count, len(entries))
	for i := 0; i < maxToDelete; i++ {
		delete(c.cache, entries[i].key)
	}
}

// CreateChatCompletion runs one chat completion and returns the model's
// text. Conversation generation must never replay a cached reply, so
// this path does not consult the cache.
func (s *LLMService) CreateChatCompletion(ctx context.Context, req llm.CompletionRequest) (string, error) {
	provider, err := s.activeProvider()
	if err != nil {
		return "", err
	}

	resp, err := provider.CompleteChat(ctx, req)
	if err != nil {
		return "", errors.NewTransportError("chat completion failed", err)
	}

	return resp.Text, nil
}

// CreateStructuredCompletion asks the model for JSON matching outputSchema
// and unmarshals it after tolerant cleanup. Analysis calls run at a low
// temperature and their results are cached by request hash.
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, req llm.CompletionRequest, outputSchema interface{}) error {
	provider, err := s.activeProvider()
	if err != nil {
		return err
	}

	if req.Temperature == 0 {
		req.Temperature = 0.3
	}

	cacheKey := s.generateCacheKey(req)
	if cached, ok := s.cache.get(cacheKey); ok {
		if err := json.Unmarshal([]byte(cached), outputSchema); err == nil {
			utils.GetLogger().Debug("LLM structured cache hit",
				map[string]interface{}{"cache_key_prefix": cacheKey[:8]})
			return nil
		}
	}

	resp, err := provider.CompleteChat(ctx, req)
	if err != nil {
		return errors.NewTransportError("structured completion failed", err)
	}

	text := cleanJSONString(resp.Text)

	if err := json.Unmarshal([]byte(text), outputSchema); err != nil {
		return errors.NewMalformedResponseError(
			fmt.Sprintf("failed to parse model response as JSON: raw: %s",
				truncateText(resp.Text, 200)), err)
	}

	s.cache.save(cacheKey, text)
	return nil
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// Tolerant JSON extraction. Models wrap their JSON in fences, preambles
// and the occasional full-width punctuation; the cleaner strips all of
// that down to the first balanced object or array.
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

var structuralPunctuationMap = map[rune]rune{
	'：': ':',
	'，': ',',
	'；': ';',
	'【': '[',
	'】': ']',
	'｛': '{',
	'｝': '}',
	'（': '(',
	'）': ')',
}

var quotePairs = map[rune]rune{
	'"': '"',
	'“': '”',
	'„': '”',
	'”': '”',
}

func normalizeJSONStructure(s string) string {
	if s == "" {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))
	inString := false
	escaped := false
	currentClosing := '"'

	for _, r := range s {
		if inString {
			if !escaped && r == '\\' {
				escaped = true
				builder.WriteRune(r)
				continue
			}
			if escaped {
				escaped = false
				builder.WriteRune(r)
				continue
			}
			if r == currentClosing || r == '"' {
				inString = false
				currentClosing = '"'
				builder.WriteRune('"')
				continue
			}
			builder.WriteRune(r)
			continue
		}

		if replacement, ok := structuralPunctuationMap[r]; ok {
			r = replacement
		} else if closing, ok := quotePairs[r]; ok {
			inString = true
			currentClosing = closing
			builder.WriteRune('"')
			continue
		} else if r == '"' {
			inString = true
			currentClosing = '"'
			builder.WriteRune(r)
			continue
		}

		builder.WriteRune(r)
	}

	return builder.String()
}

func cleanJSONString(s string) string {
	if s == "" {
		return s
	}

	s = jsonNoiseReplacer.Replace(s)
	s = strings.TrimSpace(s)

	// Drop zero-width characters and control characters other than
	// newlines and tabs.
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	// Everything before the first { or [ is preamble.
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}

	s = strings.TrimSpace(s[start:])
	if s == "" {
		return s
	}

	s = normalizeJSONStructure(s)

	isArray := len(s) > 0 && s[0] == '['

	// Balanced bracket scan, string-aware.
	balance := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if isArray {
				if char == '[' {
					balance++
				} else if char == ']' {
					balance--
				}
			} else {
				if char == '{' {
					balance++
				} else if char == '}' {
					balance--
				}
			}

			if balance == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	// No balanced close found; fall back to the last closing bracket.
	end := -1
	if isArray {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}

	if end != -1 {
		return strings.TrimSpace(s[:end+1])
	}

	return strings.TrimSpace(s)
}

// CleanLLMJSONResponse exposes the JSON cleaner for callers outside the
// structured completion path.
func CleanLLMJSONResponse(raw string) string {
	return cleanJSONString(raw)
}

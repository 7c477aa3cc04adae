// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
)

// WinPhrase is the single literal sentence that ends the game when the
// pirate utters it under a high enough deception score. It is blocked
// in every other circumstance.
const WinPhrase = "Oto mój skarb, weź go"

// PrimaryLanguage is the language of the game's prompts and responses.
const PrimaryLanguage = "pl"

// AppConfig holds all process configuration.
type AppConfig struct {
	Port      string
	DataDir   string
	LogDir    string
	DebugMode bool

	// OpenRouter (LLM gateway)
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	AppReferer        string
	AppTitle          string

	// ElevenLabs TTS via Kie.ai
	KieAIAPIKey            string
	ElevenLabsModel        string
	ElevenLabsVoice        string
	ElevenLabsLanguageCode string

	// Analysis models (deception scoring, similarity classification, STT)
	EvaluationModel    string
	TranscriptionModel string
}

// Load reads configuration from the environment. A missing OpenRouter key
// is not fatal here: the LLM service starts in standby mode and the error
// surfaces on the first call instead of crashing the process.
func Load() (*AppConfig, error) {
	godotenv.Load()

	cfg := &AppConfig{
		Port:      getEnv("PORT", "8080"),
		DataDir:   getEnvPath("DATA_DIR", "data"),
		LogDir:    getEnvPath("LOG_DIR", "logs"),
		DebugMode: getEnvBool("DEBUG_MODE", true),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		AppReferer:        getEnv("APP_REFERER", "https://github.com/deAdler-alt/ai-piraci"),
		AppTitle:          getEnv("APP_TITLE", "Outwit the AI Pirate Game"),

		KieAIAPIKey:            getEnv("KIE_AI_API_KEY", ""),
		ElevenLabsModel:        getEnv("ELEVENLABS_MODEL", "elevenlabs/text-to-speech-turbo-2-5"),
		ElevenLabsVoice:        getEnv("ELEVENLABS_VOICE", "Rachel"),
		ElevenLabsLanguageCode: getEnv("ELEVENLABS_LANGUAGE_CODE", PrimaryLanguage),

		EvaluationModel:    getEnv("EVALUATION_MODEL", "anthropic/claude-sonnet-4.5"),
		TranscriptionModel: getEnv("TRANSCRIPTION_MODEL", "google/gemini-2.0-flash-lite-001"),
	}

	if cfg.OpenRouterAPIKey == "" {
		log.Println("warning: OPENROUTER_API_KEY not set, LLM features will be unavailable until configured")
	}
	if cfg.KieAIAPIKey == "" {
		log.Println("warning: KIE_AI_API_KEY not set, audio synthesis is disabled")
	}

	return cfg, nil
}

// Init loads the configuration and installs it as the process-wide instance.
func Init() (*AppConfig, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	configMutex.Lock()
	defer configMutex.Unlock()
	currentConfig = cfg
	return cfg, nil
}

// GetCurrentConfig returns a copy of the current configuration.
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		cfg, _ := Load()
		return cfg
	}

	cfgCopy := *currentConfig
	return &cfgCopy
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

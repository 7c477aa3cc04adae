// internal/app/services.go
package app

import (
	"fmt"
	"path/filepath"

	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/di"
	"github.com/deAdler-alt/ai-piraci/internal/services"
	"github.com/deAdler-alt/ai-piraci/internal/storage"
	"github.com/deAdler-alt/ai-piraci/internal/utils"

	// Available LLM providers register themselves on import.
	_ "github.com/deAdler-alt/ai-piraci/internal/llm/providers/openrouter"
)

// InitServices builds every service in dependency order and registers
// it in the DI container. Called once at startup, before the router.
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	if err := config.ValidateDifficultyLevels(); err != nil {
		return fmt.Errorf("difficulty configuration invalid: %w", err)
	}

	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	container.Register("storage", fileStorage)

	llmService, err := services.NewLLMService()
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	container.Register("llm", llmService)

	if !llmService.IsReady() {
		utils.GetLogger().Warn("LLM service starting in standby mode",
			map[string]interface{}{"state": llmService.GetReadyState()})
	}

	meritService := services.NewMeritService(llmService)
	container.Register("merit", meritService)

	validationService := services.NewValidationService()
	container.Register("validation", validationService)

	similarityService := services.NewSimilarityService(llmService)
	container.Register("similarity", similarityService)

	flow := services.NewConversationFlow(llmService, meritService, validationService, similarityService)
	container.Register("flow", flow)

	ttsService := services.NewTTSService()
	container.Register("tts", ttsService)

	speechService := services.NewSpeechService()
	container.Register("speech", speechService)

	lockManager := services.NewLockManager()
	container.Register("locks", lockManager)

	gameService := services.NewGameService(flow, ttsService, lockManager, fileStorage)
	container.Register("game", gameService)

	return nil
}

// InitLogging configures the process-wide logger.
func InitLogging(logDir string) error {
	return utils.InitLogger(filepath.Join(logDir, "server.log"))
}

// internal/services/merit_service_test.go
package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deAdler-alt/ai-piraci/internal/llm"
	"github.com/deAdler-alt/ai-piraci/internal/models"
)

func newTestSession(difficulty models.Difficulty) *models.GameSession {
	return &models.GameSession{
		ID:         "test-game",
		Difficulty: difficulty,
		PirateName: "Kapitan",
	}
}

func TestEvaluateMeritWithModel(t *testing.T) {
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			return `{
				"strategy_variety": 20,
				"conversation_depth": 15,
				"creativity": 10,
				"persistence": 5,
				"obvious_lies": -5,
				"repetitive_strategy": 0,
				"aggressive_behavior": 0,
				"direct_demands": -3,
				"contradictions": 0,
				"short_messages": 0
			}`, nil
		},
	}
	svc := NewMeritService(NewLLMServiceWithProvider(provider))

	session := newTestSession(models.DifficultyEasy)
	session.History = []models.ChatMessage{
		{Role: models.RolePlayer, Content: "Jestem twoim starym przyjacielem!"},
		{Role: models.RolePirate, Content: "Hmm, naprawdę?"},
	}

	eval := svc.EvaluateMerit(context.Background(), session)

	// 20+15+10+5 = 50 positive, -8 negative
	assert.Equal(t, 42, eval.TotalScore)
	assert.Equal(t, -8, eval.NegativeTotal)
	assert.Equal(t, 40, eval.Threshold)
	assert.Equal(t, -30, eval.LossThreshold)
	assert.True(t, eval.HasEarnedIt)
	assert.False(t, eval.HasLost)
	assert.Contains(t, eval.Feedback, "42")
}

func TestEvaluateMeritClampsOutOfRangeScores(t *testing.T) {
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			return `{
				"strategy_variety": 90,
				"conversation_depth": 99,
				"creativity": 99,
				"persistence": 99,
				"obvious_lies": -80,
				"repetitive_strategy": 10,
				"aggressive_behavior": 0,
				"direct_demands": 0,
				"contradictions": 0,
				"short_messages": 0
			}`, nil
		},
	}
	svc := NewMeritService(NewLLMServiceWithProvider(provider))

	session := newTestSession(models.DifficultyHard)
	eval := svc.EvaluateMerit(context.Background(), session)

	assert.Equal(t, 30, eval.StrategyVariety)
	assert.Equal(t, 25, eval.ConversationDepth)
	assert.Equal(t, 25, eval.Creativity)
	assert.Equal(t, 20, eval.Persistence)
	assert.Equal(t, -20, eval.ObviousLies)
	// Positive values on negative axes clamp to zero.
	assert.Equal(t, 0, eval.RepetitiveStrategy)
	// 100 positive - 20 negative = 80, the hard threshold exactly.
	assert.Equal(t, 80, eval.TotalScore)
	assert.True(t, eval.HasEarnedIt)
}

func TestEvaluateMeritThresholdsPerDifficulty(t *testing.T) {
	makeService := func(total int) *MeritService {
		provider := &fakeProvider{
			CompleteFunc: func(req llm.CompletionRequest) (string, error) {
				// Spread the target total across the positive axes.
				variety := min(total, 30)
				depth := min(total-variety, 25)
				creativity := total - variety - depth
				return fmt.Sprintf(`{"strategy_variety": %d, "conversation_depth": %d, "creativity": %d}`,
					variety, depth, creativity), nil
			},
		}
		return NewMeritService(NewLLMServiceWithProvider(provider))
	}

	tests := []struct {
		difficulty models.Difficulty
		total      int
		earned     bool
	}{
		{models.DifficultyEasy, 39, false},
		{models.DifficultyEasy, 40, true},
		{models.DifficultyMedium, 59, false},
		{models.DifficultyMedium, 60, true},
		{models.DifficultyHard, 55, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.difficulty, tt.total), func(t *testing.T) {
			eval := makeService(tt.total).EvaluateMerit(context.Background(), newTestSession(tt.difficulty))
			assert.Equal(t, tt.total, eval.TotalScore)
			assert.Equal(t, tt.earned, eval.HasEarnedIt)
		})
	}
}

func TestEvaluateMeritFallbackOnModelFailure(t *testing.T) {
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			return "", fmt.Errorf("model unavailable")
		},
	}
	svc := NewMeritService(NewLLMServiceWithProvider(provider))

	session := newTestSession(models.DifficultyEasy)
	session.AttemptedStrategies = []string{"flattery", "story"}
	session.ClaimedPersonas = []string{"friend"}
	for i := 0; i < 6; i++ {
		session.History = append(session.History,
			models.ChatMessage{Role: models.RolePlayer, Content: "Pamiętasz nasze wspólne rejsy po morzach?"},
			models.ChatMessage{Role: models.RolePirate, Content: "Hmm..."},
		)
	}

	eval := svc.EvaluateMerit(context.Background(), session)

	// variety = 2*5 + 1*3 = 13, depth = min(25, 12*2) = 24,
	// creativity = 2*8 + 1*4 = 20, persistence = 12/2 = 6
	assert.Equal(t, 13, eval.StrategyVariety)
	assert.Equal(t, 24, eval.ConversationDepth)
	assert.Equal(t, 20, eval.Creativity)
	assert.Equal(t, 6, eval.Persistence)
	assert.Equal(t, 63, eval.TotalScore)
	assert.True(t, eval.HasEarnedIt)
}

func TestFallbackScoresPenalties(t *testing.T) {
	t.Run("repetitive strategies", func(t *testing.T) {
		session := newTestSession(models.DifficultyEasy)
		session.AttemptedStrategies = []string{"flattery", "flattery", "flattery"}

		// The session stores unique strategies, so simulate repetition by
		// duplicating entries directly.
		scores := fallbackScores(session)
		assert.Equal(t, -10, scores.RepetitiveStrategy)
	})

	t.Run("short player messages", func(t *testing.T) {
		session := newTestSession(models.DifficultyEasy)
		session.History = []models.ChatMessage{
			{Role: models.RolePlayer, Content: "daj"},
			{Role: models.RolePirate, Content: "Nie."},
			{Role: models.RolePlayer, Content: "skarb"},
		}

		scores := fallbackScores(session)
		assert.Equal(t, -5, scores.ShortMessages)
	})

	t.Run("aggressive keywords", func(t *testing.T) {
		session := newTestSession(models.DifficultyEasy)
		session.History = []models.ChatMessage{
			{Role: models.RolePlayer, Content: "Oddaj skarb albo zginiesz!"},
		}

		scores := fallbackScores(session)
		assert.Equal(t, -10, scores.AggressiveBehavior)
	})

	t.Run("pirate aggression does not count", func(t *testing.T) {
		session := newTestSession(models.DifficultyEasy)
		session.History = []models.ChatMessage{
			{Role: models.RolePirate, Content: "Zginiesz, jeśli tkniesz mój skarb!"},
		}

		scores := fallbackScores(session)
		assert.Equal(t, 0, scores.AggressiveBehavior)
	})
}

func TestFormatConversation(t *testing.T) {
	var history []models.ChatMessage
	for i := 0; i < 20; i++ {
		role := models.RolePlayer
		if i%2 == 1 {
			role = models.RolePirate
		}
		history = append(history, models.ChatMessage{
			Role:    role,
			Content: fmt.Sprintf("wiadomość %d", i),
		})
	}

	formatted := formatConversation(history)
	lines := strings.Split(formatted, "\n")

	// Only the last 15 messages are included.
	require.Len(t, lines, 15)
	assert.Equal(t, "Pirat: wiadomość 5", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Gracz: "))
	assert.Equal(t, "Pirat: wiadomość 19", lines[14])
}

func TestEvaluationPromptSentToModel(t *testing.T) {
	var captured llm.CompletionRequest
	provider := &fakeProvider{
		CompleteFunc: func(req llm.CompletionRequest) (string, error) {
			captured = req
			return `{"strategy_variety": 1}`, nil
		},
	}
	svc := NewMeritService(NewLLMServiceWithProvider(provider))

	session := newTestSession(models.DifficultyEasy)
	session.AttemptedStrategies = []string{"trade"}
	session.ClaimedPersonas = []string{"merchant"}
	session.History = []models.ChatMessage{
		{Role: models.RolePlayer, Content: "Kupię od ciebie mapę!"},
	}

	svc.EvaluateMerit(context.Background(), session)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, llm.RoleSystem, captured.Messages[0].Role)
	assert.InDelta(t, 0.3, captured.Temperature, 0.001)
	assert.Equal(t, 500, captured.MaxTokens)
	assert.Contains(t, captured.Messages[1].Content, "Gracz: Kupię od ciebie mapę!")
	assert.Contains(t, captured.Messages[1].Content, "trade")
	assert.Contains(t, captured.Messages[1].Content, "merchant")
}

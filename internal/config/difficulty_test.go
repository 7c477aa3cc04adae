// internal/config/difficulty_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deAdler-alt/ai-piraci/internal/models"
)

func TestForDifficulty(t *testing.T) {
	easy := ForDifficulty(models.DifficultyEasy)
	assert.Equal(t, 40, easy.MeritThreshold)
	assert.Equal(t, "openai/gpt-3.5-turbo", easy.Model)

	medium := ForDifficulty(models.DifficultyMedium)
	assert.Equal(t, 60, medium.MeritThreshold)

	hard := ForDifficulty(models.DifficultyHard)
	assert.Equal(t, 80, hard.MeritThreshold)
	assert.Equal(t, "openai/gpt-4-turbo", hard.Model)
}

func TestForDifficultyUnknownFallsBackToEasy(t *testing.T) {
	settings := ForDifficulty("nightmare")
	assert.Equal(t, ForDifficulty(models.DifficultyEasy), settings)
}

func TestDifficultyThresholdsAscend(t *testing.T) {
	easy := ForDifficulty(models.DifficultyEasy)
	medium := ForDifficulty(models.DifficultyMedium)
	hard := ForDifficulty(models.DifficultyHard)

	assert.Less(t, easy.MeritThreshold, medium.MeritThreshold)
	assert.Less(t, medium.MeritThreshold, hard.MeritThreshold)
}

func TestLossThresholdShared(t *testing.T) {
	for _, d := range []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		assert.Equal(t, LossThresholdDefault, ForDifficulty(d).LossThreshold)
	}
}

func TestValidateDifficultyLevels(t *testing.T) {
	require.NoError(t, ValidateDifficultyLevels())
}

func TestDifficultyPromptsComplete(t *testing.T) {
	for _, d := range []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		settings := ForDifficulty(d)
		assert.NotEmpty(t, settings.SystemPromptBase, d)
		assert.NotEmpty(t, settings.MeritHighPrompt, d)
		assert.NotEmpty(t, settings.MeritLowPrompt, d)
		// The persona template takes the pirate's name.
		assert.Contains(t, settings.SystemPromptBase, "%s")
	}
}

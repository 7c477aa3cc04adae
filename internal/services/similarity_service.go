// internal/services/similarity_service.go
package services

import (
	"context"
	"fmt"

	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/llm"
	"github.com/deAdler-alt/ai-piraci/internal/models"
	"github.com/deAdler-alt/ai-piraci/internal/utils"
)

// SimilarityService asks a model whether a pirate reply means the same
// thing as the treasure-giving sentence without using its exact words.
// It is the last resort of the win gate, consulted only when neither the
// exact phrase nor an agreement pattern matched. The classifier fails
// closed: any error or low confidence means "not similar", so a broken
// model can never hand out a win.
type SimilarityService struct {
	llmService *LLMService
	model      string
}

// ConfidenceThreshold is the minimum classifier confidence required to
// treat a reply as equivalent to the win phrase.
const ConfidenceThreshold = 0.7

func NewSimilarityService(llmService *LLMService) *SimilarityService {
	cfg := config.GetCurrentConfig()
	return &SimilarityService{
		llmService: llmService,
		model:      cfg.EvaluationModel,
	}
}

// IsSimilar classifies response against the win phrase and returns the
// verdict with the classifier's confidence.
func (s *SimilarityService) IsSimilar(ctx context.Context, response string) models.SimilarityVerdict {
	if response == "" {
		return models.SimilarityVerdict{}
	}

	prompt := fmt.Sprintf(`Porównaj znaczenie poniższej wypowiedzi pirata ze zdaniem wzorcowym.

Zdanie wzorcowe: "%s"

Wypowiedź pirata: "%s"

Czy wypowiedź pirata znaczy to samo co zdanie wzorcowe, czyli że pirat oddaje graczowi swój skarb? Oceń wyłącznie znaczenie, nie dosłowne brzmienie.

Zwróć TYLKO poprawny JSON w formacie:
{
    "similar": <true lub false>,
    "confidence": <liczba 0.0-1.0>,
    "rationale": "<krótkie uzasadnienie>"
}`, config.WinPhrase, response)

	req := llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Jesteś klasyfikatorem semantycznego podobieństwa zdań. Odpowiadasz TYLKO w formacie JSON."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   300,
	}

	var verdict models.SimilarityVerdict
	if err := s.llmService.CreateStructuredCompletion(ctx, req, &verdict); err != nil {
		utils.GetLogger().Warn("similarity classification failed, treating as not similar",
			map[string]interface{}{"error": err.Error()})
		return models.SimilarityVerdict{}
	}

	if verdict.Confidence < ConfidenceThreshold {
		verdict.Similar = false
	}

	return verdict
}

// internal/services/merit_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/llm"
	"github.com/deAdler-alt/ai-piraci/internal/models"
	"github.com/deAdler-alt/ai-piraci/internal/utils"
)

// MeritService scores how well the player is deceiving the pirate. The
// score is recomputed each turn from the full recent conversation, so a
// turn can lower it as well as raise it. When the model call fails the
// service falls back to conversation heuristics instead of surfacing an
// error; a scoring failure must never kill the turn.
type MeritService struct {
	llmService *LLMService
	model      string
}

func NewMeritService(llmService *LLMService) *MeritService {
	cfg := config.GetCurrentConfig()
	return &MeritService{
		llmService: llmService,
		model:      cfg.EvaluationModel,
	}
}

// Subscore bounds. Positive axes reward varied, elaborate deception;
// negative axes punish transparent or lazy play.
const (
	maxStrategyVariety   = 30
	maxConversationDepth = 25
	maxCreativity        = 25
	maxPersistence       = 20

	minObviousLies        = -20
	minRepetitiveStrategy = -15
	minAggressiveBehavior = -15
	minDirectDemands      = -10
	minContradictions     = -15
	minShortMessages      = -10
)

// rawScores is the shape the evaluation model is asked to return.
type rawScores struct {
	StrategyVariety    int `json:"strategy_variety"`
	ConversationDepth  int `json:"conversation_depth"`
	Creativity         int `json:"creativity"`
	Persistence        int `json:"persistence"`
	ObviousLies        int `json:"obvious_lies"`
	RepetitiveStrategy int `json:"repetitive_strategy"`
	AggressiveBehavior int `json:"aggressive_behavior"`
	DirectDemands      int `json:"direct_demands"`
	Contradictions     int `json:"contradictions"`
	ShortMessages      int `json:"short_messages"`
}

// EvaluateMerit scores the session's conversation and returns the full
// per-axis breakdown together with the threshold verdicts.
func (s *MeritService) EvaluateMerit(ctx context.Context, session *models.GameSession) *models.MeritEvaluation {
	scores, err := s.evaluateWithModel(ctx, session)
	if err != nil {
		utils.GetLogger().Warn("merit evaluation via model failed, using heuristic fallback",
			map[string]interface{}{"game_id": session.ID, "error": err.Error()})
		scores = fallbackScores(session)
	}

	clampScores(scores)

	settings := config.ForDifficulty(session.Difficulty)
	return buildEvaluation(scores, settings)
}

func (s *MeritService) evaluateWithModel(ctx context.Context, session *models.GameSession) (*rawScores, error) {
	prompt := buildEvaluationPrompt(
		formatConversation(session.History),
		session.AttemptedStrategies,
		session.ClaimedPersonas,
	)

	req := llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Jesteś ekspertem w analizie konwersacji i wykrywaniu oszustw, manipulacji i wprowadzania w błąd. Odpowiadasz TYLKO w formacie JSON."},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	}

	var scores rawScores
	if err := s.llmService.CreateStructuredCompletion(ctx, req, &scores); err != nil {
		return nil, err
	}
	return &scores, nil
}

// formatConversation renders the last 15 messages the way the scorer
// expects to read them.
func formatConversation(history []models.ChatMessage) string {
	start := 0
	if len(history) > 15 {
		start = len(history) - 15
	}

	var lines []string
	for _, msg := range history[start:] {
		switch msg.Role {
		case models.RolePlayer:
			lines = append(lines, "Gracz: "+msg.Content)
		case models.RolePirate:
			lines = append(lines, "Pirat: "+msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}

func buildEvaluationPrompt(conversationText string, strategies, personas []string) string {
	strategiesText := "brak"
	if len(strategies) > 0 {
		strategiesText = strings.Join(strategies, ", ")
	}
	personasText := "brak"
	if len(personas) > 0 {
		personasText = strings.Join(personas, ", ")
	}

	return fmt.Sprintf(`Przeanalizuj poniższą konwersację i oceń poziom oszustwa, wprowadzania w błąd i manipulacji gracza.

Konwersacja:
%s

Zastosowane strategie: %s
Osoby, za które gracz się podawał: %s

Oceń następujące POZYTYWNE aspekty (0 do maksimum):
1. **Strategy Variety (strategy_variety)**: Różnorodność strategii oszukiwania (0-30)
2. **Conversation Depth (conversation_depth)**: Głębokość i złożoność prób manipulacji (0-25)
3. **Creativity (creativity)**: Kreatywność w oszukiwaniu i wymyślaniu historii (0-25)
4. **Persistence (persistence)**: Wytrwałość w próbach oszukiwania mimo odmowy (0-20)

Oceń następujące NEGATYWNE aspekty (0 do minimum, wartości ujemne):
5. **Obvious Lies (obvious_lies)**: Zbyt oczywiste kłamstwa, łatwe do wykrycia (0 do -20)
6. **Repetitive Strategy (repetitive_strategy)**: Powtarzanie tej samej strategii bez zmian (0 do -15)
7. **Aggressive Behavior (aggressive_behavior)**: Agresywne, grubiańskie zachowanie (0 do -15)
8. **Direct Demands (direct_demands)**: Zbyt bezpośrednie żądania, brak subtelności (0 do -10)
9. **Contradictions (contradictions)**: Sprzeczności w opowieściach/historiach (0 do -15)
10. **Short Messages (short_messages)**: Zbyt krótkie wiadomości, brak zaangażowania (0 do -10)

Zwróć TYLKO poprawny JSON w formacie:
{
    "strategy_variety": <liczba 0-30>,
    "conversation_depth": <liczba 0-25>,
    "creativity": <liczba 0-25>,
    "persistence": <liczba 0-20>,
    "obvious_lies": <liczba 0 do -20>,
    "repetitive_strategy": <liczba 0 do -15>,
    "aggressive_behavior": <liczba 0 do -15>,
    "direct_demands": <liczba 0 do -10>,
    "contradictions": <liczba 0 do -15>,
    "short_messages": <liczba 0 do -10>
}

Uwzględnij:
POZYTYWNE:
- Fałszywe tożsamości i kłamstwa (ale nie oczywiste)
- Próby manipulacji emocjonalnej
- Wymyślone historie i opowieści
- Próby wykorzystania zaufania
- Kreatywność w oszukiwaniu

NEGATYWNE:
- Zbyt oczywiste kłamstwa (łatwe do wykrycia)
- Powtarzanie tej samej strategii wielokrotnie
- Agresywne, grubiańskie zachowanie
- Zbyt bezpośrednie żądania (np. "daj mi skarb")
- Sprzeczności w opowieściach
- Zbyt krótkie wiadomości (np. "cos", "daj", "skarb")`,
		conversationText, strategiesText, personasText)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampScores forces every subscore into its declared range. Out-of-range
// values from the model are truncated, never rejected.
func clampScores(s *rawScores) {
	s.StrategyVariety = clampInt(s.StrategyVariety, 0, maxStrategyVariety)
	s.ConversationDepth = clampInt(s.ConversationDepth, 0, maxConversationDepth)
	s.Creativity = clampInt(s.Creativity, 0, maxCreativity)
	s.Persistence = clampInt(s.Persistence, 0, maxPersistence)
	s.ObviousLies = clampInt(s.ObviousLies, minObviousLies, 0)
	s.RepetitiveStrategy = clampInt(s.RepetitiveStrategy, minRepetitiveStrategy, 0)
	s.AggressiveBehavior = clampInt(s.AggressiveBehavior, minAggressiveBehavior, 0)
	s.DirectDemands = clampInt(s.DirectDemands, minDirectDemands, 0)
	s.Contradictions = clampInt(s.Contradictions, minContradictions, 0)
	s.ShortMessages = clampInt(s.ShortMessages, minShortMessages, 0)
}

func buildEvaluation(scores *rawScores, settings config.DifficultySettings) *models.MeritEvaluation {
	positive := scores.StrategyVariety + scores.ConversationDepth +
		scores.Creativity + scores.Persistence
	negative := scores.ObviousLies + scores.RepetitiveStrategy +
		scores.AggressiveBehavior + scores.DirectDemands +
		scores.Contradictions + scores.ShortMessages

	total := clampInt(positive+negative, -100, 100)

	hasEarnedIt := total >= settings.MeritThreshold
	hasLost := total <= settings.LossThreshold

	var feedback string
	switch {
	case hasLost:
		feedback = fmt.Sprintf("Gracz wykazał się bardzo słabą strategią oszukiwania (wynik: %d/%d). Widzisz przez wszystkie ich próby. Bądź bardzo sarkastyczny i pokazuj że jesteś o wiele mądrzejszy.",
			total, settings.LossThreshold)
	case hasEarnedIt:
		feedback = fmt.Sprintf("Gracz wykazał się wystarczającą kreatywnością w oszukiwaniu (wynik: %d/%d). Możesz być bardziej uległy i podatny na perswazję.",
			total, settings.MeritThreshold)
	default:
		feedback = fmt.Sprintf("Gracz nie próbował wystarczająco kreatywnie oszukać (wynik: %d/%d). Bądź podejrzliwy i sarkastyczny.",
			total, settings.MeritThreshold)
	}

	return &models.MeritEvaluation{
		TotalScore:         total,
		StrategyVariety:    scores.StrategyVariety,
		ConversationDepth:  scores.ConversationDepth,
		Creativity:         scores.Creativity,
		Persistence:        scores.Persistence,
		ObviousLies:        scores.ObviousLies,
		RepetitiveStrategy: scores.RepetitiveStrategy,
		AggressiveBehavior: scores.AggressiveBehavior,
		DirectDemands:      scores.DirectDemands,
		Contradictions:     scores.Contradictions,
		ShortMessages:      scores.ShortMessages,
		NegativeTotal:      negative,
		Threshold:          settings.MeritThreshold,
		LossThreshold:      settings.LossThreshold,
		HasEarnedIt:        hasEarnedIt,
		HasLost:            hasLost,
		Feedback:           feedback,
	}
}

var aggressiveKeywords = []string{"zabij", "zabiję", "zginiesz", "śmierć"}

// fallbackScores approximates the model's evaluation from conversation
// shape alone. Lies, demands and contradictions need semantic analysis
// and stay at zero here.
func fallbackScores(session *models.GameSession) *rawScores {
	uniqueStrategies := len(uniqueStrings(session.AttemptedStrategies))
	uniquePersonas := len(uniqueStrings(session.ClaimedPersonas))
	conversationLength := len(session.History)

	scores := &rawScores{
		StrategyVariety:   min(maxStrategyVariety, uniqueStrategies*5+uniquePersonas*3),
		ConversationDepth: min(maxConversationDepth, conversationLength*2),
		Creativity:        min(maxCreativity, uniqueStrategies*8+uniquePersonas*4),
		Persistence:       min(maxPersistence, conversationLength/2),
	}

	if len(session.AttemptedStrategies) > 0 &&
		float64(uniqueStrategies) < float64(len(session.AttemptedStrategies))*0.5 {
		scores.RepetitiveStrategy = -10
	}

	var playerChars, playerMsgs int
	for _, msg := range session.History {
		if msg.Role == models.RolePlayer {
			playerChars += len([]rune(msg.Content))
			playerMsgs++
		}
	}
	if playerMsgs > 0 && playerChars/playerMsgs < 10 {
		scores.ShortMessages = -5
	}

	for _, msg := range session.History {
		if msg.Role != models.RolePlayer {
			continue
		}
		contentLower := strings.ToLower(msg.Content)
		for _, keyword := range aggressiveKeywords {
			if strings.Contains(contentLower, keyword) {
				scores.AggressiveBehavior = -10
				break
			}
		}
		if scores.AggressiveBehavior != 0 {
			break
		}
	}

	return scores
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

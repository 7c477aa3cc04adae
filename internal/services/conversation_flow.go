// internal/services/conversation_flow.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/deAdler-alt/ai-piraci/internal/config"
	"github.com/deAdler-alt/ai-piraci/internal/errors"
	"github.com/deAdler-alt/ai-piraci/internal/llm"
	"github.com/deAdler-alt/ai-piraci/internal/models"
	"github.com/deAdler-alt/ai-piraci/internal/utils"
)

// ConversationFlow runs one turn of the game through a fixed pipeline:
// score the deception, generate the pirate's reply, gate the reply, then
// settle the outcome. Each stage reads and writes a shared turn state;
// only generation failure aborts the turn, every other stage degrades.
type ConversationFlow struct {
	llmService        *LLMService
	meritService      *MeritService
	validationService *ValidationService
	similarityService *SimilarityService
}

func NewConversationFlow(
	llmService *LLMService,
	meritService *MeritService,
	validationService *ValidationService,
	similarityService *SimilarityService,
) *ConversationFlow {
	return &ConversationFlow{
		llmService:        llmService,
		meritService:      meritService,
		validationService: validationService,
		similarityService: similarityService,
	}
}

type flowStage int

const (
	stageMeritCheck flowStage = iota
	stageGenerate
	stageValidate
	stageHandleBlocked
	stageDone
)

// TurnOutcome is the pipeline's result for one player message.
type TurnOutcome struct {
	PirateResponse    string
	Evaluation        *models.MeritEvaluation
	Blocked           bool
	Won               bool
	Lost              bool
	WonViaExactPhrase bool
}

// turnState is the mutable state threaded through the stages.
type turnState struct {
	session    *models.GameSession
	evaluation *models.MeritEvaluation
	response   string
	blocked    bool
	won        bool
	exactWin   bool
}

// ProcessTurn runs the pipeline for a session whose history already
// contains the player's latest message.
func (f *ConversationFlow) ProcessTurn(ctx context.Context, session *models.GameSession) (*TurnOutcome, error) {
	state := &turnState{session: session}

	stage := stageMeritCheck
	for stage != stageDone {
		var err error
		switch stage {
		case stageMeritCheck:
			stage = f.runMeritCheck(ctx, state)
		case stageGenerate:
			stage, err = f.runGenerate(ctx, state)
			if err != nil {
				return nil, err
			}
		case stageValidate:
			stage = f.runValidate(ctx, state)
		case stageHandleBlocked:
			stage = f.runHandleBlocked(state)
		}
	}

	return &TurnOutcome{
		PirateResponse:    state.response,
		Evaluation:        state.evaluation,
		Blocked:           state.blocked,
		Won:               state.won,
		Lost:              state.evaluation.HasLost,
		WonViaExactPhrase: state.exactWin,
	}, nil
}

func (f *ConversationFlow) runMeritCheck(ctx context.Context, state *turnState) flowStage {
	state.evaluation = f.meritService.EvaluateMerit(ctx, state.session)
	return stageGenerate
}

func (f *ConversationFlow) runGenerate(ctx context.Context, state *turnState) (flowStage, error) {
	settings := config.ForDifficulty(state.session.Difficulty)

	messages := []llm.Message{
		{
			Role: llm.RoleSystem,
			Content: buildSystemPrompt(settings, state.evaluation.HasEarnedIt,
				state.session.PirateName),
		},
	}

	// Last 10 history messages; the pirate role becomes assistant on
	// the wire.
	history := state.session.History
	start := 0
	if len(history) > 10 {
		start = len(history) - 10
	}
	for _, msg := range history[start:] {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}

		role := llm.RoleUser
		if msg.Role == models.RolePirate {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: content})
	}

	response, err := f.llmService.CreateChatCompletion(ctx, llm.CompletionRequest{
		Model:       settings.Model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		// No reply means no turn; the player keeps their message and
		// can retry.
		return stageDone, errors.WrapError(err, "pirate response generation failed", errors.ErrorTypeProcessing)
	}

	state.response = strings.TrimSpace(response)
	return stageValidate, nil
}

func (f *ConversationFlow) runValidate(ctx context.Context, state *turnState) flowStage {
	// The classifier sees every draft before the gate decides. The phrase
	// and agreement checks alone miss replies that hand the treasure over
	// in fresh wording, and those must be blocked too when the score is
	// not earned.
	verdict := f.similarityService.IsSimilar(ctx, state.response)

	allowed, alternative := f.validationService.ValidateResponse(
		state.response, state.evaluation.HasEarnedIt)
	if allowed && verdict.Similar && !state.evaluation.HasEarnedIt {
		allowed = false
		alternative = f.validationService.refusalResponse()
		utils.GetLogger().Info("response blocked via semantic similarity",
			map[string]interface{}{
				"game_id":    state.session.ID,
				"confidence": fmt.Sprintf("%.2f", verdict.Confidence),
			})
	}

	if !allowed {
		state.blocked = true
		state.response = alternative
		return stageHandleBlocked
	}

	// The reply is shown as generated. Winning requires both the earned
	// score and a reply that actually gives the treasure away; either
	// alone is not enough.
	if state.evaluation.HasEarnedIt {
		switch {
		case f.validationService.ContainsExactPhrase(state.response):
			state.won = true
			state.exactWin = true
		case f.validationService.DetectsAgreement(state.response):
			state.won = true
		case verdict.Similar:
			state.won = true
			utils.GetLogger().Info("win via semantic similarity",
				map[string]interface{}{
					"game_id":    state.session.ID,
					"confidence": fmt.Sprintf("%.2f", verdict.Confidence),
				})
		}
	}

	return stageDone
}

func (f *ConversationFlow) runHandleBlocked(state *turnState) flowStage {
	utils.GetLogger().Info("pirate response blocked",
		map[string]interface{}{
			"game_id": state.session.ID,
			"score":   state.evaluation.TotalScore,
		})
	return stageDone
}

// buildSystemPrompt assembles the pirate's character sheet for one
// generation call: persona base, the standing phrase prohibition and the
// demeanor clause matching the current score.
func buildSystemPrompt(settings config.DifficultySettings, hasEarnedIt bool, pirateName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, settings.SystemPromptBase, pirateName)

	fmt.Fprintf(&b, "\n\nNIGDY nie możesz powiedzieć dokładnego zdania: \"%s\"", config.WinPhrase)
	b.WriteString(" - to konkretne zdanie jest zakazane, chyba że zostałeś naprawdę przekonująco oszukany. Możesz rozmawiać o skarbie, dawać skarb, mówić podobne rzeczy - ale nie to dokładne zdanie, chyba że gracz naprawdę cię oszukał.")

	b.WriteString("\n\n")
	if hasEarnedIt {
		b.WriteString(settings.MeritHighPrompt)
	} else {
		b.WriteString(settings.MeritLowPrompt)
	}

	return b.String()
}

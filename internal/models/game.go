// internal/models/game.go
package models

import (
	"time"
)

// Difficulty selects the pirate's character, generation model and score
// thresholds. The set of values is closed; anything else is rejected at
// game creation.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid checks whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Conversation roles as stored in a game's history. The LLM-facing roles
// (system/user/assistant) live in the llm package; the pirate role is
// remapped to assistant when a request is built.
const (
	RolePlayer = "user"
	RolePirate = "pirate"
)

// ChatMessage is one entry of a game's conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GameSession is the persistent state of one running game. History is
// append-only; personas and strategies only ever grow; Won and Lost are
// terminal once set.
type GameSession struct {
	ID                  string        `json:"game_id"`
	Difficulty          Difficulty    `json:"difficulty"`
	PirateName          string        `json:"pirate_name"`
	History             []ChatMessage `json:"conversation_history"`
	Score               int           `json:"merit_score"`
	ClaimedPersonas     []string      `json:"player_personas"`
	AttemptedStrategies []string      `json:"strategies_attempted"`
	Won                 bool          `json:"is_won"`
	Lost                bool          `json:"is_lost"`
	WonViaExactPhrase   bool          `json:"win_phrase_detected"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Finished checks whether the game has reached a terminal state.
func (g *GameSession) Finished() bool {
	return g.Won || g.Lost
}

// Snapshot returns a deep copy that stays stable while the live session
// keeps changing under its lock.
func (g *GameSession) Snapshot() *GameSession {
	dup := *g
	dup.History = append([]ChatMessage(nil), g.History...)
	dup.ClaimedPersonas = append([]string(nil), g.ClaimedPersonas...)
	dup.AttemptedStrategies = append([]string(nil), g.AttemptedStrategies...)
	return &dup
}

// MeritEvaluation is the deception scorer's result for one turn.
// Every subscore is clamped to its declared range before the total is
// computed; TotalScore is always the clamped sum of the ten subscores.
type MeritEvaluation struct {
	TotalScore int `json:"total_score"`

	// Positive axes.
	StrategyVariety   int `json:"strategy_variety"`   // 0..30
	ConversationDepth int `json:"conversation_depth"` // 0..25
	Creativity        int `json:"creativity"`         // 0..25
	Persistence       int `json:"persistence"`        // 0..20

	// Negative axes.
	ObviousLies        int `json:"obvious_lies"`        // -20..0
	RepetitiveStrategy int `json:"repetitive_strategy"` // -15..0
	AggressiveBehavior int `json:"aggressive_behavior"` // -15..0
	DirectDemands      int `json:"direct_demands"`      // -10..0
	Contradictions     int `json:"contradictions"`      // -15..0
	ShortMessages      int `json:"short_messages"`      // -10..0

	NegativeTotal int `json:"negative_total"`

	Threshold     int  `json:"threshold"`
	LossThreshold int  `json:"loss_threshold"`
	HasEarnedIt   bool `json:"has_earned_it"`
	HasLost       bool `json:"has_lost"`

	Feedback string `json:"feedback"`
}

// NegativeCategories returns the negative subscores keyed by their wire
// names, for the per-turn breakdown shown to the player.
func (e *MeritEvaluation) NegativeCategories() map[string]int {
	return map[string]int{
		"obvious_lies":        e.ObviousLies,
		"repetitive_strategy": e.RepetitiveStrategy,
		"aggressive_behavior": e.AggressiveBehavior,
		"direct_demands":      e.DirectDemands,
		"contradictions":      e.Contradictions,
		"short_messages":      e.ShortMessages,
	}
}

// SimilarityVerdict is the semantic classifier's answer for one draft
// response. Rationale is kept for inspection only.
type SimilarityVerdict struct {
	Similar    bool    `json:"similar"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale,omitempty"`
}

// TurnResult is what one processed turn returns to the API layer.
type TurnResult struct {
	GameID             string         `json:"game_id"`
	PirateResponse     string         `json:"pirate_response"`
	Score              int            `json:"merit_score"`
	Blocked            bool           `json:"is_blocked"`
	Won                bool           `json:"is_won"`
	Lost               bool           `json:"is_lost"`
	WonViaExactPhrase  bool           `json:"win_phrase_detected"`
	AudioURL           string         `json:"audio_url,omitempty"`
	NegativeCategories map[string]int `json:"negative_categories,omitempty"`
}

// StartGameRequest is the payload for creating a new game.
type StartGameRequest struct {
	Difficulty Difficulty `json:"difficulty"`
	PirateName string     `json:"pirate_name"`
}

// ConversationRequest is the payload for sending one player message.
type ConversationRequest struct {
	GameID       string `json:"game_id"`
	Message      string `json:"message"`
	IncludeAudio bool   `json:"include_audio"`
}

// TranscriptionResult is the speech-to-text reply.
type TranscriptionResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

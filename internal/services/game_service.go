// internal/services/game_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deAdler-alt/ai-piraci/internal/errors"
	"github.com/deAdler-alt/ai-piraci/internal/models"
	"github.com/deAdler-alt/ai-piraci/internal/storage"
	"github.com/deAdler-alt/ai-piraci/internal/utils"
)

// GameService owns the live sessions and orchestrates each turn: it
// detects the player's claimed persona and strategy, appends the message
// to history, runs the conversation pipeline under the game's lock,
// settles win/loss state and voices the reply. Finished games are
// archived to disk so transcripts outlive the process.
type GameService struct {
	flow        *ConversationFlow
	ttsService  *TTSService
	lockManager *LockManager
	fileStorage *storage.FileStorage

	games      map[string]*models.GameSession
	gamesMutex sync.RWMutex
}

func NewGameService(
	flow *ConversationFlow,
	ttsService *TTSService,
	lockManager *LockManager,
	fileStorage *storage.FileStorage,
) *GameService {
	return &GameService{
		flow:        flow,
		ttsService:  ttsService,
		lockManager: lockManager,
		fileStorage: fileStorage,
		games:       make(map[string]*models.GameSession),
	}
}

const defaultPirateName = "Kapitan"

// StartGame creates a new session. Unknown difficulties are rejected;
// an empty pirate name gets the default.
func (s *GameService) StartGame(req models.StartGameRequest) (*models.GameSession, error) {
	if !req.Difficulty.Valid() {
		return nil, errors.NewValidationError(
			fmt.Sprintf("unknown difficulty level: %q", req.Difficulty), nil)
	}

	pirateName := strings.TrimSpace(req.PirateName)
	if pirateName == "" {
		pirateName = defaultPirateName
	}

	now := time.Now()
	session := &models.GameSession{
		ID:         uuid.NewString(),
		Difficulty: req.Difficulty,
		PirateName: pirateName,
		History:    []models.ChatMessage{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.gamesMutex.Lock()
	s.games[session.ID] = session
	s.gamesMutex.Unlock()

	utils.GetLogger().Info("game started", map[string]interface{}{
		"game_id":    session.ID,
		"difficulty": string(session.Difficulty),
		"pirate":     pirateName,
	})

	return session, nil
}

// lookupGame returns the live session for gameID. Callers must hold the
// game's lock before touching it.
func (s *GameService) lookupGame(gameID string) (*models.GameSession, error) {
	s.gamesMutex.RLock()
	session, exists := s.games[gameID]
	s.gamesMutex.RUnlock()

	if !exists {
		return nil, errors.NewNotFoundError(
			fmt.Sprintf("game %s not found", gameID), nil)
	}
	return session, nil
}

// GetGame returns a snapshot of the session for gameID. The copy is
// taken under the game's read lock, so a turn running concurrently
// cannot mutate the state mid-read.
func (s *GameService) GetGame(gameID string) (*models.GameSession, error) {
	session, err := s.lookupGame(gameID)
	if err != nil {
		return nil, err
	}

	var snapshot *models.GameSession
	s.lockManager.ExecuteWithGameReadLock(gameID, func() error {
		snapshot = session.Snapshot()
		return nil
	})
	return snapshot, nil
}

// ProcessConversation handles one player message end to end. Turns for
// the same game are serialized; a message to a finished game is rejected.
func (s *GameService) ProcessConversation(ctx context.Context, req models.ConversationRequest) (*models.TurnResult, error) {
	session, err := s.lookupGame(req.GameID)
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errors.NewValidationError("message cannot be empty", nil)
	}

	var result *models.TurnResult
	err = s.lockManager.ExecuteWithGameLock(session.ID, func() error {
		if session.Finished() {
			return errors.NewConflictError(
				fmt.Sprintf("game %s is already finished", session.ID), nil)
		}

		// Persona and strategy detection feed the scorer; both sets
		// only grow.
		if persona := detectPersona(message); persona != "" {
			session.ClaimedPersonas = appendUnique(session.ClaimedPersonas, persona)
		}
		if strategy := detectStrategy(message); strategy != "" {
			session.AttemptedStrategies = appendUnique(session.AttemptedStrategies, strategy)
		}

		session.History = append(session.History, models.ChatMessage{
			Role:    models.RolePlayer,
			Content: message,
		})

		outcome, err := s.flow.ProcessTurn(ctx, session)
		if err != nil {
			// The turn produced nothing; remove the player's message so
			// a retry starts from the same state.
			session.History = session.History[:len(session.History)-1]
			return err
		}

		session.History = append(session.History, models.ChatMessage{
			Role:    models.RolePirate,
			Content: outcome.PirateResponse,
		})
		session.Score = outcome.Evaluation.TotalScore
		session.UpdatedAt = time.Now()

		if outcome.Won {
			session.Won = true
			session.WonViaExactPhrase = outcome.WonViaExactPhrase
		} else if outcome.Lost {
			session.Lost = true
		}

		result = &models.TurnResult{
			GameID:             session.ID,
			PirateResponse:     outcome.PirateResponse,
			Score:              session.Score,
			Blocked:            outcome.Blocked,
			Won:                session.Won,
			Lost:               session.Lost,
			WonViaExactPhrase:  session.WonViaExactPhrase,
			NegativeCategories: outcome.Evaluation.NegativeCategories(),
		}

		if session.Finished() {
			s.archiveGame(session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.IncludeAudio {
		result.AudioURL = s.generateAudio(ctx, session.ID, result.PirateResponse)
	}

	return result, nil
}

// generateAudio voices the reply, best-effort.
func (s *GameService) generateAudio(ctx context.Context, gameID, text string) string {
	if s.ttsService == nil || !s.ttsService.IsConfigured() || strings.TrimSpace(text) == "" {
		return ""
	}

	audioURL, err := s.ttsService.GenerateSpeech(ctx, text, "", 60*time.Second)
	if err != nil {
		utils.GetLogger().Warn("audio generation failed", map[string]interface{}{
			"game_id": gameID,
			"error":   err.Error(),
		})
		return ""
	}
	return audioURL
}

// archiveGame writes the finished session's transcript to disk.
func (s *GameService) archiveGame(session *models.GameSession) {
	if s.fileStorage == nil {
		return
	}

	if err := s.fileStorage.SaveJSONFile("games", session.ID+".json", session); err != nil {
		utils.GetLogger().Warn("failed to archive finished game", map[string]interface{}{
			"game_id": session.ID,
			"error":   err.Error(),
		})
	}
}

// LoadArchivedGame reads an archived session back from disk.
func (s *GameService) LoadArchivedGame(gameID string) (*models.GameSession, error) {
	if s.fileStorage == nil {
		return nil, errors.NewNotFoundError("game archive is not configured", nil)
	}

	var session models.GameSession
	if err := s.fileStorage.LoadJSONFile("games", gameID+".json", &session); err != nil {
		return nil, errors.NewNotFoundError(
			fmt.Sprintf("archived game %s not found", gameID), err)
	}
	return &session, nil
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}

// Keyword tables for persona and strategy detection. The claims may be
// false; the scorer only cares that the player made them.
var personaKeywords = map[string][]string{
	"crew_member":    {"członek załogi", "załoga", "załogant", "marynarz", "pierwszy oficer", "pracuję na statku"},
	"merchant":       {"kupiec", "handlarz", "handel", "handlować", "sprzedać", "handluję"},
	"friend":         {"przyjaciel", "znajomy", "kolega", "stary przyjaciel", "znamy się"},
	"authority":      {"kapitan", "dowódca", "władza", "rozkaz", "rozkazać", "jestem kapitanem"},
	"family":         {"rodzina", "brat", "siostra", "syn", "córka", "kuzyn", "twój brat"},
	"false_identity": {"jestem", "nazywam się", "to ja", "pamiętasz mnie", "to twój"},
}

var personaOrder = []string{
	"crew_member", "merchant", "friend", "authority", "family", "false_identity",
}

var strategyKeywords = map[string][]string{
	"flattery":       {"wspaniały", "świetny", "najlepszy", "podziwiam", "szanuję", "wielki"},
	"emotional":      {"umieram", "potrzebuję", "pomóż", "proszę", "błagam", "ratuj"},
	"authority":      {"rozkaz", "musisz", "powinieneś", "wymagam", "rozkazuję"},
	"trade":          {"handel", "wymiana", "sprzedać", "kupić", "cena", "wymienię"},
	"threat":         {"zabiję", "zabij", "zginiesz", "niebezpieczeństwo", "zabiję cię"},
	"story":          {"pamiętasz", "kiedyś", "dawno", "historia", "opowieść", "razem"},
	"deception":      {"kłamię", "oszukać", "oszukałem", "nie jestem", "udaję", "fałszywy"},
	"false_identity": {"jestem kimś innym", "nie jestem", "udaję że", "podszywam się"},
	"manipulation":   {"musisz mi", "powinieneś dać", "należę mi się", "masz obowiązek"},
	"lies":           {"kłamię", "nieprawda", "wymyśliłem", "zmyśliłem", "nieprawdziwe"},
	"trickery":       {"sztuczka", "oszukać", "przebiegły", "sprytny", "podstęp"},
}

var strategyOrder = []string{
	"flattery", "emotional", "authority", "trade", "threat", "story",
	"deception", "false_identity", "manipulation", "lies", "trickery",
}

func detectPersona(message string) string {
	return detectKeyword(message, personaOrder, personaKeywords)
}

func detectStrategy(message string) string {
	return detectKeyword(message, strategyOrder, strategyKeywords)
}

func detectKeyword(message string, order []string, table map[string][]string) string {
	messageLower := strings.ToLower(message)
	for _, name := range order {
		for _, keyword := range table[name] {
			if strings.Contains(messageLower, keyword) {
				return name
			}
		}
	}
	return ""
}

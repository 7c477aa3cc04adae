// internal/api/error_codes.go
package api

// API error code constants
const (
	// Generic errors
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// Game errors
	ErrorGameNotFound      = "GAME_NOT_FOUND"
	ErrorGameFinished      = "GAME_FINISHED"
	ErrorDifficultyInvalid = "DIFFICULTY_INVALID"
	ErrorMessageEmpty      = "MESSAGE_EMPTY"

	// LLM service errors
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorGenerationFailed      = "GENERATION_FAILED"

	// Audio errors
	ErrorTranscriptionFailed = "TRANSCRIPTION_FAILED"
	ErrorAudioInvalid        = "AUDIO_INVALID"
	ErrorTTSUnavailable      = "TTS_UNAVAILABLE"

	// Rate limiting
	ErrorRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

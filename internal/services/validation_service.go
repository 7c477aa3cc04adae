// internal/services/validation_service.go
package services

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/deAdler-alt/ai-piraci/internal/config"
)

// ValidationService is the response gate. Every generated pirate reply
// passes through it before the player sees anything: a reply that hands
// over the treasure while the player has not earned it is replaced with
// a refusal, never shown.
type ValidationService struct {
	phrasePattern *regexp.Regexp

	// pickIndex selects the refusal to use from a pool of n entries.
	// Injectable so tests get deterministic output.
	pickIndex func(n int) int
}

func NewValidationService() *ValidationService {
	normalized := strings.ToLower(strings.TrimSpace(config.WinPhrase))
	return &ValidationService{
		phrasePattern: regexp.MustCompile("(?i)" + regexp.QuoteMeta(normalized)),
		pickIndex:     rand.Intn,
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ContainsExactPhrase reports whether text contains the treasure-giving
// sentence. Matching is case-insensitive and tolerant of extra
// whitespace, but the wording itself must be exact.
func (s *ValidationService) ContainsExactPhrase(text string) bool {
	if text == "" {
		return false
	}
	normalized := whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	return s.phrasePattern.MatchString(normalized)
}

// Paraphrases of handing over the treasure. A reply matching any of
// these counts as an explicit agreement even without the exact phrase.
var agreementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`skarb\s+(jest\s+)?(teraz\s+)?(twój|twoj|twoje)`),
	regexp.MustCompile(`(tak|ok|dobrze|zgoda)[\s,.]*\s*skarb\s+(jest\s+)?(teraz\s+)?(twój|twoj|twoje)`),
	regexp.MustCompile(`skarb\s+(należy|nalezy)\s+(do\s+)?(ciebie|ci)`),
	regexp.MustCompile(`(daję|daje|dam)\s+(ci\s+)?(mój\s+)?skarb`),
	regexp.MustCompile(`(weź|wez|bierz)\s+(go|skarb)`),
	regexp.MustCompile(`skarb\s+(jest\s+)?(już\s+)?(twój|twoj|twoje)`),
}

// DetectsAgreement reports whether the reply explicitly agrees to give
// the treasure away in different words than the exact phrase. A match
// preceded by a negation ("nie dam ci skarbu") or buried inside a longer
// word ("sprzedam") does not count.
func (s *ValidationService) DetectsAgreement(text string) bool {
	if text == "" {
		return false
	}
	textLower := strings.ToLower(text)
	for _, pattern := range agreementPatterns {
		for _, loc := range pattern.FindAllStringIndex(textLower, -1) {
			if genuineAgreement(textLower, loc[0]) {
				return true
			}
		}
	}
	return false
}

func genuineAgreement(text string, start int) bool {
	prefix := text[:start]

	if r, size := utf8.DecodeLastRuneInString(prefix); size > 0 && unicode.IsLetter(r) {
		return false
	}

	trimmed := strings.TrimRight(prefix, " \t\n,.!?-")
	if strings.HasSuffix(trimmed, "nie") {
		before := strings.TrimSuffix(trimmed, "nie")
		if r, size := utf8.DecodeLastRuneInString(before); size == 0 || !unicode.IsLetter(r) {
			return false
		}
	}

	return true
}

// ValidateResponse decides whether a generated reply may be shown.
// A reply that contains the exact phrase or agrees to hand over the
// treasure is only allowed when the player has earned it; otherwise
// the reply is blocked and a refusal is returned in its place.
func (s *ValidationService) ValidateResponse(response string, hasEarnedIt bool) (allowed bool, alternative string) {
	if s.ContainsExactPhrase(response) || s.DetectsAgreement(response) {
		if hasEarnedIt {
			return true, ""
		}
		return false, s.refusalResponse()
	}
	return true, ""
}

var refusalResponses = []string{
	"Haha, nie dam ci mojego skarbu tak łatwo! Musisz być bardziej kreatywny w oszukiwaniu, przyjacielu!",
	"To nie wystarczy! Spróbuj bardziej przekonująco mnie oszukać!",
	"Nie, nie dam ci skarbu. Musisz być bardziej pomysłowy w wprowadzaniu mnie w błąd!",
	"Hmm, to brzmi podejrzanie... Nie dam ci skarbu tak łatwo. Spróbuj lepiej!",
	"Musisz się bardziej postarać w oszukiwaniu, jeśli chcesz mój skarb!",
	"Widzę przez twoje sztuczki! Nie dam ci skarbu bez lepszego oszustwa!",
	"Nie jestem tak naiwny! Spróbuj bardziej kreatywnie mnie oszukać!",
}

func (s *ValidationService) refusalResponse() string {
	return refusalResponses[s.pickIndex(len(refusalResponses))]
}

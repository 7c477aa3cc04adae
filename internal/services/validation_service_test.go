// internal/services/validation_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsExactPhrase(t *testing.T) {
	svc := NewValidationService()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"exact phrase", "Oto mój skarb, weź go", true},
		{"embedded in sentence", "Dobrze... Oto mój skarb, weź go i odejdź!", true},
		{"case insensitive", "OTO MÓJ SKARB, WEŹ GO", true},
		{"extra whitespace", "Oto   mój  skarb, weź   go", true},
		{"different wording", "Skarb jest twój, zabierz go", false},
		{"partial phrase", "Oto mój skarb", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.ContainsExactPhrase(tt.text))
		})
	}
}

func TestDetectsAgreement(t *testing.T) {
	svc := NewValidationService()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"treasure is yours", "Dobrze, skarb jest twój!", true},
		{"treasure is now yours", "Skarb jest teraz twój, przyjacielu", true},
		{"giving treasure", "Daję ci mój skarb", true},
		{"will give treasure", "Dam ci skarb", true},
		{"take it", "Weź go, zasłużyłeś", true},
		{"take treasure", "Bierz skarb i odpłyń", true},
		{"treasure belongs to you", "Skarb należy do ciebie", true},
		{"no diacritics", "Wez go, skarb jest twoj", true},
		{"plain refusal", "Nie dam ci skarbu, przybyszu!", false},
		{"negated refusal from pool", "Nie, nie dam ci skarbu. Musisz być bardziej pomysłowy!", false},
		{"match inside longer word", "Sprzedam ci skarb? Nigdy!", false},
		{"talks about treasure", "Mój skarb jest dobrze ukryty", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.DetectsAgreement(tt.text))
		})
	}
}

func TestValidateResponse(t *testing.T) {
	t.Run("allows neutral response regardless of score", func(t *testing.T) {
		svc := NewValidationService()

		allowed, alternative := svc.ValidateResponse("Ha! Nie oszukasz mnie tak łatwo.", false)
		assert.True(t, allowed)
		assert.Empty(t, alternative)

		allowed, alternative = svc.ValidateResponse("Ha! Nie oszukasz mnie tak łatwo.", true)
		assert.True(t, allowed)
		assert.Empty(t, alternative)
	})

	t.Run("blocks phrase without earned score", func(t *testing.T) {
		svc := NewValidationService()
		svc.pickIndex = func(n int) int { return 2 }

		allowed, alternative := svc.ValidateResponse("Oto mój skarb, weź go", false)
		assert.False(t, allowed)
		assert.Equal(t, refusalResponses[2], alternative)
	})

	t.Run("blocks agreement without earned score", func(t *testing.T) {
		svc := NewValidationService()
		svc.pickIndex = func(n int) int { return 0 }

		allowed, alternative := svc.ValidateResponse("Dobrze, skarb jest twój.", false)
		assert.False(t, allowed)
		assert.Equal(t, refusalResponses[0], alternative)
	})

	t.Run("allows phrase with earned score", func(t *testing.T) {
		svc := NewValidationService()

		allowed, alternative := svc.ValidateResponse("Oto mój skarb, weź go", true)
		assert.True(t, allowed)
		assert.Empty(t, alternative)
	})

	t.Run("refusal comes from the fixed pool", func(t *testing.T) {
		svc := NewValidationService()

		for i := 0; i < 20; i++ {
			_, alternative := svc.ValidateResponse("Oto mój skarb, weź go", false)
			assert.Contains(t, refusalResponses, alternative)
		}
	})
}

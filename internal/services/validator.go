package services

import (
	"strings"

	"santa/internal/models"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

const (
	ReasonNameRequired  = "name required"
	ReasonPhoneRequired = "phone required"
	ReasonPhoneInvalid  = "invalid phone (10-15 digits required)"
	ReasonGiftRequired  = "gift required"
)

// ValidationOutcome is the result of checking one participant.
type ValidationOutcome struct {
	Valid  bool
	Reason string
}

// Validate checks the participant fields in order and stops at the first failure.
// The outcome is also written back onto the participant.
func Validate(p *models.Participant) ValidationOutcome {
	outcome := check(p)
	p.IsValid = outcome.Valid
	p.ValidationMessage = outcome.Reason
	return outcome
}

func check(p *models.Participant) ValidationOutcome {
	if strings.TrimSpace(p.Name) == "" {
		return ValidationOutcome{Reason: ReasonNameRequired}
	}
	if strings.TrimSpace(p.Phone) == "" {
		return ValidationOutcome{Reason: ReasonPhoneRequired}
	}
	if n := len(models.PhoneDigits(p.Phone)); n < minPhoneDigits || n > maxPhoneDigits {
		return ValidationOutcome{Reason: ReasonPhoneInvalid}
	}
	if strings.TrimSpace(p.Gift) == "" {
		return ValidationOutcome{Reason: ReasonGiftRequired}
	}
	return ValidationOutcome{Valid: true}
}

// ValidateAll stamps every participant and returns how many passed and failed.
func ValidateAll(participants []*models.Participant) (valid, invalid int) {
	for _, p := range participants {
		if Validate(p).Valid {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}

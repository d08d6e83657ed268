package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"santa/internal/models"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		p      models.Participant
		valid  bool
		reason string
	}{
		{"missing name", models.Participant{Name: "", Phone: "12345678901", Gift: "Book"}, false, ReasonNameRequired},
		{"blank name", models.Participant{Name: "   ", Phone: "12345678901", Gift: "Book"}, false, ReasonNameRequired},
		{"missing phone", models.Participant{Name: "Ana", Phone: " ", Gift: "Book"}, false, ReasonPhoneRequired},
		{"nine digits", models.Participant{Name: "Ana", Phone: "123456789", Gift: "Book"}, false, ReasonPhoneInvalid},
		{"sixteen digits", models.Participant{Name: "Ana", Phone: "1234567890123456", Gift: "Book"}, false, ReasonPhoneInvalid},
		{"formatted phone", models.Participant{Name: "Ana", Phone: "+55 (11) 99999-8888", Gift: "Book"}, true, ""},
		{"missing gift", models.Participant{Name: "Ana", Phone: "11999998888", Gift: ""}, false, ReasonGiftRequired},
		{"first failure wins", models.Participant{Name: "", Phone: "1", Gift: ""}, false, ReasonNameRequired},
		{"valid", models.Participant{Name: "Ana", Phone: "11999998888", Gift: "Book"}, true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			p := tc.p
			p.IsValid = !tc.valid
			p.ValidationMessage = "stale"

			outcome := Validate(&p)

			req.Equal(tc.valid, outcome.Valid)
			req.Equal(tc.reason, outcome.Reason)
			req.Equal(tc.valid, p.IsValid)
			req.Equal(tc.reason, p.ValidationMessage)
		})
	}
}

func TestValidateAll(t *testing.T) {
	req := require.New(t)
	ps := []*models.Participant{
		{Name: "Ana", Phone: "11999998888", Gift: "Book"},
		{Name: "Bia", Phone: "123", Gift: "Mug"},
		{Name: "Caio", Phone: "11999997777", Gift: "Pen"},
	}

	valid, invalid := ValidateAll(ps)

	req.Equal(2, valid)
	req.Equal(1, invalid)
	req.False(ps[1].IsValid)
	req.Equal(ReasonPhoneInvalid, ps[1].ValidationMessage)
}

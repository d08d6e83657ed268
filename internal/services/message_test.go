package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"santa/internal/models"
)

func TestRender(t *testing.T) {
	giver := &models.Participant{ID: "g1", Name: "Ana", Phone: "11999998888", Gift: "Socks"}
	receiver := &models.Participant{ID: "r1", Name: "Bia", Gift: "Book"}

	t.Run("should replace every tag occurrence", func(t *testing.T) {
		req := require.New(t)

		msg := Render("Hi {NOME}! You drew {AMIGO} ({AMIGO}), gift: {PRESENTE}", giver, receiver)

		req.Equal("Hi Ana! You drew Bia (Bia), gift: Book", msg.Text)
		req.Equal("g1", msg.ID)
		req.Equal("Ana", msg.Name)
		req.Equal("11999998888", msg.Phone)
		req.Equal(len(msg.Text), msg.CharacterCount)
		req.Equal(1, msg.SegmentCount)
	})

	t.Run("should leave text without tags unchanged", func(t *testing.T) {
		req := require.New(t)
		template := "Merry christmas {nome} {UNKNOWN}"

		msg := Render(template, giver, receiver)

		req.Equal(template, msg.Text)
		req.Equal(len(template), msg.CharacterCount)
	})

	t.Run("should insert values verbatim", func(t *testing.T) {
		req := require.New(t)
		tricky := &models.Participant{ID: "x", Name: "{AMIGO}<b>", Gift: "{NOME}"}

		msg := Render("{NOME}|{AMIGO}|{PRESENTE}", tricky, tricky)

		req.Equal("{AMIGO}<b>|{AMIGO}<b>|{NOME}", msg.Text)
	})

	t.Run("should count characters, not bytes", func(t *testing.T) {
		req := require.New(t)

		msg := Render("Olá {NOME}", &models.Participant{Name: "João"}, receiver)

		req.Equal("Olá João", msg.Text)
		req.Equal(8, msg.CharacterCount)
	})

	t.Run("should count segments from the rendered length", func(t *testing.T) {
		req := require.New(t)

		req.Equal(0, Render("", giver, receiver).SegmentCount)
		req.Equal(1, Render(strings.Repeat("a", 160), giver, receiver).SegmentCount)
		req.Equal(2, Render(strings.Repeat("a", 161), giver, receiver).SegmentCount)
	})
}

func TestSegmentCount(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 159: 1, 160: 1, 161: 2, 320: 2, 321: 3}
	for length, want := range cases {
		require.Equal(t, want, SegmentCount(length), "length %d", length)
	}
}

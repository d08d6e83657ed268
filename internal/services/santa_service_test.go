package services

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"santa/internal/mocks"
	"santa/internal/models"
)

func newTestService(sender SMSSender) *SantaService {
	engine := NewDrawEngine(rand.New(rand.NewSource(1)), 1000, false)
	return NewSantaService(engine, NewDispatcher(sender), 0)
}

func seed(t *testing.T, s *SantaService, tenantID string, ps ...models.Participant) []*models.Participant {
	t.Helper()
	out := make([]*models.Participant, 0, len(ps))
	for _, p := range ps {
		added, err := s.AddParticipant(tenantID, p)
		require.NoError(t, err)
		out = append(out, added)
	}
	return out
}

func TestSantaService_Participants(t *testing.T) {
	const tenant = "test-tenant"
	service := newTestService(nil)

	t.Run("should generate ids and validate on add", func(t *testing.T) {
		req := require.New(t)

		added, err := service.AddParticipant(tenant, models.Participant{Name: "Ana", Phone: "123", Gift: "Book"})

		req.NoError(err)
		req.Len(added.ID, 8)
		req.False(added.IsValid)
		req.Equal(ReasonPhoneInvalid, added.ValidationMessage)
	})

	t.Run("should reject duplicate ids", func(t *testing.T) {
		_, err := service.AddParticipant(tenant, models.Participant{ID: "dup", Name: "A"})
		require.NoError(t, err)
		_, err = service.AddParticipant(tenant, models.Participant{ID: "dup", Name: "B"})
		require.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("should drop unknown and self restrictions", func(t *testing.T) {
		req := require.New(t)
		ps := seed(t, service, "restrictions",
			models.Participant{ID: "a", Name: "A"},
			models.Participant{ID: "b", Name: "B"},
		)

		req.NoError(service.SetRestrictions("restrictions", ps[0].ID, []string{"a", "b", "zzz", "b"}))

		got := service.GetParticipants("restrictions")
		req.Equal([]string{"b"}, got[0].Restrictions)
		req.ErrorIs(service.SetRestrictions("restrictions", "missing", nil), ErrParticipantNotFound)
	})

	t.Run("should clean restrictions when removing a participant", func(t *testing.T) {
		req := require.New(t)
		ps := seed(t, service, "remove",
			models.Participant{ID: "a", Name: "A"},
			models.Participant{ID: "b", Name: "B"},
		)
		req.NoError(service.SetRestrictions("remove", ps[0].ID, []string{"b"}))

		req.NoError(service.RemoveParticipant("remove", "b"))

		got := service.GetParticipants("remove")
		req.Len(got, 1)
		req.Empty(got[0].Restrictions)
		req.ErrorIs(service.RemoveParticipant("remove", "b"), ErrParticipantNotFound)
	})

	t.Run("should update fields and revalidate", func(t *testing.T) {
		req := require.New(t)
		ps := seed(t, service, "update", models.Participant{Name: "A", Phone: "1", Gift: "x"})

		updated, err := service.UpdateParticipant("update", ps[0].ID, models.Participant{Name: "A", Phone: "11999998888", Gift: "x"})

		req.NoError(err)
		req.True(updated.IsValid)
		_, err = service.UpdateParticipant("update", "missing", models.Participant{})
		req.ErrorIs(err, ErrParticipantNotFound)
	})

	t.Run("should not leak internal state", func(t *testing.T) {
		req := require.New(t)
		seed(t, service, "copy", models.Participant{Name: "A"})

		got := service.GetParticipants("copy")
		got[0].Name = "changed"

		req.Equal("A", service.GetParticipants("copy")[0].Name)
	})

	t.Run("should import contacts", func(t *testing.T) {
		req := require.New(t)

		report, err := service.ImportContacts("import", strings.NewReader("Ana;11999998888;Book\nBia;11999997777;Mug\nbad\n"))

		req.NoError(err)
		req.Len(report.Participants, 2)
		req.Equal(1, report.Skipped)
		req.Len(service.GetParticipants("import"), 2)
	})

	t.Run("should validate every participant", func(t *testing.T) {
		req := require.New(t)
		_, _, _, err := service.ValidateParticipants("empty")
		req.ErrorIs(err, ErrNoParticipants)

		seed(t, service, "validate",
			models.Participant{Name: "Ana", Phone: "11999998888", Gift: "Book"},
			models.Participant{Name: "", Phone: "11999998888", Gift: "Book"},
		)
		ps, valid, invalid, err := service.ValidateParticipants("validate")
		req.NoError(err)
		req.Len(ps, 2)
		req.Equal(1, valid)
		req.Equal(1, invalid)
	})
}

func TestSantaService_Preview(t *testing.T) {
	const template = "{NOME}, you give {PRESENTE} to {AMIGO}"

	t.Run("should draw active participants and mark ignored ones", func(t *testing.T) {
		req := require.New(t)
		service := newTestService(nil)
		seed(t, service, "t",
			models.Participant{ID: "a", Name: "Ana", Phone: "11999998888", Gift: "Book", Restrictions: []string{}},
			models.Participant{ID: "b", Name: "Bia", Phone: "11999997777", Gift: "Mug"},
			models.Participant{ID: "c", Name: "Caio", Phone: "11999996666", Gift: "Pen"},
			models.Participant{ID: "d", Name: "Duda", Phone: "", Gift: "", Ignore: true},
		)
		req.NoError(service.SetRestrictions("t", "a", []string{"b"}))

		outcome, err := service.Preview("t", template)

		req.NoError(err)
		req.Len(outcome.Previews, 4)
		req.Len(outcome.Assignments, 3)

		for _, a := range outcome.Assignments {
			req.NotEqual(a.Giver.ID, a.Receiver.ID)
			req.NotEqual("d", a.Receiver.ID)
			if a.Giver.ID == "a" {
				req.Equal("c", a.Receiver.ID)
			}
		}

		last := outcome.Previews[3]
		req.True(last.Ignored)
		req.Equal("d", last.ID)
		req.Equal(IgnoredPreviewMessage, last.Message)
		req.Zero(last.CharacterCount)

		for _, p := range outcome.Previews[:3] {
			req.False(p.Ignored)
			req.Equal(len([]rune(p.Message)), p.CharacterCount)
			req.True(strings.HasPrefix(p.Message, p.Name+", you give "))
		}
		req.Equal(template, service.GetTemplate("t"))
	})

	t.Run("should reject bad input", func(t *testing.T) {
		req := require.New(t)
		service := newTestService(nil)

		_, err := service.Preview("t", "  ")
		req.ErrorIs(err, ErrEmptyTemplate)

		_, err = service.Preview("t", template)
		req.ErrorIs(err, ErrNoParticipants)

		seed(t, service, "t",
			models.Participant{Name: "Ana", Phone: "11999998888", Gift: "Book"},
			models.Participant{Name: "Bia", Phone: "123", Gift: "Mug"},
		)
		_, err = service.Preview("t", template)
		req.ErrorIs(err, ErrInvalidParticipants)
	})

	t.Run("should require two active participants", func(t *testing.T) {
		service := newTestService(nil)
		seed(t, service, "t",
			models.Participant{Name: "Ana", Phone: "11999998888", Gift: "Book"},
			models.Participant{Name: "Bia", Phone: "11999997777", Gift: "Mug", Ignore: true},
		)

		_, err := service.Preview("t", template)
		require.ErrorIs(t, err, ErrNotEnoughParticipants)
	})

	t.Run("should report infeasible constraints", func(t *testing.T) {
		service := newTestService(nil)
		seed(t, service, "t",
			models.Participant{ID: "a", Name: "Ana", Phone: "11999998888", Gift: "Book"},
			models.Participant{ID: "b", Name: "Bia", Phone: "11999997777", Gift: "Mug"},
		)
		require.NoError(t, service.SetRestrictions("t", "a", []string{"b"}))

		_, err := service.Preview("t", template)
		require.ErrorIs(t, err, ErrDrawInfeasible)
	})

	t.Run("should reject duplicate ids from a replaced list", func(t *testing.T) {
		service := newTestService(nil)
		service.ReplaceParticipants("t", []models.Participant{
			{ID: "x", Name: "Ana", Phone: "11999998888", Gift: "Book"},
			{ID: "x", Name: "Bia", Phone: "11999997777", Gift: "Mug"},
		})

		_, err := service.Preview("t", template)
		require.ErrorIs(t, err, ErrDuplicateID)
	})
}

func TestSantaService_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("should send to active participants and summarize", func(t *testing.T) {
		req := require.New(t)
		sender := mocks.NewMockSMSSender(ctrl)
		service := newTestService(sender)
		seed(t, service, "t",
			models.Participant{ID: "a", Name: "Ana", Phone: "11999998888", Gift: "Book"},
			models.Participant{ID: "b", Name: "Bia", Phone: "11999997777", Gift: "Mug"},
			models.Participant{ID: "c", Name: "Caio", Phone: "11999996666", Gift: "Pen"},
			models.Participant{ID: "d", Name: "Duda", Ignore: true},
		)

		sender.EXPECT().Send(gomock.Any(), "key", "11999997777", gomock.Any()).
			Return(models.SendOutcome{Status: models.StatusError, ErrorMessage: "network error: boom", Transient: true})
		sender.EXPECT().Send(gomock.Any(), "key", gomock.Not("11999997777"), gomock.Any()).
			Return(models.SendOutcome{Success: true, Status: models.StatusSent}).Times(2)

		report, err := service.Send(context.Background(), "t", "key", "Hi {NOME}, draw {AMIGO}")

		req.NoError(err)
		req.Len(report.Results, 3)
		req.Equal(models.Summary{Total: 4, Sent: 2, Errors: 1, Ignored: 1}, report.Summary)

		results, summary := service.GetResults("t")
		req.Len(results, 3)
		req.Equal(report.Summary, *summary)
	})

	t.Run("should keep results when the session is cleared while sending", func(t *testing.T) {
		req := require.New(t)
		sender := mocks.NewMockSMSSender(ctrl)
		service := newTestService(sender)
		seed(t, service, "t",
			models.Participant{ID: "a", Name: "Ana", Phone: "11999998888", Gift: "Book"},
			models.Participant{ID: "b", Name: "Bia", Phone: "11999997777", Gift: "Mug"},
		)

		sender.EXPECT().Send(gomock.Any(), "key", gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _, _ string) models.SendOutcome {
				service.ClearSession("t")
				return models.SendOutcome{Success: true, Status: models.StatusSent}
			}).Times(2)

		report, err := service.Send(context.Background(), "t", "key", "hi {NOME}")
		req.NoError(err)

		results, summary := service.GetResults("t")
		req.Len(results, 2)
		req.NotNil(summary)
		req.Equal(report.Summary, *summary)
	})

	t.Run("should not send when input is invalid", func(t *testing.T) {
		req := require.New(t)
		sender := mocks.NewMockSMSSender(ctrl)
		service := newTestService(sender)
		seed(t, service, "t",
			models.Participant{Name: "Ana", Phone: "11999998888", Gift: "Book"},
			models.Participant{Name: "Bia", Phone: "11999997777", Gift: ""},
		)
		sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := service.Send(context.Background(), "t", "", "hi")
		req.ErrorIs(err, ErrMissingAPIKey)
		_, err = service.Send(context.Background(), "t", "key", "")
		req.ErrorIs(err, ErrEmptyTemplate)
		_, err = service.Send(context.Background(), "t", "key", "hi")
		req.ErrorIs(err, ErrInvalidParticipants)
	})
}

func TestSantaService_Sessions(t *testing.T) {
	req := require.New(t)
	service := newTestService(nil)
	seed(t, service, "old", models.Participant{Name: "A"})
	seed(t, service, "new", models.Participant{Name: "B"})

	service.getSession("old").LastActivity = time.Now().Add(-2 * time.Hour)

	req.Equal(1, service.CleanUpInactiveSessions(time.Hour))
	req.Empty(service.GetParticipants("old"))
	req.Len(service.GetParticipants("new"), 1)

	service.ClearSession("new")
	req.Empty(service.GetParticipants("new"))
}

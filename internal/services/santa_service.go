package services

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/samber/lo"

	"santa/internal/metrics"
	"santa/internal/models"
)

// IgnoredPreviewMessage is shown instead of a message for ignored participants.
const IgnoredPreviewMessage = "Participant ignored - will not receive SMS"

// SantaSession holds the data for a single user/tenant.
type SantaSession struct {
	mu           sync.Mutex
	Participants []*models.Participant
	Template     string
	Results      []models.DispatchResult
	Summary      *models.Summary
	LastActivity time.Time
}

// SantaService manages multiple secret santa sessions.
type SantaService struct {
	mu         sync.RWMutex
	sessions   map[string]*SantaSession // Key: tenantID
	engine     *DrawEngine
	dispatcher *Dispatcher
	sendDelay  time.Duration
}

// DrawOutcome is a completed draw with its previews.
type DrawOutcome struct {
	Assignments []models.DrawAssignment
	Previews    []models.Preview
	Ignored     []*models.Participant
	Stats       DrawStats
}

// SendReport is a completed send batch.
type SendReport struct {
	Results []models.DispatchResult
	Summary models.Summary
	Stats   DrawStats
}

// NewSantaService creates and initializes a new SantaService.
func NewSantaService(engine *DrawEngine, dispatcher *Dispatcher, sendDelay time.Duration) *SantaService {
	return &SantaService{
		sessions:   make(map[string]*SantaSession),
		engine:     engine,
		dispatcher: dispatcher,
		sendDelay:  sendDelay,
	}
}

// getSession returns a session for a tenant, creating one if it doesn't exist.
func (s *SantaService) getSession(tenantID string) *SantaSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[tenantID]
	if !exists {
		session = &SantaSession{
			Participants: make([]*models.Participant, 0),
		}
		s.sessions[tenantID] = session
		metrics.SetActiveSessions(len(s.sessions))
	}
	session.LastActivity = time.Now()
	return session
}

// GetParticipants returns a copy of the participants for a specific tenant.
func (s *SantaService) GetParticipants(tenantID string) []*models.Participant {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()
	return cloneParticipants(session.Participants)
}

// GetTemplate returns the last message template used by a tenant.
func (s *SantaService) GetTemplate(tenantID string) string {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.Template
}

// GetResults returns the results of the last send batch, if any.
func (s *SantaService) GetResults(tenantID string) ([]models.DispatchResult, *models.Summary) {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()
	return slices.Clone(session.Results), session.Summary
}

// AddParticipant adds a new participant for a specific tenant.
// An empty ID is replaced by a generated one.
func (s *SantaService) AddParticipant(tenantID string, p models.Participant) (*models.Participant, error) {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()

	if p.ID == "" {
		p.ID = NewParticipantID()
	}
	if findParticipant(session.Participants, p.ID) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	p.Restrictions = sanitizeRestrictions(p.ID, p.Restrictions, session.Participants)
	Validate(&p)

	session.Participants = append(session.Participants, &p)
	clone := p
	return &clone, nil
}

// UpdateParticipant overwrites the editable fields of a participant.
func (s *SantaService) UpdateParticipant(tenantID, id string, p models.Participant) (*models.Participant, error) {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()

	existing := findParticipant(session.Participants, id)
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
	}
	existing.Name = p.Name
	existing.Phone = p.Phone
	existing.Gift = p.Gift
	existing.Ignore = p.Ignore
	if p.Restrictions != nil {
		existing.Restrictions = sanitizeRestrictions(id, p.Restrictions, session.Participants)
	}
	Validate(existing)

	clone := *existing
	return &clone, nil
}

// SetRestrictions replaces the set of receivers a participant may not draw.
// Unknown IDs and the participant's own ID are dropped.
func (s *SantaService) SetRestrictions(tenantID, id string, restrictions []string) error {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()

	existing := findParticipant(session.Participants, id)
	if existing == nil {
		return fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
	}
	existing.Restrictions = sanitizeRestrictions(id, restrictions, session.Participants)
	return nil
}

// RemoveParticipant deletes a participant and any restriction pointing at it.
func (s *SantaService) RemoveParticipant(tenantID, id string) error {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()

	idx := slices.IndexFunc(session.Participants, func(p *models.Participant) bool { return p.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrParticipantNotFound, id)
	}
	session.Participants = slices.Delete(session.Participants, idx, idx+1)
	for _, p := range session.Participants {
		p.Restrictions = slices.DeleteFunc(p.Restrictions, func(r string) bool { return r == id })
	}
	return nil
}

// ReplaceParticipants swaps the whole participant list, as sent by a stateless client.
func (s *SantaService) ReplaceParticipants(tenantID string, participants []models.Participant) {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()

	list := make([]*models.Participant, 0, len(participants))
	for i := range participants {
		p := participants[i]
		if strings.TrimSpace(p.ID) == "" {
			p.ID = NewParticipantID()
		}
		if p.Restrictions == nil {
			p.Restrictions = []string{}
		}
		list = append(list, &p)
	}
	session.Participants = list
}

// ImportContacts parses a contact list and appends it to the tenant's participants.
func (s *SantaService) ImportContacts(tenantID string, r io.Reader) (ImportReport, error) {
	report, err := ParseContacts(r)
	if err != nil {
		return report, fmt.Errorf("reading contacts: %w", err)
	}

	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()
	session.Participants = append(session.Participants, report.Participants...)

	logger.Infof("Imported %d contacts for tenant %s (%d skipped)", len(report.Participants), tenantID, report.Skipped)
	return report, nil
}

// ValidateParticipants stamps validity on every participant of the tenant.
func (s *SantaService) ValidateParticipants(tenantID string) ([]*models.Participant, int, int, error) {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()

	if len(session.Participants) == 0 {
		return nil, 0, 0, ErrNoParticipants
	}
	valid, invalid := ValidateAll(session.Participants)
	logger.Infof("Validation complete: %d valid, %d invalid", valid, invalid)
	return cloneParticipants(session.Participants), valid, invalid, nil
}

// Preview runs a draw and renders every message without sending anything.
func (s *SantaService) Preview(tenantID, template string) (*DrawOutcome, error) {
	if strings.TrimSpace(template) == "" {
		return nil, ErrEmptyTemplate
	}

	session := s.getSession(tenantID)
	session.mu.Lock()
	session.Template = template
	outcome, err := s.draw(session.Participants)
	session.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, a := range outcome.Assignments {
		msg := Render(template, a.Giver, a.Receiver)
		outcome.Previews = append(outcome.Previews, models.Preview{
			ID:             msg.ID,
			Name:           msg.Name,
			Phone:          msg.Phone,
			Message:        msg.Text,
			CharacterCount: msg.CharacterCount,
			SegmentCount:   msg.SegmentCount,
		})
	}
	for _, p := range outcome.Ignored {
		outcome.Previews = append(outcome.Previews, models.Preview{
			ID:      p.ID,
			Name:    p.Name,
			Phone:   p.Phone,
			Message: IgnoredPreviewMessage,
			Ignored: true,
		})
	}

	logger.Infof("Generated %d previews for tenant %s", len(outcome.Previews), tenantID)
	return outcome, nil
}

// Send runs a draw and notifies every active participant of their receiver.
// Per-recipient failures end up in the report; only input and draw errors are returned.
func (s *SantaService) Send(ctx context.Context, tenantID, apiKey, template string) (*SendReport, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(template) == "" {
		return nil, ErrEmptyTemplate
	}

	session := s.getSession(tenantID)
	session.mu.Lock()
	session.Template = template
	total := len(session.Participants)
	outcome, err := s.draw(session.Participants)
	session.mu.Unlock()
	if err != nil {
		return nil, err
	}

	results := s.dispatcher.DispatchAll(ctx, apiKey, outcome.Assignments, template, s.sendDelay)
	summary := Summarize(results, total, len(outcome.Ignored))

	// The session may have been cleared while sending.
	session = s.getSession(tenantID)
	session.mu.Lock()
	session.Results = results
	session.Summary = &summary
	session.mu.Unlock()

	logger.Infof("Send batch for tenant %s: %d sent, %d errors, %d ignored", tenantID, summary.Sent, summary.Errors, summary.Ignored)
	return &SendReport{Results: slices.Clone(results), Summary: summary, Stats: outcome.Stats}, nil
}

// draw validates the participants and runs the engine on the active ones.
// The caller must hold the session lock.
func (s *SantaService) draw(participants []*models.Participant) (*DrawOutcome, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = true
	}

	ValidateAll(participants)
	snapshot := cloneParticipants(participants)
	ignored, active := lo.FilterReject(snapshot, func(p *models.Participant, _ int) bool { return p.Ignore })

	invalid := lo.Filter(active, func(p *models.Participant, _ int) bool { return !p.IsValid })
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: %s (%s)", ErrInvalidParticipants, invalid[0].Name, invalid[0].ValidationMessage)
	}

	assignments, stats, err := s.engine.Draw(active)
	if err != nil {
		metrics.ObserveDraw("failed", stats.Attempts)
		logger.Warningf("Draw failed for %d participants after %d attempts: %v", len(active), stats.Attempts, err)
		return nil, err
	}
	metrics.ObserveDraw(lo.Ternary(stats.Fallback, "fallback", "ok"), stats.Attempts)
	logger.Infof("Secret santa draw completed on attempt %d (fallback: %t)", stats.Attempts, stats.Fallback)

	return &DrawOutcome{Assignments: assignments, Ignored: ignored, Stats: stats}, nil
}

// CleanUpInactiveSessions removes sessions that have been inactive for longer than ttl.
func (s *SantaService) CleanUpInactiveSessions(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for tenantID, session := range s.sessions {
		if time.Since(session.LastActivity) > ttl {
			logger.Infof("Removing inactive session for tenant: %s", tenantID)
			delete(s.sessions, tenantID)
			removed++
		}
	}
	metrics.SetActiveSessions(len(s.sessions))
	return removed
}

// ClearSession removes all data associated with a specific tenant.
func (s *SantaService) ClearSession(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tenantID)
	metrics.SetActiveSessions(len(s.sessions))
	logger.Infof("Cleared session for tenant: %s", tenantID)
}

func findParticipant(participants []*models.Participant, id string) *models.Participant {
	for _, p := range participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func sanitizeRestrictions(id string, restrictions []string, participants []*models.Participant) []string {
	out := make([]string, 0, len(restrictions))
	for _, r := range lo.Uniq(restrictions) {
		if r == id || findParticipant(participants, r) == nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

func cloneParticipants(participants []*models.Participant) []*models.Participant {
	return lo.Map(participants, func(p *models.Participant, _ int) *models.Participant {
		clone := *p
		clone.Restrictions = slices.Clone(p.Restrictions)
		return &clone
	})
}

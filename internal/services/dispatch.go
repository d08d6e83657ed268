package services

import (
	"context"
	"time"

	"github.com/google/logger"
	"github.com/samber/lo"

	"santa/internal/metrics"
	"santa/internal/models"
)

//go:generate mockgen -source=dispatch.go -destination=../mocks/mock_sender.go -package=mocks

// SMSSender delivers a single text message.
// Failures are reported through the outcome, never as a panic or error.
type SMSSender interface {
	Send(ctx context.Context, apiKey, phone, message string) models.SendOutcome
}

// DefaultSendDelay is the pause between two consecutive sends.
const DefaultSendDelay = 500 * time.Millisecond

// Dispatcher sends the draw notifications one at a time.
type Dispatcher struct {
	sender       SMSSender
	maxRetries   int
	retryBackoff time.Duration
	now          func() time.Time
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRetry enables up to max extra attempts for transient failures.
func WithRetry(max int, backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxRetries = max
		d.retryBackoff = backoff
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a Dispatcher around the given sender.
func NewDispatcher(sender SMSSender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchAll sends one message per assignment, in draw order, waiting delay between sends.
// A failed send is recorded and the batch moves on.
func (d *Dispatcher) DispatchAll(ctx context.Context, apiKey string, assignments []models.DrawAssignment, template string, delay time.Duration) []models.DispatchResult {
	results := make([]models.DispatchResult, 0, len(assignments))

	for i, a := range assignments {
		if i > 0 {
			wait(ctx, delay)
		}

		msg := Render(template, a.Giver, a.Receiver)
		outcome := d.send(ctx, apiKey, a.Giver.Phone, msg.Text)

		result := models.DispatchResult{
			RecipientID:   a.Giver.ID,
			RecipientName: a.Giver.Name,
			PhoneNumber:   a.Giver.Phone,
			Success:       outcome.Success,
			Status:        outcome.Status,
			ErrorMessage:  outcome.ErrorMessage,
			MessageID:     outcome.MessageID,
			Timestamp:     d.now().UTC(),
		}
		if result.Status == "" {
			result.Status = lo.Ternary(outcome.Success, models.StatusSent, models.StatusError)
		}
		results = append(results, result)

		if outcome.Success {
			metrics.IncSMSSent()
		} else {
			metrics.IncSMSFailed(lo.Ternary(outcome.Transient, "transient", "rejected"))
			logger.Warningf("Send to %s failed: %s", a.Giver.ID, outcome.ErrorMessage)
		}
	}

	return results
}

// send calls the gateway, retrying transient failures when configured.
func (d *Dispatcher) send(ctx context.Context, apiKey, phone, text string) models.SendOutcome {
	var outcome models.SendOutcome
	for try := 0; try <= d.maxRetries; try++ {
		if try > 0 {
			logger.Infof("Retrying send (%d/%d) after: %s", try, d.maxRetries, outcome.ErrorMessage)
			wait(ctx, d.retryBackoff)
		}
		start := time.Now()
		outcome = d.sender.Send(ctx, apiKey, phone, text)
		metrics.ObserveSendDuration(time.Since(start))
		if outcome.Success || !outcome.Transient {
			break
		}
	}
	return outcome
}

// Summarize aggregates a batch. total counts every participant, ignored ones included.
func Summarize(results []models.DispatchResult, total, ignored int) models.Summary {
	sent := lo.CountBy(results, func(r models.DispatchResult) bool { return r.Success })
	return models.Summary{
		Total:   total,
		Sent:    sent,
		Errors:  len(results) - sent,
		Ignored: ignored,
	}
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

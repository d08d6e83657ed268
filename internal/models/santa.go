package models

import (
	"strings"
	"time"
)

// Participant represents a person taking part in the gift exchange.
// Restrictions holds the IDs this participant must never draw as receiver.
type Participant struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Phone             string   `json:"phone"`
	Gift              string   `json:"gift"`
	Restrictions      []string `json:"restrictions"`
	Ignore            bool     `json:"ignore"` // true: excluded from the draw and from any message
	IsValid           bool     `json:"isValid"`
	ValidationMessage string   `json:"validationMessage,omitempty"`
}

// Restricts reports whether p may not give to the participant with the given ID.
func (p *Participant) Restricts(id string) bool {
	for _, r := range p.Restrictions {
		if r == id {
			return true
		}
	}
	return false
}

// PhoneDigits strips everything that is not an ASCII digit.
func PhoneDigits(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// DrawAssignment links a giver to the receiver they were drawn for.
type DrawAssignment struct {
	Giver    *Participant `json:"giver"`
	Receiver *Participant `json:"receiver"`
}

// RenderedMessage is the personalized text for a single giver.
type RenderedMessage struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Text           string `json:"text"`
	CharacterCount int    `json:"characterCount"`
	SegmentCount   int    `json:"segmentCount"`
}

// Preview is what the organizer sees before sending.
type Preview struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Message        string `json:"message"`
	CharacterCount int    `json:"characterCount"`
	SegmentCount   int    `json:"segmentCount"`
	Ignored        bool   `json:"ignored"`
}

// SendOutcome is what the SMS gateway reports for one message.
type SendOutcome struct {
	Success      bool
	Status       string
	ErrorMessage string
	MessageID    string
	// Transient marks failures worth retrying (network, timeout, 5xx).
	Transient bool
}

// DispatchResult records a single send attempt.
type DispatchResult struct {
	RecipientID   string    `json:"recipientId"`
	RecipientName string    `json:"recipientName"`
	PhoneNumber   string    `json:"phoneNumber"`
	Success       bool      `json:"success"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	MessageID     string    `json:"messageId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Summary aggregates a send batch.
type Summary struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Errors  int `json:"errors"`
	Ignored int `json:"ignored"`
}

const (
	StatusSent    = "Sent"
	StatusError   = "Error"
	StatusIgnored = "Ignored"
)

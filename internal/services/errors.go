package services

import "errors"

var (
	ErrNotEnoughParticipants = errors.New("at least 2 active participants are required for the draw")
	ErrDrawInfeasible        = errors.New("could not complete draw given constraints")
	ErrNoParticipants        = errors.New("no participants")
	ErrInvalidParticipants   = errors.New("some participants are invalid")
	ErrDuplicateID           = errors.New("duplicate participant id")
	ErrEmptyTemplate         = errors.New("message template cannot be empty")
	ErrMissingAPIKey         = errors.New("API key not provided")
	ErrParticipantNotFound   = errors.New("participant not found")
)

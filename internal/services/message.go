package services

import (
	"strings"
	"unicode/utf8"

	"santa/internal/models"
)

// Template tags, matched literally and case-sensitively.
const (
	TagGiverName    = "{NOME}"
	TagReceiverName = "{AMIGO}"
	TagReceiverGift = "{PRESENTE}"
)

// SMSSegmentLength is the number of characters carried by one SMS.
const SMSSegmentLength = 160

// Render substitutes the template tags for one assignment.
// Substitution is a single pass so values that happen to contain a tag are kept verbatim.
func Render(template string, giver, receiver *models.Participant) models.RenderedMessage {
	text := strings.NewReplacer(
		TagGiverName, giver.Name,
		TagReceiverName, receiver.Name,
		TagReceiverGift, receiver.Gift,
	).Replace(template)

	length := utf8.RuneCountInString(text)
	return models.RenderedMessage{
		ID:             giver.ID,
		Name:           giver.Name,
		Phone:          giver.Phone,
		Text:           text,
		CharacterCount: length,
		SegmentCount:   SegmentCount(length),
	}
}

// SegmentCount returns how many SMS parts a message of the given length needs.
func SegmentCount(length int) int {
	if length <= 0 {
		return 0
	}
	return (length + SMSSegmentLength - 1) / SMSSegmentLength
}

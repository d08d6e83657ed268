package services

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/google/logger"
	"github.com/google/uuid"

	"santa/internal/models"
)

// ImportReport is the outcome of parsing a contact list.
type ImportReport struct {
	Participants []*models.Participant
	Skipped      int
}

// NewParticipantID returns a short random identifier.
func NewParticipantID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ParseContacts reads "name;phone;gift[;ignore]" lines.
// Fields are split on ';' as written, quotes included. Blank lines are dropped,
// a leading header row is recognized and rows with fewer than three fields are
// counted as skipped.
func ParseContacts(r io.Reader) (ImportReport, error) {
	scanner := bufio.NewScanner(r)

	var report ImportReport
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		record := strings.Split(line, ";")
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		if isBlank(record) {
			continue
		}
		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		if len(record) < 3 {
			logger.Infof("Skipping malformed contact record: %v", record)
			report.Skipped++
			continue
		}

		p := &models.Participant{
			ID:           NewParticipantID(),
			Name:         record[0],
			Phone:        record[1],
			Gift:         record[2],
			Restrictions: []string{},
			IsValid:      true,
		}
		if len(record) > 3 && record[3] != "" {
			ignore, err := strconv.ParseBool(record[3])
			if err != nil {
				logger.Infof("Skipping contact record with invalid ignore flag: %v", record)
				report.Skipped++
				continue
			}
			p.Ignore = ignore
		}
		report.Participants = append(report.Participants, p)
	}
	if err := scanner.Err(); err != nil {
		return report, err
	}

	return report, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if f != "" {
			return false
		}
	}
	return true
}

func isHeader(record []string) bool {
	line := strings.ToLower(strings.Join(record, ";"))
	hasName := strings.Contains(line, "nome") || strings.Contains(line, "name")
	hasPhone := strings.Contains(line, "celular") || strings.Contains(line, "phone")
	return hasName && hasPhone
}

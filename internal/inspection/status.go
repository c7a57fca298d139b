package inspection

import (
	"fmt"
	"strings"
)

// Status is the persisted inspection state of a vehicle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOverdue   Status = "overdue"
	StatusConfirmed Status = "confirmed"
)

// legacyStatuses maps the values written by the previous application.
var legacyStatuses = map[string]Status{
	"pendente":   StatusPending,
	"atrasada":   StatusOverdue,
	"confirmada": StatusConfirmed,
}

func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the three known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOverdue, StatusConfirmed:
		return true
	}
	return false
}

// Normalize maps legacy spellings onto the current states. Unknown values are
// returned unchanged.
func Normalize(s Status) Status {
	if legacy, ok := legacyStatuses[strings.ToLower(string(s))]; ok {
		return legacy
	}
	return s
}

// ParseStatus parses a status, accepting legacy spellings.
func ParseStatus(raw string) (Status, error) {
	s := Normalize(Status(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown inspection status %q", raw)
	}
	return s, nil
}

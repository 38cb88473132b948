package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStatus is returned for a status outside the closed enum.
var ErrInvalidStatus = errors.New("invalid status")

// Status represents the build state of a branch.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusBuilding Status = "building"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusSuccess, StatusFailed, StatusBuilding}

// Valid returns true if s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusBuilding:
		return true
	}
	return false
}

// ParseStatus parses a status case-insensitively.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	return s, nil
}

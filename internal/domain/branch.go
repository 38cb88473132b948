package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidBranch is returned when a branch record violates its invariants.
var ErrInvalidBranch = errors.New("invalid branch")

// Branch is one row of the dashboard: a branch with its last commit and build status.
// Values are immutable; a change replaces the whole record.
type Branch struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Author        string    `json:"author"`
	AuthorEmail   string    `json:"authorEmail"`
	LastCommit    time.Time `json:"lastCommit"`
	CommitMessage string    `json:"commitMessage"`
	BuildURL      string    `json:"buildUrl"` // only meaningful when Status is success
	Status        Status    `json:"status"`
	Protected     bool      `json:"protected"`
	Ahead         int       `json:"ahead"`  // commits ahead of the default branch
	Behind        int       `json:"behind"` // commits behind the default branch
}

// Validate checks the record invariants.
func (b Branch) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidBranch)
	}
	if b.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBranch)
	}
	if !b.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidBranch, ErrInvalidStatus, b.Status)
	}
	if b.Ahead < 0 || b.Behind < 0 {
		return fmt.Errorf("%w: ahead/behind must be non-negative (got %d/%d)", ErrInvalidBranch, b.Ahead, b.Behind)
	}
	if b.LastCommit.IsZero() {
		return fmt.Errorf("%w: lastCommit is required", ErrInvalidBranch)
	}
	return nil
}

// BuildLinkActive reports whether BuildURL should be rendered as a link.
func (b Branch) BuildLinkActive() bool {
	return b.Status == StatusSuccess && b.BuildURL != ""
}

// WithStatus returns a copy of b with the given status.
func (b Branch) WithStatus(s Status) Branch {
	b.Status = s
	return b
}

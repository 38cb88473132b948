// Package fixture loads branch records from the bundled JSON document or an override file.
package fixture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vilaca/branch-dashboard/internal/domain"
)

//go:embed branches.json
var bundled []byte

// ErrMalformedDocument is returned when the fixture as a whole cannot be decoded.
var ErrMalformedDocument = errors.New("malformed fixture document")

// RecordError describes a record that was skipped during loading.
type RecordError struct {
	Index int    // position in the document
	ID    string // empty when the id itself was missing
	Err   error
}

func (e RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %d (id %s): %v", e.Index, e.ID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// Result holds the accepted branches in document order and the skipped records.
type Result struct {
	Branches []domain.Branch
	Skipped  []RecordError
}

type document struct {
	Branches *[]json.RawMessage `json:"branches"`
}

// record mirrors the wire format with pointers so absent fields can be told apart from zero values.
type record struct {
	ID            *string `json:"id"`
	Name          *string `json:"name"`
	Author        *string `json:"author"`
	AuthorEmail   *string `json:"authorEmail"`
	LastCommit    *string `json:"lastCommit"`
	CommitMessage *string `json:"commitMessage"`
	BuildURL      *string `json:"buildUrl"`
	Status        *string `json:"status"`
	Protected     *bool   `json:"protected"`
	Ahead         *int    `json:"ahead"`
	Behind        *int    `json:"behind"`
}

// timestamp layouts accepted for lastCommit; zone-less forms are read in the load location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Default loads the bundled fixture.
func Default(loc *time.Location) (Result, error) {
	return Load(bytes.NewReader(bundled), loc)
}

// LoadFile loads a fixture document from path.
func LoadFile(path string, loc *time.Location) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	return Load(f, loc)
}

// Load decodes a {"branches": [...]} document.
// Invalid records are skipped and reported in Result.Skipped; only an undecodable
// document is an error.
func Load(r io.Reader, loc *time.Location) (Result, error) {
	if loc == nil {
		loc = time.Local
	}

	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.Branches == nil {
		return Result{}, fmt.Errorf("%w: missing \"branches\" array", ErrMalformedDocument)
	}

	raw := *doc.Branches
	result := Result{Branches: make([]domain.Branch, 0, len(raw))}
	seen := make(map[string]bool, len(raw))

	for i, msg := range raw {
		b, err := decodeRecord(msg, loc)
		if err != nil {
			result.Skipped = append(result.Skipped, RecordError{Index: i, ID: b.ID, Err: err})
			continue
		}
		if seen[b.ID] {
			result.Skipped = append(result.Skipped, RecordError{Index: i, ID: b.ID, Err: fmt.Errorf("%w: duplicate id", domain.ErrInvalidBranch)})
			continue
		}
		seen[b.ID] = true
		result.Branches = append(result.Branches, b)
	}

	return result, nil
}

// decodeRecord returns the partially filled branch even on error so the caller can report its id.
func decodeRecord(msg json.RawMessage, loc *time.Location) (domain.Branch, error) {
	var rec record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return domain.Branch{}, fmt.Errorf("%w: %v", domain.ErrInvalidBranch, err)
	}

	var b domain.Branch
	if rec.ID != nil {
		b.ID = *rec.ID
	}

	if missing := rec.missingFields(); len(missing) > 0 {
		return b, fmt.Errorf("%w: missing fields %v", domain.ErrInvalidBranch, missing)
	}

	ts, err := parseTimestamp(*rec.LastCommit, loc)
	if err != nil {
		return b, fmt.Errorf("%w: lastCommit: %v", domain.ErrInvalidBranch, err)
	}

	b = domain.Branch{
		ID:            *rec.ID,
		Name:          *rec.Name,
		Author:        *rec.Author,
		AuthorEmail:   *rec.AuthorEmail,
		LastCommit:    ts,
		CommitMessage: *rec.CommitMessage,
		BuildURL:      *rec.BuildURL,
		Status:        domain.Status(*rec.Status),
		Protected:     *rec.Protected,
		Ahead:         *rec.Ahead,
		Behind:        *rec.Behind,
	}

	return b, b.Validate()
}

func (r record) missingFields() []string {
	var missing []string
	check := func(present bool, name string) {
		if !present {
			missing = append(missing, name)
		}
	}
	check(r.ID != nil, "id")
	check(r.Name != nil, "name")
	check(r.Author != nil, "author")
	check(r.AuthorEmail != nil, "authorEmail")
	check(r.LastCommit != nil, "lastCommit")
	check(r.CommitMessage != nil, "commitMessage")
	check(r.BuildURL != nil, "buildUrl")
	check(r.Status != nil, "status")
	check(r.Protected != nil, "protected")
	check(r.Ahead != nil, "ahead")
	check(r.Behind != nil, "behind")
	return missing
}

func parseTimestamp(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

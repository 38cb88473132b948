package filter

import (
	"strings"
	"time"

	"github.com/vilaca/branch-dashboard/internal/domain"
)

// Engine applies Criteria to a branch collection.
// Date bounds are interpreted as calendar days in the engine's location.
type Engine struct {
	loc *time.Location
}

// NewEngine creates an engine reading date bounds in loc (time.Local when nil).
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{loc: loc}
}

// Location returns the zone date bounds are read in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Result is a filtered view and its aggregate counts.
type Result struct {
	Branches []domain.Branch
	Summary  Summary
}

// Evaluate filters records and summarizes the filtered set.
func (e *Engine) Evaluate(records []domain.Branch, c Criteria) Result {
	branches := e.Apply(records, c)
	return Result{Branches: branches, Summary: Summarize(branches)}
}

// Apply returns the records matching every predicate in c, in their original order.
// The result is never nil.
func (e *Engine) Apply(records []domain.Branch, c Criteria) []domain.Branch {
	out := make([]domain.Branch, 0, len(records))
	for _, b := range records {
		if e.Matches(b, c) {
			out = append(out, b)
		}
	}
	return out
}

// Matches reports whether b satisfies all predicates of c.
func (e *Engine) Matches(b domain.Branch, c Criteria) bool {
	return matchesSearch(b, c.Search) &&
		matchesAuthor(b, c.Author) &&
		e.matchesDateFrom(b, c.DateFrom) &&
		e.matchesDateTo(b, c.DateTo) &&
		matchesStatus(b, c.statusFilter()) &&
		matchesProtected(b, c.ProtectedOnly)
}

func matchesSearch(b domain.Branch, term string) bool {
	if term == "" {
		return true
	}
	return containsFold(b.Name, term) || containsFold(b.CommitMessage, term)
}

func matchesAuthor(b domain.Branch, author string) bool {
	return author == "" || b.Author == author
}

// matchesDateFrom is strict: a commit exactly at midnight is excluded.
func (e *Engine) matchesDateFrom(b domain.Branch, from Date) bool {
	return from.IsZero() || b.LastCommit.After(from.StartOfDay(e.loc))
}

// matchesDateTo is strict against 23:59:59 of the bound day.
func (e *Engine) matchesDateTo(b domain.Branch, to Date) bool {
	return to.IsZero() || b.LastCommit.Before(to.EndOfDay(e.loc))
}

func matchesStatus(b domain.Branch, s StatusFilter) bool {
	return s == StatusAll || domain.Status(s) == b.Status
}

func matchesProtected(b domain.Branch, protectedOnly bool) bool {
	return !protectedOnly || b.Protected
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

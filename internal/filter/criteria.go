// Package filter derives the visible branch list and its counts from the full collection
// and the user's filter criteria. Everything here is pure and recomputed per request.
package filter

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vilaca/branch-dashboard/internal/domain"
)

var (
	// ErrInvalidDate is returned for a date bound that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidStatusFilter is returned for a status filter outside all|success|failed|building.
	ErrInvalidStatusFilter = errors.New("invalid status filter")
)

// Query parameter names used by ParseCriteria and Criteria.Query.
const (
	ParamSearch    = "q"
	ParamAuthor    = "author"
	ParamDateFrom  = "from"
	ParamDateTo    = "to"
	ParamStatus    = "status"
	ParamProtected = "protected"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a zone; the engine decides which zone it is read in.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String returns YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// StartOfDay returns 00:00:00 of d in loc.
func (d Date) StartOfDay(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// EndOfDay returns 23:59:59 of d in loc.
func (d Date) EndOfDay(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, loc)
}

// StatusFilter is "all" or one of the branch statuses.
type StatusFilter string

// StatusAll disables the status predicate.
const StatusAll StatusFilter = "all"

// ParseStatusFilter accepts "", "all" or a domain status.
func ParseStatusFilter(v string) (StatusFilter, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, string(StatusAll)) {
		return StatusAll, nil
	}
	s, err := domain.ParseStatus(v)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatusFilter, v)
	}
	return StatusFilter(s), nil
}

// Criteria is the set of simultaneous predicates applied to the branch list.
// The zero value matches everything.
type Criteria struct {
	Search        string
	Author        string
	DateFrom      Date
	DateTo        Date
	Status        StatusFilter
	ProtectedOnly bool
}

// Cleared returns criteria with every filter removed.
func Cleared() Criteria {
	return Criteria{Status: StatusAll}
}

// IsCleared reports whether no predicate constrains the result.
func (c Criteria) IsCleared() bool {
	return c.Search == "" &&
		c.Author == "" &&
		c.DateFrom.IsZero() &&
		c.DateTo.IsZero() &&
		c.statusFilter() == StatusAll &&
		!c.ProtectedOnly
}

func (c Criteria) statusFilter() StatusFilter {
	if c.Status == "" {
		return StatusAll
	}
	return c.Status
}

// ParseCriteria reads criteria from query parameters.
func ParseCriteria(v url.Values) (Criteria, error) {
	c := Cleared()
	c.Search = v.Get(ParamSearch)
	c.Author = v.Get(ParamAuthor)

	var err error
	if c.DateFrom, err = ParseDate(v.Get(ParamDateFrom)); err != nil {
		return Criteria{}, fmt.Errorf("%s: %w", ParamDateFrom, err)
	}
	if c.DateTo, err = ParseDate(v.Get(ParamDateTo)); err != nil {
		return Criteria{}, fmt.Errorf("%s: %w", ParamDateTo, err)
	}
	if c.Status, err = ParseStatusFilter(v.Get(ParamStatus)); err != nil {
		return Criteria{}, err
	}

	if p := v.Get(ParamProtected); p != "" {
		switch strings.ToLower(p) {
		case "on", "yes":
			c.ProtectedOnly = true
		default:
			b, perr := strconv.ParseBool(p)
			if perr != nil {
				return Criteria{}, fmt.Errorf("%s: invalid boolean %q", ParamProtected, p)
			}
			c.ProtectedOnly = b
		}
	}

	return c, nil
}

// Query encodes the criteria as query parameters, omitting unset filters.
func (c Criteria) Query() url.Values {
	v := url.Values{}
	if c.Search != "" {
		v.Set(ParamSearch, c.Search)
	}
	if c.Author != "" {
		v.Set(ParamAuthor, c.Author)
	}
	if !c.DateFrom.IsZero() {
		v.Set(ParamDateFrom, c.DateFrom.String())
	}
	if !c.DateTo.IsZero() {
		v.Set(ParamDateTo, c.DateTo.String())
	}
	if s := c.statusFilter(); s != StatusAll {
		v.Set(ParamStatus, string(s))
	}
	if c.ProtectedOnly {
		v.Set(ParamProtected, "1")
	}
	return v
}

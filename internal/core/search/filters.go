// Package search filters the session list by title text and date range.
package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/neilberkman/cfchat/internal/core/models"
)

// Filters is a parsed filter query.
type Filters struct {
	Query     string // title text, matched case-insensitively
	After     time.Time
	Before    time.Time
	HasAfter  bool
	HasBefore bool
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseFilters extracts date filters from a query string.
// Supports:
//   - after:<date>, since:<date> - sessions updated after the date
//   - before:<date> - sessions updated before the date
//
// Dates are ISO dates or natural language with dashes for spaces
// (after:yesterday, since:3-days-ago). Tokens with unparseable dates are
// dropped. Everything else is title text.
func ParseFilters(query string, now time.Time) Filters {
	var f Filters
	var text []string

	for _, token := range strings.Fields(query) {
		key, value, ok := strings.Cut(token, ":")
		if !ok {
			text = append(text, token)
			continue
		}

		switch strings.ToLower(key) {
		case "after", "since":
			if t, err := ParseDate(value, now); err == nil {
				f.After, f.HasAfter = t, true
			}
		case "before":
			if t, err := ParseDate(value, now); err == nil {
				f.Before, f.HasBefore = t, true
			}
		default:
			text = append(text, token)
		}
	}

	f.Query = strings.Join(text, " ")
	return f
}

// ParseDate parses an absolute date or a natural-language expression
// relative to now.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	result, err := parser.Parse(strings.ReplaceAll(s, "-", " "), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	return result.Time, nil
}

// IsEmpty reports whether f matches every session.
func (f Filters) IsEmpty() bool {
	return f.Query == "" && !f.HasAfter && !f.HasBefore
}

// Match reports whether s passes every filter.
func (f Filters) Match(s models.Session) bool {
	if f.HasAfter && !s.UpdatedAt.After(f.After) {
		return false
	}
	if f.HasBefore && !s.UpdatedAt.Before(f.Before) {
		return false
	}
	if f.Query == "" {
		return true
	}

	title := strings.ToLower(s.DisplayTitle())
	for _, word := range strings.Fields(strings.ToLower(f.Query)) {
		if !strings.Contains(title, word) {
			return false
		}
	}
	return true
}

// Apply returns the matching sessions in their original order.
func (f Filters) Apply(sessions []models.Session) []models.Session {
	if f.IsEmpty() {
		return sessions
	}
	out := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

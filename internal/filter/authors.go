package filter

import "github.com/vilaca/branch-dashboard/internal/domain"

// UniqueAuthors returns the distinct authors of records in first-appearance order.
// It is meant to be called on the full, unfiltered collection.
func UniqueAuthors(records []domain.Branch) []string {
	seen := make(map[string]struct{}, len(records))
	authors := make([]string, 0, len(records))
	for _, b := range records {
		if _, ok := seen[b.Author]; ok {
			continue
		}
		seen[b.Author] = struct{}{}
		authors = append(authors, b.Author)
	}
	return authors
}

// FilterAuthors keeps the authors containing term, case-insensitively.
func FilterAuthors(authors []string, term string) []string {
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		if containsFold(a, term) {
			out = append(out, a)
		}
	}
	return out
}

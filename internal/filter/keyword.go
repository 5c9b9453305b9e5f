// Package filter decides which extracted jobs are relevant.
package filter

import (
	"strings"

	"JobsScanner/internal/domain"
)

// KeywordFilter keeps jobs mentioning any configured keyword, case-insensitively.
type KeywordFilter struct {
	keywords []string
}

// New lower-cases the keywords and drops blank entries.
func New(keywords []string) *KeywordFilter {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	return &KeywordFilter{keywords: normalized}
}

// Active reports whether any keyword is configured.
func (f *KeywordFilter) Active() bool {
	return f != nil && len(f.keywords) > 0
}

// Match returns true when no keywords are configured, or when a keyword
// appears in the title, the snippet or the detail text.
func (f *KeywordFilter) Match(job domain.JobRecord, detail string) bool {
	if !f.Active() {
		return true
	}

	fields := []string{
		strings.ToLower(job.Title),
		strings.ToLower(job.Snippet),
	}
	if detail != "" {
		fields = append(fields, strings.ToLower(detail))
	}

	for _, kw := range f.keywords {
		for _, field := range fields {
			if strings.Contains(field, kw) {
				return true
			}
		}
	}
	return false
}

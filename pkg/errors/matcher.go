package errors

import "strings"

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		order: []ErrorCategory{CategoryPermission, CategoryVanished, CategoryMedia, CategoryName},
		patterns: map[ErrorCategory][]string{
			CategoryPermission: {
				"permission denied",
				"access denied",
				"operation not permitted",
			},
			CategoryVanished: {
				"no such file or directory",
				"file not found",
				"file does not exist",
			},
			CategoryMedia: {
				"input/output error",
				"i/o error",
				"stale file handle",
				"device not configured",
				"no such device",
				"bad message",
				"transport endpoint is not connected",
			},
			CategoryName: {
				"file name too long",
				"invalid argument",
				"illegal byte sequence",
			},
		},
	}
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	order    []ErrorCategory
	patterns map[ErrorCategory][]string
}

// Match returns the error category based on pattern matching.
// Categories are tried in a fixed order so overlapping messages classify the same way every time.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, category := range m.order {
		for _, pattern := range m.patterns[category] {
			if strings.Contains(lowerMsg, pattern) {
				return category
			}
		}
	}

	return CategoryUnknown
}

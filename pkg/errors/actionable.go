// Package errors enriches per-file failures with a category and operator
// suggestions for the end-of-run summary.
//
// Hashing a failing drive produces a long tail of unreadable files. The raw
// messages ("read /mnt/old/x: input/output error") say what happened; the
// enrichment says what to do about it:
//
//	enricher := errors.NewEnricher()
//	enriched := enricher.Enrich(err, "/mnt/old/x")
//	fmt.Println(errors.FormatSuggestions(enriched))
package errors

import (
	"errors"
	"strings"
)

// Exported constants.
const (
	CategoryMedia      ErrorCategory = "media"
	CategoryName       ErrorCategory = "name"
	CategoryPermission ErrorCategory = "permission"
	CategoryUnknown    ErrorCategory = "unknown"
	CategoryVanished   ErrorCategory = "vanished"
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	OriginalError() string
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// NewActionableError creates a new ActionableError with the given details.
func NewActionableError(
	originalError string,
	category ErrorCategory,
	suggestions []string,
	affectedPath string,
) ActionableError {
	return &actionableError{
		originalError: originalError,
		category:      category,
		suggestions:   suggestions,
		affectedPath:  affectedPath,
	}
}

// ErrorCategory represents the type of error that occurred.
type ErrorCategory string

// AsActionable finds the first ActionableError in err's chain.
func AsActionable(err error) (ActionableError, bool) {
	var actionable ActionableError
	if errors.As(err, &actionable) {
		return actionable, true
	}

	return nil, false
}

// Categories lists every category in display order.
func Categories() []ErrorCategory {
	return []ErrorCategory{CategoryMedia, CategoryPermission, CategoryVanished, CategoryName, CategoryUnknown}
}

// FormatSuggestions formats the suggestions from an ActionableError as a bulleted list.
// Returns empty string if the error is nil or has no suggestions.
func FormatSuggestions(err error) string {
	if err == nil {
		return ""
	}

	actionable, ok := AsActionable(err)
	if !ok {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

// actionableError is the concrete implementation of ActionableError.
type actionableError struct {
	originalError string
	category      ErrorCategory
	suggestions   []string
	affectedPath  string
}

// AffectedPath returns the file path affected by this error.
func (e *actionableError) AffectedPath() string {
	return e.affectedPath
}

// Category returns the error category.
func (e *actionableError) Category() ErrorCategory {
	return e.category
}

// Error implements the error interface.
func (e *actionableError) Error() string {
	return e.originalError
}

// OriginalError returns the original error message.
func (e *actionableError) OriginalError() string {
	return e.originalError
}

// Suggestions returns the list of actionable suggestions.
func (e *actionableError) Suggestions() []string {
	return e.suggestions
}

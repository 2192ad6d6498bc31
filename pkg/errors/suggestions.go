package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryVanished:
		return g.generateVanishedSuggestions(affectedPath)
	case CategoryMedia:
		return g.generateMediaSuggestions(affectedPath)
	case CategoryName:
		return g.generateNameSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateMediaSuggestions(path string) []string {
	suggestions := []string{
		"The drive returned a read error; the file stays queued and is retried on the next run",
		"Check the drive's SMART status before retrying repeatedly",
	}

	if path != "" {
		suggestions = append(suggestions, "If the copy of "+path+" on the new volume verifies, the source sector may be unrecoverable")
	}

	return suggestions
}

func (g *suggestionGenerator) generateNameSuggestions(path string) []string {
	suggestions := []string{
		"The name cannot be represented on this filesystem",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check whether %s was packaged into an archive on the destination", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure the hashing user can read every file in the tree",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	} else {
		suggestions = append(suggestions, "Check permissions with 'ls -la' on the affected path")
	}

	suggestions = append(suggestions, "Re-run as a user with read access; completed files are not re-hashed")

	return suggestions
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the session log for more details",
		"Re-run the hash step; failed files are retried automatically",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateVanishedSuggestions(path string) []string {
	suggestions := []string{
		"The file disappeared after enumeration; make sure nothing is writing to the tree",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path still exists: "+path)
	}

	return suggestions
}

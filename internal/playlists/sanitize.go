package playlists

import (
	"regexp"
	"strings"
)

// unsafeRuns matches runs of filesystem-unsafe characters and whitespace.
var unsafeRuns = regexp.MustCompile(`[<>:"/\\|?*\s]+`)

const maxNameLength = 255

// Sanitize transliterates a user-supplied playlist name into a path-safe
// remote file name.
//
// Runs of <>:"/\|?* and whitespace collapse to a single underscore, leading
// and trailing underscores are trimmed, the result is capped at 255
// characters, and an empty result falls back to "Untitled". Sanitize is
// idempotent: Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	safe := unsafeRuns.ReplaceAllString(name, "_")
	safe = strings.Trim(safe, "_")
	if len(safe) > maxNameLength {
		safe = strings.Trim(safe[:maxNameLength], "_")
	}
	if safe == "" {
		return "Untitled"
	}
	return safe
}

package addrs

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FormatFilterHint renders filter as an equivalent doublestar glob for
// use in human-facing error and log messages (e.g. "no connector
// claimed any address under aws/vpc/**"). It is not used by
// MatchesFilter itself: doublestar's "**" semantics (matching zero or
// more path segments anywhere) are closely related to but not
// identical to this package's bespoke "filter is implicitly **/*
// suffixed" rule, and the matching algorithm keeps its own exact
// semantics rather than delegating to doublestar.
func FormatFilterHint(filter string) string {
	trimmed := strings.Trim(filter, "/")
	if trimmed == "" || trimmed == "." {
		return "**"
	}
	return trimmed + "/**"
}

// ValidGlob reports whether pattern is a syntactically valid doublestar
// pattern, for validating user-supplied --subpath/--connector glob
// flags in the CLI collaborator before they ever reach MatchesFilter.
func ValidGlob(pattern string) bool {
	_, err := doublestar.Match(pattern, "")
	return err == nil
}

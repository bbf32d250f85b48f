// Package addrs implements the address and glob algebra: splitting
// a repo-relative path into a (prefix, virtual address) pair, and
// matching an address against a filter glob.
package addrs

import (
	"path"
	"sort"
	"strings"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// SplitPrefixAddr returns the longest prefix in prefixes such that path
// lies within it, along with the remaining virtual address. It returns
// ok=false if no prefix matches.
//
// Ties are resolved by longest-match: "aws/iam" beats "aws" for the
// path "aws/iam/user/jon.ron". "/" is permitted only as the sole
// prefix (see ValidatePrefixes), so it never competes against a more
// specific entry in practice, but the longest-match rule still handles
// it correctly if present.
func SplitPrefixAddr(prefixes []string, p string) (prefix string, virtAddr string, ok bool) {
	clean := cleanSlash(p)

	best := ""
	bestLen := -1
	for _, candidate := range prefixes {
		c := cleanSlash(candidate)
		if !isWithin(clean, c) {
			continue
		}
		if len(c) > bestLen {
			best = c
			bestLen = len(c)
		}
	}
	if bestLen < 0 {
		return "", "", false
	}

	rest := strings.TrimPrefix(clean, best)
	rest = strings.TrimPrefix(rest, "/")
	return best, rest, true
}

// isWithin reports whether p lies within prefix, where prefix == ""
// represents the root prefix ("/") and matches everything, and
// otherwise p must equal prefix or begin with prefix + "/".
func isWithin(p, prefix string) bool {
	if prefix == "" {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

func cleanSlash(p string) string {
	if p == "" {
		return p
	}
	c := path.Clean(p)
	c = strings.TrimPrefix(c, "./")
	c = strings.TrimPrefix(c, "/")
	if c == "." {
		c = ""
	}
	return c
}

// ValidatePrefixes enforces the invariant that no prefix is a strict
// path-prefix of another, and that "/" (if present) is the sole prefix.
func ValidatePrefixes(prefixes []string) error {
	clean := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		clean = append(clean, cleanSlash(p))
	}
	sort.Strings(clean)

	for _, p := range clean {
		if p == "/" || p == "" {
			if len(clean) != 1 {
				return taxonomy.New(taxonomy.Configuration, "prefix %q (root) must be the sole prefix", p)
			}
		}
	}

	for i := range clean {
		for j := range clean {
			if i == j {
				continue
			}
			if clean[i] == clean[j] {
				return taxonomy.New(taxonomy.Configuration, "duplicate prefix %q", clean[i])
			}
			if strings.HasPrefix(clean[j], clean[i]+"/") {
				return taxonomy.New(taxonomy.Configuration, "prefix %q is a path-prefix of %q", clean[i], clean[j])
			}
		}
	}
	return nil
}

// MatchesFilter compares addr against filter component-by-component,
// left to right, ignoring "." components. A filter component equal to
// "*" (or "**") matches any single addr component. Filter components beyond the
// end of addr are implicitly satisfied (the filter behaves as if
// suffixed with "**/*"). A filter longer than addr never matches. Any
// other component kind (root, parent ".." , a Windows drive prefix) is
// a mismatch wherever it occurs.
func MatchesFilter(addr, filter string) bool {
	addrParts := normalizedComponents(addr)
	filterParts := normalizedComponents(filter)

	if len(filterParts) > len(addrParts) {
		return false
	}

	for i, fc := range filterParts {
		ac := addrParts[i]
		if !isPlainComponent(ac) || !isPlainComponent(fc) {
			return false
		}
		if fc == "*" || fc == "**" {
			continue
		}
		if ac != fc {
			return false
		}
	}
	return true
}

// normalizedComponents splits p into path components, dropping "."
// segments the way the original Rust implementation filters
// Component::CurDir, but preserving ".." and any leading "/" marker so
// isPlainComponent can reject them.
func normalizedComponents(p string) []string {
	raw := strings.Split(p, "/")
	out := make([]string, 0, len(raw)+1)
	if strings.HasPrefix(p, "/") {
		out = append(out, "/")
	}
	for _, c := range raw {
		if c == "" || c == "." {
			continue
		}
		out = append(out, c)
	}
	return out
}

// isPlainComponent reports whether c is an ordinary path segment: not
// "..", not the root marker "/", and not containing a Windows-style
// drive marker (e.g. "C:").
func isPlainComponent(c string) bool {
	if c == ".." || c == "/" {
		return false
	}
	if strings.Contains(c, ":") {
		return false
	}
	return true
}

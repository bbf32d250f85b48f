// Package template implements the template expander:
// out://path[key] placeholder discovery and substitution against the
// output store.
package template

import (
	"regexp"
	"strings"

	"github.com/autoschematic-sh/autoschematic/internal/outputs"
)

// placeholderRe captures group 1 = path (everything up to the first
// '['), group 2 = key (between '[' and ']'). This mirrors the original
// regex out://([^\[]+)\[([^\]]+)\] exactly, including its tolerance for
// any characters but '[' in the path and any but ']' in the key.
var placeholderRe = regexp.MustCompile(`out://([^\[]+)\[([^\]]+)\]`)

// mustacheRe matches a {{ ... }} span. A placeholder wrapped in one is
// documentation/example text, not a live reference, and must not be
// discovered or substituted.
var mustacheRe = regexp.MustCompile(`\{\{(?s:.*?)\}\}`)

// ReadOutput is a single out://path[key] reference.
type ReadOutput struct {
	Path string
	Key  string
}

func (r ReadOutput) String() string {
	return "out://" + r.Path + "[" + r.Key + "]"
}

// mustacheSpans returns the [start, end) byte ranges of every {{ ... }}
// span in body.
func mustacheSpans(body string) [][2]int {
	return mustacheRe.FindAllStringIndex(body, -1)
}

// insideSpan reports whether [start, end) lies entirely within one of
// spans.
func insideSpan(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start >= s[0] && end <= s[1] {
			return true
		}
	}
	return false
}

// GetReadOutputs scans body for every out://path[key] occurrence,
// order-preserving, with duplicates retained. Occurrences inside a
// {{ ... }} span are not live references and are skipped.
func GetReadOutputs(body string) []ReadOutput {
	spans := mustacheSpans(body)
	matches := placeholderRe.FindAllStringSubmatchIndex(body, -1)
	out := make([]ReadOutput, 0, len(matches))
	for _, m := range matches {
		if insideSpan(spans, m[0], m[1]) {
			continue
		}
		out = append(out, ReadOutput{Path: body[m[2]:m[3]], Key: body[m[4]:m[5]]})
	}
	return out
}

// Result is the outcome of expanding a resource body: the (possibly
// partially) substituted body, and the set of ReadOutputs that could
// not be resolved. A caller (the workflow engine) promotes Missing into
// a plan's deferral set.
type Result struct {
	Body    string
	Missing map[ReadOutput]bool
}

// Expand substitutes every out://path[key] placeholder in body with the
// corresponding output value loaded from store, scoped to prefix. Any
// placeholder whose output is missing is left untouched in the
// returned body and recorded in Result.Missing. A placeholder inside a
// {{ ... }} span is left untouched and never recorded as missing.
func Expand(store *outputs.Store, prefix, body string) (Result, error) {
	missing := make(map[ReadOutput]bool)
	spans := mustacheSpans(body)
	matches := placeholderRe.FindAllStringSubmatchIndex(body, -1)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		b.WriteString(body[last:start])
		last = end

		if insideSpan(spans, start, end) {
			b.WriteString(body[start:end])
			continue
		}

		path, key := body[m[2]:m[3]], body[m[4]:m[5]]
		value, ok, err := store.LoadOutput(prefix, path, key)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			missing[ReadOutput{Path: path, Key: key}] = true
			b.WriteString(body[start:end])
			continue
		}
		b.WriteString(value)
	}
	b.WriteString(body[last:])

	return Result{Body: b.String(), Missing: missing}, nil
}

// Package connlock resolves a config.Spec of kind SpecLockfileRef
// against a parsed autoschematic.lock.ron-equivalent, pinning a
// connector binding to a specific (owner, repo, version, manifest)
// published binary.
package connlock

import (
	"fmt"

	"github.com/autoschematic-sh/autoschematic/internal/config"
	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// Entry is one pinned connector binary in the lockfile.
type Entry struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Version  string `json:"version"`
	Manifest string `json:"manifest"`
	// Path is the resolved local path of the downloaded/cached binary.
	Path     string          `json:"path"`
	Protocol config.Protocol `json:"protocol"`
}

// Lockfile is the parsed form of autoschematic.lock.ron.
type Lockfile struct {
	Entries []Entry `json:"entries"`
}

func key(owner, repo, manifest string) string {
	return fmt.Sprintf("%s/%s#%s", owner, repo, manifest)
}

// Index builds a lookup keyed by (owner, repo, manifest) for repeated
// resolution calls against the same lockfile.
type Index struct {
	byKey map[string]Entry
}

// NewIndex builds an Index from a parsed Lockfile.
func NewIndex(lf *Lockfile) *Index {
	idx := &Index{byKey: make(map[string]Entry, len(lf.Entries))}
	for _, e := range lf.Entries {
		idx.byKey[key(e.Owner, e.Repo, e.Manifest)] = e
	}
	return idx
}

// Resolve turns a SpecLockfileRef spec into a concrete SpecBinary spec
// pinned by the matching lockfile entry. Any other Spec kind is
// returned unchanged.
func (idx *Index) Resolve(spec config.Spec) (config.Spec, error) {
	if spec.Kind != config.SpecLockfileRef {
		return spec, nil
	}
	e, ok := idx.byKey[key(spec.Owner, spec.Repo, spec.Manifest)]
	if !ok {
		return config.Spec{}, taxonomy.New(
			taxonomy.InvalidConnectorSpec,
			"no lockfile entry for %s/%s manifest %q", spec.Owner, spec.Repo, spec.Manifest,
		)
	}
	return config.Spec{
		Kind:     config.SpecBinary,
		Path:     e.Path,
		Protocol: e.Protocol,
	}, nil
}

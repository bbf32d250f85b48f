// Package outputs implements the output store: per-resource
// output-map files, their merge-on-write semantics, and the phy→virt
// symlink mapping that makes re-imported resources keep their original
// virtual address.
package outputs

import (
	"encoding/json"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// Map is a partial output update: a key maps to Some(value) to set it,
// or to nil to delete it on merge.
type Map map[string]*string

// Store owns all output-file I/O for one repository checkout, rooted at
// fs (an afero filesystem so tests can run against an in-memory root
// and production code runs against the OS).
type Store struct {
	FS afero.Fs
}

// New returns a Store backed by fs.
func New(fs afero.Fs) *Store {
	return &Store{FS: fs}
}

// outPath returns the <prefix>/.outputs/<addr>.out path for addr under
// prefix.
func outPath(prefix, addr string) string {
	return filepath.Join(prefix, ".outputs", addr+".out")
}

// WriteVirtOutput writes (or merges) outputs into the output-map file
// for virtAddr under prefix. If merge is false and the file already
// exists, it fails. Existing keys are retained unless shadowed by a
// key present in outputs; a key present in outputs with a nil value is
// deleted. If the resulting map is empty, the file is deleted and a nil
// path is returned.
func (s *Store) WriteVirtOutput(prefix, virtAddr string, newOutputs Map, merge bool) (string, error) {
	path := outPath(prefix, virtAddr)

	if err := s.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", taxonomy.Wrap(taxonomy.IO, err, "creating output directory for %s", path)
	}

	exists, err := afero.Exists(s.FS, path)
	if err != nil {
		return "", taxonomy.Wrap(taxonomy.IO, err, "checking output file %s", path)
	}

	result := make(map[string]string)

	if exists {
		if !merge {
			return "", taxonomy.New(taxonomy.IO, "output file %s exists, merge=false", path)
		}

		existing, err := readMap(s.FS, path)
		if err != nil {
			return "", err
		}

		for key, value := range existing {
			if nv, shadowed := newOutputs[key]; shadowed {
				if nv != nil {
					result[key] = *nv
				}
				// nv == nil: key is dropped.
				continue
			}
			result[key] = value
		}
		for key, nv := range newOutputs {
			if nv == nil {
				continue
			}
			if _, already := existing[key]; already {
				continue
			}
			result[key] = *nv
		}

		if len(result) == 0 {
			if err := s.FS.Remove(path); err != nil {
				return "", taxonomy.Wrap(taxonomy.IO, err, "removing emptied output file %s", path)
			}
			return "", nil
		}
		if mapsEqual(existing, result) {
			return path, nil
		}
	} else {
		for key, nv := range newOutputs {
			if nv != nil {
				result[key] = *nv
			}
		}
		if len(result) == 0 {
			return "", nil
		}
	}

	if err := writeMap(s.FS, path, result); err != nil {
		return "", err
	}
	return path, nil
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func readMap(fs afero.Fs, path string) (map[string]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.IO, err, "reading output file %s", path)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, taxonomy.Wrap(taxonomy.IO, err, "parsing output file %s", path)
	}
	return m, nil
}

func writeMap(fs afero.Fs, path string, m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return taxonomy.Wrap(taxonomy.IO, err, "encoding output file %s", path)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return taxonomy.Wrap(taxonomy.IO, err, "writing output file %s", path)
	}
	return nil
}

// LoadOutput reads a single key from the output-map file for addr
// under prefix, returning ok=false if the file or key does not exist.
func (s *Store) LoadOutput(prefix, addr, key string) (string, bool, error) {
	path := outPath(prefix, addr)
	exists, err := afero.Exists(s.FS, path)
	if err != nil {
		return "", false, taxonomy.Wrap(taxonomy.IO, err, "checking output file %s", path)
	}
	if !exists {
		return "", false, nil
	}
	m, err := readMap(s.FS, path)
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// LinkPhyOutput creates (or refreshes) a relative symlink from the
// phy-address output path to the virt-address output path. It is
// idempotent when the existing link already points at the correct
// relative target, in which case it returns a nil path with no error.
func (s *Store) LinkPhyOutput(prefix, virtAddr, phyAddr string) (string, error) {
	virtPath := outPath(prefix, virtAddr)
	phyPath := outPath(prefix, phyAddr)
	phyParent := filepath.Dir(phyPath)

	rel, err := filepath.Rel(phyParent, virtPath)
	if err != nil {
		return "", taxonomy.Wrap(taxonomy.IO, err, "forming relative path %s -> %s", phyPath, virtPath)
	}

	linker, ok := s.FS.(afero.Linker)
	if !ok {
		return "", taxonomy.New(taxonomy.IO, "filesystem backend does not support symlinks")
	}
	lstatFS, _ := s.FS.(afero.LinkReader)

	if lstatFS != nil {
		if target, err := lstatFS.ReadlinkIfPossible(phyPath); err == nil {
			if target == rel {
				return "", nil
			}
		}
	}

	if exists, _ := afero.Exists(s.FS, phyPath); exists {
		if err := s.FS.Remove(phyPath); err != nil {
			return "", taxonomy.Wrap(taxonomy.IO, err, "removing stale output path %s", phyPath)
		}
	}

	if err := s.FS.MkdirAll(phyParent, 0o755); err != nil {
		return "", taxonomy.Wrap(taxonomy.IO, err, "creating output directory %s", phyParent)
	}
	if err := linker.SymlinkIfPossible(rel, phyPath); err != nil {
		return "", taxonomy.Wrap(taxonomy.IO, err, "linking %s -> %s", phyPath, rel)
	}
	return phyPath, nil
}

// UnlinkPhyOutput removes an existing phy-address output symlink if
// and only if it is a symlink; removes nothing and returns a nil path
// otherwise.
func (s *Store) UnlinkPhyOutput(prefix, phyAddr string) (string, error) {
	phyPath := outPath(prefix, phyAddr)
	lstatFS, ok := s.FS.(afero.Lstater)
	if !ok {
		return "", taxonomy.New(taxonomy.IO, "filesystem backend does not support lstat")
	}
	info, lstatCalled, err := lstatFS.LstatIfPossible(phyPath)
	if err != nil || !lstatCalled || info == nil {
		return "", nil
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return "", nil
	}
	if err := s.FS.Remove(phyPath); err != nil {
		return "", taxonomy.Wrap(taxonomy.IO, err, "removing output symlink %s", phyPath)
	}
	return phyPath, nil
}

// ReadRecurse walks symlinks (if any) to load the canonical output map
// for virtAddr under prefix. virt-side files are never symlinks in a
// well-formed repo, so this mostly matters when called with a phy
// address.
func (s *Store) ReadRecurse(prefix, addr string) (map[string]string, bool, error) {
	path := outPath(prefix, addr)

	linkReader, canReadLink := s.FS.(afero.LinkReader)
	seen := map[string]bool{}
	for {
		if seen[path] {
			return nil, false, taxonomy.New(taxonomy.IO, "symlink cycle reading output file %s", path)
		}
		seen[path] = true

		if canReadLink {
			if target, err := linkReader.ReadlinkIfPossible(path); err == nil {
				path = filepath.Join(filepath.Dir(path), target)
				continue
			}
		}
		break
	}

	exists, err := afero.Exists(s.FS, path)
	if err != nil {
		return nil, false, taxonomy.Wrap(taxonomy.IO, err, "checking output file %s", path)
	}
	if !exists {
		return nil, false, nil
	}
	m, err := readMap(s.FS, path)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// SplitKey is a convenience for error messages that want to show
// "addr[key]", with any ".ron" suffix trimmed from addr, without
// importing fmt at every call site.
func SplitKey(addr, key string) string {
	return strings.TrimSuffix(addr, ".ron") + "[" + key + "]"
}

// Package config defines the on-disk configuration schema
// (AutoschematicConfig and friends) consumed by the engine. The core
// does not own the RON/JSON encoding of this configuration — that
// belongs to the CLI/server collaborators. LoadJSON here is a
// practical stand-in used by this module's own tests and its
// illustrative cmd/autoschematic, not a claim about the shipped wire
// format.
package config

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/autoschematic-sh/autoschematic/internal/addrs"
	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// Protocol identifies the wire protocol a connector binary speaks.
// Currently only one protocol exists.
type Protocol string

const ProtocolTarpc Protocol = "tarpc"

// SpecKind tags the variant of Spec.
type SpecKind int

const (
	SpecBinary SpecKind = iota
	SpecCargo
	SpecCargoLocal
	// SpecLockfileRef is a Spec that must be resolved against
	// autoschematic.lock.ron before it names a concrete executable.
	SpecLockfileRef
)

// Spec is the tagged variant describing how to produce a connector's
// executable and which protocol it speaks.
type Spec struct {
	Kind SpecKind `json:"kind"`

	// Binary / resolved-Cargo fields.
	Path     string   `json:"path,omitempty"`
	Protocol Protocol `json:"protocol,omitempty"`

	// Cargo / CargoLocal fields.
	Crate      string `json:"crate,omitempty"`
	Version    string `json:"version,omitempty"`
	LocalPath  string `json:"local_path,omitempty"`
	CargoFlags string `json:"cargo_flags,omitempty"`

	// LockfileRef fields: resolved via internal/connlock.
	Owner    string `json:"owner,omitempty"`
	Repo     string `json:"repo,omitempty"`
	Manifest string `json:"manifest,omitempty"`
}

// Connector is a binding of a shortname to a Spec, inside a Prefix.
type Connector struct {
	Shortname   string            `json:"shortname"`
	Spec        Spec              `json:"spec"`
	Env         map[string]string `json:"env,omitempty"`
	ReadSecrets []string          `json:"read_secrets,omitempty"`
}

// Task is a named task definition bound inside a Prefix.
type Task struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	ReadSecrets []string          `json:"read_secrets,omitempty"`
}

// Prefix binds a set of connectors, tasks, and environment to a scoping
// namespace.
type Prefix struct {
	Connectors    []Connector       `json:"connectors"`
	Description   string            `json:"description,omitempty"`
	ResourceGroup string            `json:"resource_group,omitempty"`
	Tasks         []Task            `json:"tasks,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
}

// AutoschematicConfig is the parsed form of autoschematic.ron.
type AutoschematicConfig struct {
	SafetyActive *bool             `json:"safety_active,omitempty"`
	Prefixes     map[string]Prefix `json:"prefixes"`
}

// LoadJSON parses an AutoschematicConfig from r and validates it. See
// the package doc comment for why JSON rather than RON.
func LoadJSON(r io.Reader) (*AutoschematicConfig, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var cfg AutoschematicConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, taxonomy.Wrap(taxonomy.Configuration, err, "parsing autoschematic config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the prefix-overlap invariant and any
// per-field structural requirements not already captured by the type
// system.
func (c *AutoschematicConfig) Validate() error {
	names := make([]string, 0, len(c.Prefixes))
	for name := range c.Prefixes {
		names = append(names, name)
	}
	if err := addrs.ValidatePrefixes(names); err != nil {
		return err
	}
	for name, p := range c.Prefixes {
		seen := make(map[string]bool, len(p.Connectors))
		for _, c := range p.Connectors {
			if c.Shortname == "" {
				return taxonomy.New(taxonomy.Configuration, "prefix %q: connector binding missing shortname", name)
			}
			if seen[c.Shortname] {
				return taxonomy.New(taxonomy.Configuration, "prefix %q: duplicate connector shortname %q", name, c.Shortname)
			}
			seen[c.Shortname] = true
		}
	}
	return nil
}

// ResourceGroupMap groups prefix names by their declared resource
// group.
func (c *AutoschematicConfig) ResourceGroupMap() map[string][]string {
	res := make(map[string][]string)
	for name, p := range c.Prefixes {
		if p.ResourceGroup == "" {
			continue
		}
		res[p.ResourceGroup] = append(res[p.ResourceGroup], name)
	}
	return res
}

// PrefixNames returns the configured prefix names, suitable for passing
// to addrs.SplitPrefixAddr.
func (c *AutoschematicConfig) PrefixNames() []string {
	names := make([]string, 0, len(c.Prefixes))
	for name := range c.Prefixes {
		names = append(names, name)
	}
	return names
}

func (s SpecKind) String() string {
	switch s {
	case SpecBinary:
		return "Binary"
	case SpecCargo:
		return "Cargo"
	case SpecCargoLocal:
		return "CargoLocal"
	case SpecLockfileRef:
		return "LockfileRef"
	default:
		return fmt.Sprintf("SpecKind(%d)", s)
	}
}

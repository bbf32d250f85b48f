// Package bundle implements the Bundle capability (a connector-like
// plugin that owns one opaque multi-resource file, e.g. a Terraform
// state file or a Kubernetes manifest bundle, and knows how to split it
// into individually addressable resources): its capability interface
// (a subset of connector.Connector) and an adapter that fills in the
// rest of connector.Connector with the fixed no-op answers a bundle
// always gives (list/get/plan/op_exec/addr_virt_to_phy/addr_phy_to_virt
// as fixed passthrough/no-op answers).
package bundle

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/autoschematic-sh/autoschematic/internal/connector"
)

// Element is one file materialized out of a bundle.
type Element = connector.UnbundleElement

// Bundle is the capability interface a bundle plugin implements: a
// strict subset of connector.Connector, since a bundle has no
// individually-planned resources of its own and is only ever decomposed
// via Unbundle.
type Bundle interface {
	Init(ctx context.Context) error
	Filter(ctx context.Context, addr string) (connector.FilterResponse, error)
	Unbundle(ctx context.Context, addr string, resource []byte) ([]Element, error)
	GetSkeletons(ctx context.Context) ([]connector.SkeletonOutput, error)
	GetDocstring(ctx context.Context, addr string, ident connector.DocIdent) (*connector.GetDocOutput, error)
	Eq(ctx context.Context, addr string, a, b []byte) (bool, error)
	Diag(ctx context.Context, addr string, body []byte) (*connector.DiagnosticResponse, error)
}

// AsConnector adapts a Bundle to the full connector.Connector
// interface, answering every method a Bundle doesn't implement with a
// fixed no-op: List/Get/Plan are empty, AddrVirtToPhy/AddrPhyToVirt are
// identity passthroughs, OpExec is always the same "no-op" success, and
// Version/Subpaths/TaskExec answer exactly as connector.Null does
// (empty version and subpaths, TaskExec reporting Done).
func AsConnector(b Bundle) connector.Connector {
	return &asConnector{Bundle: b}
}

type asConnector struct {
	connector.Null
	Bundle
}

func (a *asConnector) Init(ctx context.Context) error { return a.Bundle.Init(ctx) }

func (a *asConnector) Filter(ctx context.Context, addr string) (connector.FilterResponse, error) {
	return a.Bundle.Filter(ctx, addr)
}

func (a *asConnector) List(ctx context.Context, subpath string) ([]string, error) {
	return nil, nil
}

func (a *asConnector) Get(ctx context.Context, addr string) (*connector.GetResourceOutput, error) {
	return nil, nil
}

func (a *asConnector) Plan(ctx context.Context, addr string, current, desired []byte) ([]connector.OpPlanOutput, error) {
	return nil, nil
}

func (a *asConnector) OpExec(ctx context.Context, addr string, op string) (connector.OpExecOutput, error) {
	return connector.OpExecOutput{
		Outputs:         map[string]*string{},
		FriendlyMessage: "Bundle: No-op!",
	}, nil
}

func (a *asConnector) AddrVirtToPhy(ctx context.Context, addr string) (connector.VirtToPhyResult, error) {
	return connector.VirtToPhyResult{Kind: connector.VirtToPhyPresent, Phy: addr}, nil
}

func (a *asConnector) AddrPhyToVirt(ctx context.Context, addr string) (string, bool, error) {
	return addr, true, nil
}

func (a *asConnector) GetSkeletons(ctx context.Context) ([]connector.SkeletonOutput, error) {
	return a.Bundle.GetSkeletons(ctx)
}

func (a *asConnector) GetDocstring(ctx context.Context, addr string, ident connector.DocIdent) (*connector.GetDocOutput, error) {
	return a.Bundle.GetDocstring(ctx, addr, ident)
}

func (a *asConnector) Eq(ctx context.Context, addr string, x, y []byte) (bool, error) {
	return a.Bundle.Eq(ctx, addr, x, y)
}

func (a *asConnector) Diag(ctx context.Context, addr string, body []byte) (*connector.DiagnosticResponse, error) {
	return a.Bundle.Diag(ctx, addr, body)
}

func (a *asConnector) Unbundle(ctx context.Context, addr string, resource []byte) ([]connector.UnbundleElement, error) {
	return a.Bundle.Unbundle(ctx, addr, resource)
}

// Materialize decomposes the bundle file at bundlePath (reading
// resource bytes from fs) and writes every returned Element to disk
// beside it, each rooted at bundlePath's directory and joined with its
// Filename, overwriting any existing file at that path.
func Materialize(ctx context.Context, fs afero.Fs, b Bundle, addr, bundlePath string) ([]string, error) {
	resource, err := afero.ReadFile(fs, bundlePath)
	if err != nil {
		return nil, fmt.Errorf("reading bundle %s: %w", bundlePath, err)
	}

	elements, err := b.Unbundle(ctx, addr, resource)
	if err != nil {
		return nil, fmt.Errorf("unbundling %s: %w", bundlePath, err)
	}

	dir := filepath.Dir(bundlePath)
	written := make([]string, 0, len(elements))
	for _, el := range elements {
		out := filepath.Join(dir, el.Filename)
		if err := fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return written, fmt.Errorf("creating directory for %s: %w", out, err)
		}
		if err := afero.WriteFile(fs, out, el.Contents, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", out, err)
		}
		written = append(written, out)
	}
	return written, nil
}

// Package connector defines the connector contract: the capability
// interface every resource plugin exposes, and the sum types its
// operations return. A connector may answer None/zero-value to any
// operation irrelevant to it; the workflow engine composes many
// connectors bound to the same prefix by trying each in declaration
// order until one claims an address.
package connector

import (
	"context"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// FilterResponse is a bit-combinable classification of what an address
// means to a connector.
type FilterResponse uint8

const FilterNone FilterResponse = 0

const (
	FilterConfig FilterResponse = 1 << iota
	FilterResource
	FilterBundle
	FilterTask
)

func (f FilterResponse) Has(bit FilterResponse) bool { return f&bit != 0 }

func (f FilterResponse) String() string {
	if f == FilterNone {
		return "None"
	}
	var parts []string
	for _, b := range []struct {
		bit  FilterResponse
		name string
	}{{FilterConfig, "Config"}, {FilterResource, "Resource"}, {FilterBundle, "Bundle"}, {FilterTask, "Task"}} {
		if f.Has(b.bit) {
			parts = append(parts, b.name)
		}
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "|" + p
	}
	return out
}

// VirtToPhyKind tags the variant of VirtToPhyResult.
type VirtToPhyKind int

const (
	VirtToPhyNotPresent VirtToPhyKind = iota
	VirtToPhyDeferred
	VirtToPhyPresent
	VirtToPhyNull
)

// Output identifies a (path, key) pair this connector depends on to
// resolve a virt→phy mapping, reusing the same shape as a template
// ReadOutput. The workflow engine reports these separately from a
// body's missing template outputs (PlanReport.MissingForAddrResolution
// versus PlanReport.MissingOutputs).
type Output struct {
	Path string
	Key  string
}

// VirtToPhyResult is the sum type returned by AddrVirtToPhy.
type VirtToPhyResult struct {
	Kind VirtToPhyKind
	// Present when Kind == VirtToPhyPresent.
	Phy string
	// Present when Kind == VirtToPhyNull.
	Virt string
	// Present when Kind == VirtToPhyDeferred.
	Reads []Output
}

// OpPlanOutput is one planned operation: a machine-readable op
// definition, an optional human message, and the set of output keys it
// will write.
type OpPlanOutput struct {
	Op              string
	FriendlyMessage string
	Writes          []string
}

// OpExecOutput is the result of executing one planned operation.
type OpExecOutput struct {
	Outputs         map[string]*string
	FriendlyMessage string
}

// GetResourceOutput is the result of reading a resource's current
// remote state.
type GetResourceOutput struct {
	Bytes []byte
}

// DocIdent identifies an identifier inside a resource body for
// get_docstring.
type DocIdent struct {
	Ident string
}

// GetDocOutput is a docstring fragment returned by GetDocstring.
type GetDocOutput struct {
	Markdown string
}

// SkeletonOutput is a templated starter file a connector can emit.
type SkeletonOutput struct {
	Addr string
	Body []byte
}

// TaskExecResponse is the result of one task_exec step.
type TaskExecResponse struct {
	Done    bool
	Outputs map[string]string
	Message string
}

// DiagnosticSeverity mirrors severities a connector can attach to a
// span of a resource body.
type DiagnosticSeverity int

const (
	SeverityError DiagnosticSeverity = iota
	SeverityWarning
	SeverityInfo
)

// Diagnostic is a single span-tagged diagnostic.
type Diagnostic struct {
	Severity DiagnosticSeverity
	Message  string
	StartLine, StartCol int
	EndLine, EndCol     int
}

// DiagnosticResponse is the full set of diagnostics for one resource
// body.
type DiagnosticResponse struct {
	Diagnostics []Diagnostic
}

// UnbundleElement is one file materialized from a bundle.
type UnbundleElement struct {
	Filename string
	Contents []byte
}

// Connector is the full capability interface. Implementations backed
// by an out-of-process worker (internal/connector/transport) and the
// in-memory Null implementation below both satisfy it.
type Connector interface {
	Init(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	Filter(ctx context.Context, addr string) (FilterResponse, error)
	List(ctx context.Context, subpath string) ([]string, error)
	Subpaths(ctx context.Context) ([]string, error)
	Get(ctx context.Context, addr string) (*GetResourceOutput, error)
	Plan(ctx context.Context, addr string, current, desired []byte) ([]OpPlanOutput, error)
	OpExec(ctx context.Context, addr string, op string) (OpExecOutput, error)
	AddrVirtToPhy(ctx context.Context, addr string) (VirtToPhyResult, error)
	AddrPhyToVirt(ctx context.Context, addr string) (string, bool, error)
	Eq(ctx context.Context, addr string, a, b []byte) (bool, error)
	Diag(ctx context.Context, addr string, body []byte) (*DiagnosticResponse, error)
	GetSkeletons(ctx context.Context) ([]SkeletonOutput, error)
	GetDocstring(ctx context.Context, addr string, ident DocIdent) (*GetDocOutput, error)
	TaskExec(ctx context.Context, addr string, body []byte, arg, state []byte) (TaskExecResponse, error)
	Unbundle(ctx context.Context, addr string, bundle []byte) ([]UnbundleElement, error)
}

// Null is a Connector that answers the zero value / None to every
// operation (TaskExec answers Done, OpExec an error). It is used by
// tests, and embedded by bundle.AsConnector for the methods a Bundle
// does not implement.
type Null struct{}

var _ Connector = Null{}

func (Null) Init(context.Context) error { return nil }
func (Null) Version(context.Context) (string, error) { return "", nil }
func (Null) Filter(context.Context, string) (FilterResponse, error) { return FilterNone, nil }
func (Null) List(context.Context, string) ([]string, error) { return nil, nil }
func (Null) Subpaths(context.Context) ([]string, error) { return nil, nil }
func (Null) Get(context.Context, string) (*GetResourceOutput, error) { return nil, nil }
func (Null) Plan(context.Context, string, []byte, []byte) ([]OpPlanOutput, error) { return nil, nil }
func (Null) OpExec(_ context.Context, addr string, op string) (OpExecOutput, error) {
	return OpExecOutput{}, taxonomy.New(taxonomy.InvalidOp, "null connector cannot execute op %q at %q", op, addr)
}
func (Null) AddrVirtToPhy(context.Context, string) (VirtToPhyResult, error) {
	return VirtToPhyResult{Kind: VirtToPhyNotPresent}, nil
}
func (Null) AddrPhyToVirt(context.Context, string) (string, bool, error) { return "", false, nil }
func (Null) Eq(_ context.Context, _ string, a, b []byte) (bool, error) { return string(a) == string(b), nil }
func (Null) Diag(context.Context, string, []byte) (*DiagnosticResponse, error) { return nil, nil }
func (Null) GetSkeletons(context.Context) ([]SkeletonOutput, error) { return nil, nil }
func (Null) GetDocstring(context.Context, string, DocIdent) (*GetDocOutput, error) { return nil, nil }
func (Null) TaskExec(context.Context, string, []byte, []byte, []byte) (TaskExecResponse, error) {
	return TaskExecResponse{Done: true}, nil
}
func (Null) Unbundle(context.Context, string, []byte) ([]UnbundleElement, error) { return nil, nil }

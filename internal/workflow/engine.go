package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/autoschematic-sh/autoschematic/internal/addrs"
	"github.com/autoschematic-sh/autoschematic/internal/bundle"
	"github.com/autoschematic-sh/autoschematic/internal/config"
	"github.com/autoschematic-sh/autoschematic/internal/connector"
	"github.com/autoschematic-sh/autoschematic/internal/connector/cache"
	"github.com/autoschematic-sh/autoschematic/internal/outputs"
	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
	"github.com/autoschematic-sh/autoschematic/internal/template"
)

// Engine ties the configuration, the connector cache, and the output
// store together into the workflow orchestrations. It holds no state
// of its own beyond these collaborators, so constructing one is cheap
// and many can share a Cache.
type Engine struct {
	Config  *config.AutoschematicConfig
	Cache   *cache.Cache
	Outputs *outputs.Store
	FS      afero.Fs
	Logger  hclog.Logger
}

// New builds an Engine from its collaborators. logger may be nil.
func New(cfg *config.AutoschematicConfig, cch *cache.Cache, out *outputs.Store, fs afero.Fs, logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{Config: cfg, Cache: cch, Outputs: out, FS: fs, Logger: logger}
}

// safetyLockFile is the sentinel whose presence at the repo root
// refuses apply outright. It is a manual circuit breaker an operator
// drops into a checkout to freeze applies without touching
// configuration, distinct from SafetyActive which opts a config into
// honoring it at all.
const safetyLockFile = ".autoschematic.safety.lock"

// checkSafetyLock refuses apply when the config has opted into honoring
// the safety lock file and that file is present at the repo root.
func (e *Engine) checkSafetyLock() error {
	if e.Config.SafetyActive == nil || !*e.Config.SafetyActive {
		return nil
	}
	if _, err := e.FS.Stat(safetyLockFile); err == nil {
		return taxonomy.New(taxonomy.Configuration, "%s is present, refusing apply", safetyLockFile)
	}
	return nil
}

// resourcePath returns the repo-relative path of virtAddr's resource
// file under prefix, matching the connector binding's .ron convention
// used throughout the rest of this module's tests.
func resourcePath(prefix, virtAddr string) string {
	if prefix == "" {
		return virtAddr
	}
	return prefix + "/" + virtAddr
}

// splitAddr resolves p against the configured prefixes.
func (e *Engine) splitAddr(p string) (prefix, virtAddr string, err error) {
	prefix, virtAddr, ok := addrs.SplitPrefixAddr(e.Config.PrefixNames(), p)
	if !ok {
		return "", "", taxonomy.New(taxonomy.InvalidAddress, "path %q does not lie within any configured prefix", p)
	}
	return prefix, virtAddr, nil
}

// connectorsFor returns the declared connector bindings for prefix, in
// declaration order (the order later operations are required to try
// them in).
func (e *Engine) connectorsFor(prefix string) ([]config.Connector, error) {
	p, ok := e.Config.Prefixes[prefix]
	if !ok {
		return nil, taxonomy.New(taxonomy.Configuration, "prefix %q is not configured", prefix)
	}
	return p.Connectors, nil
}

func (e *Engine) getOrSpawn(ctx context.Context, prefix string, c config.Connector) (connector.Connector, error) {
	return e.Cache.GetOrSpawn(ctx, c.Shortname, c.Spec, prefix, c.Env, true)
}

// matchResult pairs one connector binding with its resolved live
// instance and the FilterResponse it gave for the addr in question.
type matchResult struct {
	binding config.Connector
	conn    connector.Connector
	resp    connector.FilterResponse
}

// firstMatching walks prefix's connectors in declared order and returns
// the first whose cached Filter response has all of want's bits set. A
// later connector never shadows an earlier one's claim — the first
// match wins outright.
func (e *Engine) firstMatching(ctx context.Context, prefix, virtAddr string, want connector.FilterResponse) (*matchResult, error) {
	bindings, err := e.connectorsFor(prefix)
	if err != nil {
		return nil, err
	}
	for _, binding := range bindings {
		conn, err := e.getOrSpawn(ctx, prefix, binding)
		if err != nil {
			return nil, fmt.Errorf("spawning connector %s/%s: %w", prefix, binding.Shortname, err)
		}
		resp, err := e.Cache.FilterCached(ctx, conn, binding.Shortname, prefix, virtAddr)
		if err != nil {
			return nil, fmt.Errorf("filtering %s at %s/%s: %w", virtAddr, prefix, binding.Shortname, err)
		}
		if resp.Has(want) {
			return &matchResult{binding: binding, conn: conn, resp: resp}, nil
		}
	}
	return nil, nil
}

// Filter walks a prefix's connectors in order and returns the first
// non-None FilterResponse, or FilterNone if no connector claims path.
func (e *Engine) Filter(ctx context.Context, path string) (connector.FilterResponse, error) {
	prefix, virtAddr, err := e.splitAddr(path)
	if err != nil {
		return connector.FilterNone, err
	}
	bindings, err := e.connectorsFor(prefix)
	if err != nil {
		return connector.FilterNone, err
	}
	for _, binding := range bindings {
		conn, err := e.getOrSpawn(ctx, prefix, binding)
		if err != nil {
			return connector.FilterNone, fmt.Errorf("spawning connector %s/%s: %w", prefix, binding.Shortname, err)
		}
		resp, err := e.Cache.FilterCached(ctx, conn, binding.Shortname, prefix, virtAddr)
		if err != nil {
			return connector.FilterNone, fmt.Errorf("filtering %s at %s/%s: %w", virtAddr, prefix, binding.Shortname, err)
		}
		if resp != connector.FilterNone {
			return resp, nil
		}
	}
	return connector.FilterNone, nil
}

// resolveAddr resolves virtAddr against its owning connector's
// AddrVirtToPhy, returning the phy address to read/write, whether it
// resolved at all, and the reads the connector is blocked on if the
// result was Deferred.
func resolveAddr(ctx context.Context, conn connector.Connector, virtAddr string) (phy string, resolved bool, deferredReads []connector.Output, err error) {
	res, err := conn.AddrVirtToPhy(ctx, virtAddr)
	if err != nil {
		return "", false, nil, err
	}
	switch res.Kind {
	case connector.VirtToPhyPresent:
		return res.Phy, true, nil, nil
	case connector.VirtToPhyNull:
		return res.Virt, true, nil, nil
	case connector.VirtToPhyDeferred:
		return "", false, res.Reads, nil
	default: // VirtToPhyNotPresent
		return "", false, nil, nil
	}
}

// Get resolves path to the first Resource-claiming connector and
// returns its current remote state, or nil if no connector claims it
// or the virt→phy mapping does not (yet) resolve.
func (e *Engine) Get(ctx context.Context, path string) (*connector.GetResourceOutput, error) {
	prefix, virtAddr, err := e.splitAddr(path)
	if err != nil {
		return nil, err
	}
	match, err := e.firstMatching(ctx, prefix, virtAddr, connector.FilterResource)
	if err != nil || match == nil {
		return nil, err
	}
	phy, resolved, _, err := resolveAddr(ctx, match.conn, virtAddr)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, nil
	}
	return match.conn.Get(ctx, phy)
}

// CheckDriftResult classifies the outcome of comparing a resource's
// desired (repo) body against its current (remote) state.
type CheckDriftResult int

const (
	DriftNeitherExist CheckDriftResult = iota
	DriftEqual
	DriftNotEqual
	DriftInvalidAddress
)

func (r CheckDriftResult) String() string {
	switch r {
	case DriftNeitherExist:
		return "NeitherExist"
	case DriftEqual:
		return "Equal"
	case DriftNotEqual:
		return "NotEqual"
	case DriftInvalidAddress:
		return "InvalidAddress"
	default:
		return "Unknown"
	}
}

// CheckDrift compares path's repo-committed body against its connector
// current state.
func (e *Engine) CheckDrift(ctx context.Context, path string) (result CheckDriftResult, current, desired []byte, err error) {
	prefix, virtAddr, err := e.splitAddr(path)
	if err != nil {
		return DriftInvalidAddress, nil, nil, nil
	}

	desiredExists, err := afero.Exists(e.FS, path)
	if err != nil {
		return 0, nil, nil, err
	}
	if desiredExists {
		desired, err = afero.ReadFile(e.FS, path)
		if err != nil {
			return 0, nil, nil, err
		}
	}

	match, err := e.firstMatching(ctx, prefix, virtAddr, connector.FilterResource)
	if err != nil {
		return 0, nil, nil, err
	}
	if match == nil {
		if desiredExists {
			return DriftNotEqual, nil, desired, nil
		}
		return DriftNeitherExist, nil, nil, nil
	}

	phy, resolved, _, err := resolveAddr(ctx, match.conn, virtAddr)
	if err != nil {
		return 0, nil, nil, err
	}
	if resolved {
		out, err := match.conn.Get(ctx, phy)
		if err != nil {
			return 0, nil, nil, err
		}
		if out != nil {
			current = out.Bytes
		}
	}

	switch {
	case current == nil && !desiredExists:
		return DriftNeitherExist, nil, nil, nil
	case current == nil || !desiredExists:
		return DriftNotEqual, current, desired, nil
	}

	equal, err := match.conn.Eq(ctx, virtAddr, current, desired)
	if err != nil {
		return 0, current, desired, err
	}
	if equal {
		return DriftEqual, current, desired, nil
	}
	return DriftNotEqual, current, desired, nil
}

// Plan expands path's repo body against its Resource connector and asks
// it to produce a list of ops. A plan whose virt→phy resolution is
// Deferred, or whose template expansion left unresolved out://
// placeholders, reports zero ops and records what is missing instead of
// failing. An address the connector reports as NotPresent is planned
// against a nil current state. Returns a nil report if no connector
// claims path.
func (e *Engine) Plan(ctx context.Context, path string) (*PlanReport, error) {
	prefix, virtAddr, err := e.splitAddr(path)
	if err != nil {
		return nil, err
	}
	match, err := e.firstMatching(ctx, prefix, virtAddr, connector.FilterResource)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, nil
	}

	report := &PlanReport{
		Prefix:             prefix,
		ConnectorShortname: match.binding.Shortname,
		ConnectorSpec:      match.binding.Spec,
		ConnectorEnv:       match.binding.Env,
		VirtAddr:           virtAddr,
	}

	phy, resolved, deferredReads, err := resolveAddr(ctx, match.conn, virtAddr)
	if err != nil {
		return nil, err
	}
	if !resolved && len(deferredReads) > 0 {
		report.MissingForAddrResolution = deferredReads
		return report, nil
	}
	report.PhyAddr = phy

	rawDesired, err := afero.ReadFile(e.FS, path)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.IO, err, "reading resource body %s", path)
	}

	report.Reads = template.GetReadOutputs(string(rawDesired))

	expanded, err := template.Expand(e.Outputs, prefix, string(rawDesired))
	if err != nil {
		return nil, err
	}
	for m := range expanded.Missing {
		report.MissingOutputs = append(report.MissingOutputs, m)
	}
	sortReadOutputs(report.MissingOutputs)
	if len(report.MissingOutputs) > 0 {
		return report, nil
	}

	var current []byte
	if resolved {
		if out, err := match.conn.Get(ctx, phy); err != nil {
			return nil, err
		} else if out != nil {
			current = out.Bytes
		}
	}

	ops, err := match.conn.Plan(ctx, virtAddr, current, []byte(expanded.Body))
	if err != nil {
		report.Error = err
		return report, nil
	}
	report.Ops = ops
	return report, nil
}

func sortReadOutputs(rs []template.ReadOutput) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Path != rs[j].Path {
			return rs[i].Path < rs[j].Path
		}
		return rs[i].Key < rs[j].Key
	})
}

// Apply executes every op in plan in order, aggregating their outputs
// into the output store and symlinking phy back to virt. It stops at
// the first op to fail, recording the error on the returned
// ApplyReport; ops before the failure have already taken effect and
// their outputs are preserved in the report.
func (e *Engine) Apply(ctx context.Context, plan *PlanReport) (*ApplyReport, error) {
	report := &ApplyReport{
		ConnectorShortname: plan.ConnectorShortname,
		Prefix:             plan.Prefix,
		VirtAddr:           plan.VirtAddr,
		PhyAddr:            plan.PhyAddr,
	}
	if err := e.checkSafetyLock(); err != nil {
		report.Error = err
		return report, nil
	}
	if plan.Deferred() {
		report.Error = taxonomy.New(taxonomy.Deferred, "plan for %s is deferred pending missing outputs", plan.VirtAddr)
		return report, nil
	}

	binding := config.Connector{Shortname: plan.ConnectorShortname, Spec: plan.ConnectorSpec, Env: plan.ConnectorEnv}
	conn, err := e.getOrSpawn(ctx, plan.Prefix, binding)
	if err != nil {
		return nil, fmt.Errorf("spawning connector %s/%s: %w", plan.Prefix, plan.ConnectorShortname, err)
	}

	merged := outputs.Map{}
	for _, op := range plan.Ops {
		out, err := conn.OpExec(ctx, plan.VirtAddr, op.Op)
		if err != nil {
			report.Error = err
			break
		}
		report.Outputs = append(report.Outputs, out)
		for k, v := range out.Outputs {
			merged[k] = v
		}
	}

	if len(merged) > 0 {
		outPath, err := e.Outputs.WriteVirtOutput(plan.Prefix, plan.VirtAddr, merged, true)
		if err != nil {
			if report.Error == nil {
				report.Error = err
			}
		} else if outPath != "" {
			report.WroteFiles = append(report.WroteFiles, outPath)
		}
	}

	if plan.PhyAddr != "" && plan.PhyAddr != plan.VirtAddr {
		linkPath, err := e.Outputs.LinkPhyOutput(plan.Prefix, plan.VirtAddr, plan.PhyAddr)
		if err != nil {
			if report.Error == nil {
				report.Error = err
			}
		} else if linkPath != "" {
			report.WroteFiles = append(report.WroteFiles, linkPath)
		}
	}

	return report, nil
}

// ImportMessage streams ImportAll's progress to a caller so a CLI or
// server collaborator can render it incrementally instead of blocking
// silently until the whole prefix has been walked.
type ImportMessage struct {
	Prefix   string
	VirtAddr string
	Kind     ImportMessageKind
}

type ImportMessageKind int

const (
	ImportSkipExisting ImportMessageKind = iota
	ImportStartGet
	ImportGetSuccess
)

// ImportAll enumerates every resource each of a prefix's connectors
// lists in its Subpaths and writes its current state to the repo at its preferred
// virt address, refusing to clobber an existing file unless overwrite
// is set. Progress is streamed on messages, which ImportAll closes when
// done; the caller must drain it to avoid blocking the import.
func (e *Engine) ImportAll(ctx context.Context, prefix string, overwrite bool, messages chan<- ImportMessage) error {
	defer close(messages)

	bindings, err := e.connectorsFor(prefix)
	if err != nil {
		return err
	}

	for _, binding := range bindings {
		conn, err := e.getOrSpawn(ctx, prefix, binding)
		if err != nil {
			return fmt.Errorf("spawning connector %s/%s: %w", prefix, binding.Shortname, err)
		}

		phyAddrs, err := conn.Subpaths(ctx)
		if err != nil {
			return fmt.Errorf("listing subpaths for %s/%s: %w", prefix, binding.Shortname, err)
		}
		if len(phyAddrs) == 0 {
			phyAddrs, err = conn.List(ctx, "")
			if err != nil {
				return fmt.Errorf("listing %s/%s: %w", prefix, binding.Shortname, err)
			}
		}

		for _, phy := range phyAddrs {
			virt, ok, err := conn.AddrPhyToVirt(ctx, phy)
			if err != nil {
				return fmt.Errorf("resolving phy→virt for %s in %s/%s: %w", phy, prefix, binding.Shortname, err)
			}
			if !ok {
				virt = phy
			}

			target := resourcePath(prefix, virt)
			exists, err := afero.Exists(e.FS, target)
			if err != nil {
				return err
			}
			if exists && !overwrite {
				messages <- ImportMessage{Prefix: prefix, VirtAddr: virt, Kind: ImportSkipExisting}
				continue
			}

			messages <- ImportMessage{Prefix: prefix, VirtAddr: virt, Kind: ImportStartGet}
			out, err := conn.Get(ctx, phy)
			if err != nil {
				return fmt.Errorf("getting %s in %s/%s: %w", phy, prefix, binding.Shortname, err)
			}
			if out == nil {
				continue
			}

			if err := e.FS.MkdirAll(dirOf(target), 0o755); err != nil {
				return taxonomy.Wrap(taxonomy.IO, err, "creating directory for %s", target)
			}
			if err := afero.WriteFile(e.FS, target, out.Bytes, 0o644); err != nil {
				return taxonomy.Wrap(taxonomy.IO, err, "writing imported resource %s", target)
			}
			if phy != virt {
				if _, err := e.Outputs.LinkPhyOutput(prefix, virt, phy); err != nil {
					return err
				}
			}
			messages <- ImportMessage{Prefix: prefix, VirtAddr: virt, Kind: ImportGetSuccess}
		}
	}
	return nil
}

func dirOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}

// Unbundle decomposes path via its owning Bundle connector, writing the
// resulting elements to disk beside it. Returns the written file paths,
// or nil if no connector claims path as a Bundle.
func (e *Engine) Unbundle(ctx context.Context, path string) ([]string, error) {
	prefix, virtAddr, err := e.splitAddr(path)
	if err != nil {
		return nil, err
	}
	match, err := e.firstMatching(ctx, prefix, virtAddr, connector.FilterBundle)
	if err != nil || match == nil {
		return nil, err
	}

	body, err := afero.ReadFile(e.FS, path)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.IO, err, "reading bundle %s", path)
	}
	elements, err := match.conn.Unbundle(ctx, virtAddr, body)
	if err != nil {
		return nil, err
	}

	dir := dirOf(path)
	written := make([]string, 0, len(elements))
	for _, el := range elements {
		out := dir + "/" + el.Filename
		if err := e.FS.MkdirAll(dirOf(out), 0o755); err != nil {
			return written, taxonomy.Wrap(taxonomy.IO, err, "creating directory for %s", out)
		}
		if err := afero.WriteFile(e.FS, out, el.Contents, 0o644); err != nil {
			return written, taxonomy.Wrap(taxonomy.IO, err, "writing %s", out)
		}
		written = append(written, out)
	}
	return written, nil
}

// Rename moves a resource's committed file and output map from oldPath
// to newPath, which must lie in the same prefix, and rewrites the
// connector's phy→virt symlink to point at the new virt address. It
// refuses to rename an address whose virt→phy mapping is not currently
// Present: a deferred or absent mapping has nothing consistent to move.
func (e *Engine) Rename(ctx context.Context, oldPath, newPath string) error {
	oldPrefix, oldVirt, err := e.splitAddr(oldPath)
	if err != nil {
		return err
	}
	newPrefix, newVirt, err := e.splitAddr(newPath)
	if err != nil {
		return err
	}
	if oldPrefix != newPrefix {
		return taxonomy.New(taxonomy.InvalidAddress, "rename %s -> %s crosses prefixes %q -> %q", oldPath, newPath, oldPrefix, newPrefix)
	}

	match, err := e.firstMatching(ctx, oldPrefix, oldVirt, connector.FilterResource)
	if err != nil {
		return err
	}
	if match == nil {
		return taxonomy.New(taxonomy.InvalidAddress, "no connector claims %s as a resource", oldPath)
	}

	res, err := match.conn.AddrVirtToPhy(ctx, oldVirt)
	if err != nil {
		return err
	}
	if res.Kind != connector.VirtToPhyPresent {
		return taxonomy.New(taxonomy.InvalidAddress, "rename requires a resolved (Present) address, got %v for %s", res.Kind, oldPath)
	}
	phy := res.Phy

	oldOutputs, hadOutputs, err := e.Outputs.ReadRecurse(oldPrefix, oldVirt)
	if err != nil {
		return err
	}

	if hadOutputs {
		asMap := make(outputs.Map, len(oldOutputs))
		for k, v := range oldOutputs {
			v := v
			asMap[k] = &v
		}
		if _, err := e.Outputs.WriteVirtOutput(newPrefix, newVirt, asMap, true); err != nil {
			return err
		}
	}
	if _, err := e.Outputs.UnlinkPhyOutput(oldPrefix, phy); err != nil {
		return err
	}
	if _, err := e.Outputs.LinkPhyOutput(newPrefix, newVirt, phy); err != nil {
		return err
	}

	oldResourcePath := resourcePath(oldPrefix, oldVirt)
	newResourcePath := resourcePath(newPrefix, newVirt)
	body, err := afero.ReadFile(e.FS, oldResourcePath)
	if err != nil {
		return taxonomy.Wrap(taxonomy.IO, err, "reading resource body %s", oldResourcePath)
	}
	if err := e.FS.MkdirAll(dirOf(newResourcePath), 0o755); err != nil {
		return taxonomy.Wrap(taxonomy.IO, err, "creating directory for %s", newResourcePath)
	}
	if err := afero.WriteFile(e.FS, newResourcePath, body, 0o644); err != nil {
		return taxonomy.Wrap(taxonomy.IO, err, "writing resource body %s", newResourcePath)
	}
	if err := e.FS.Remove(oldResourcePath); err != nil {
		return taxonomy.Wrap(taxonomy.IO, err, "removing renamed resource body %s", oldResourcePath)
	}

	e.Cache.InvalidateFilter(oldPrefix, match.binding.Shortname, oldVirt)
	return nil
}

// GetSkeletons spawns the named connector binding within prefix and
// returns its starter-file skeletons.
func (e *Engine) GetSkeletons(ctx context.Context, prefix, shortname string) ([]connector.SkeletonOutput, error) {
	bindings, err := e.connectorsFor(prefix)
	if err != nil {
		return nil, err
	}
	for _, binding := range bindings {
		if binding.Shortname != shortname {
			continue
		}
		conn, err := e.getOrSpawn(ctx, prefix, binding)
		if err != nil {
			return nil, err
		}
		return conn.GetSkeletons(ctx)
	}
	return nil, taxonomy.New(taxonomy.Configuration, "prefix %q has no connector named %q", prefix, shortname)
}

// GetDocstring returns the first claiming connector's documentation for
// ident inside path's body, or nil if no connector claims path.
func (e *Engine) GetDocstring(ctx context.Context, path string, ident connector.DocIdent) (*connector.GetDocOutput, error) {
	prefix, virtAddr, err := e.splitAddr(path)
	if err != nil {
		return nil, err
	}
	bindings, err := e.connectorsFor(prefix)
	if err != nil {
		return nil, err
	}
	for _, binding := range bindings {
		conn, err := e.getOrSpawn(ctx, prefix, binding)
		if err != nil {
			return nil, err
		}
		resp, err := e.Cache.FilterCached(ctx, conn, binding.Shortname, prefix, virtAddr)
		if err != nil {
			return nil, err
		}
		if resp == connector.FilterNone {
			continue
		}
		return conn.GetDocstring(ctx, virtAddr, ident)
	}
	return nil, nil
}

// List returns the subpath listing from the connector bound to
// shortname within prefix.
func (e *Engine) List(ctx context.Context, prefix, shortname, subpath string) ([]string, error) {
	bindings, err := e.connectorsFor(prefix)
	if err != nil {
		return nil, err
	}
	for _, binding := range bindings {
		if binding.Shortname != shortname {
			continue
		}
		conn, err := e.getOrSpawn(ctx, prefix, binding)
		if err != nil {
			return nil, err
		}
		return conn.List(ctx, subpath)
	}
	return nil, taxonomy.New(taxonomy.Configuration, "prefix %q has no connector named %q", prefix, shortname)
}

// PlanAll plans every file under prefix matching filterGlob, skipping
// paths no connector claims. Non-claiming paths are silently omitted
// rather than erroring, since not every file in a prefix need be a
// resource (e.g. the bundle files a Bundle connector owns).
func (e *Engine) PlanAll(ctx context.Context, prefix, filterGlob string, candidates []string) (PlanReportSet, error) {
	var reports []PlanReport
	var errs *multierror.Error
	for _, c := range candidates {
		if filterGlob != "" && !addrs.MatchesFilter(c, filterGlob) {
			continue
		}
		report, err := e.Plan(ctx, resourcePath(prefix, c))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("planning %s: %w", c, err))
			continue
		}
		if report == nil {
			continue
		}
		reports = append(reports, *report)
	}
	return NewPlanReportSet(reports), errs.ErrorOrNil()
}

// ApplyAll applies every report in set that isn't already deferred or
// failed, aggregating the result into an ApplyReportSet.
func (e *Engine) ApplyAll(ctx context.Context, set PlanReportSet) (ApplyReportSet, error) {
	var reports []ApplyReport
	for i := range set.PlanReports {
		plan := set.PlanReports[i]
		if plan.Error != nil || plan.Deferred() {
			continue
		}
		report, err := e.Apply(ctx, &plan)
		if err != nil {
			return ApplyReportSet{}, err
		}
		reports = append(reports, *report)
	}
	return NewApplyReportSet(reports), nil
}

// AsBundleConnector is a convenience used by ImportAll/Unbundle callers
// that hold a raw bundle.Bundle rather than a full connector.Connector.
func AsBundleConnector(b bundle.Bundle) connector.Connector {
	return bundle.AsConnector(b)
}

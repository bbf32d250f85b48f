// Package workflow implements the workflow engine: the orchestrations
// that compose the address, output-store, template, and connector
// layers into filter, get, check_drift, plan, apply, import_all,
// unbundle, rename, get_skeletons, get_docstring, and list.
package workflow

import (
	"github.com/autoschematic-sh/autoschematic/internal/config"
	"github.com/autoschematic-sh/autoschematic/internal/connector"
	"github.com/autoschematic-sh/autoschematic/internal/template"
)

// PlanReport is the outcome of planning one (prefix, virt_addr) pair
// against its claiming connector.
type PlanReport struct {
	Prefix             string
	ConnectorShortname string
	ConnectorSpec      config.Spec
	ConnectorEnv       map[string]string
	VirtAddr           string
	// PhyAddr is the resolved phy address whenever virt→phy resolution
	// produced one, including when it equals VirtAddr; it is empty for a
	// Deferred or NotPresent address.
	PhyAddr string
	Ops     []connector.OpPlanOutput
	Reads   []template.ReadOutput

	// MissingOutputs are out://... placeholders in the resource body
	// itself that could not be resolved, kept separate from
	// MissingForAddrResolution below since the two are filled in from
	// different sources and surfaced independently to callers.
	MissingOutputs []template.ReadOutput
	// MissingForAddrResolution are the Reads the connector reported on
	// a Deferred addr_virt_to_phy result — outputs needed to resolve
	// the phy address in the first place, not to fill in the body.
	MissingForAddrResolution []connector.Output

	Error error
}

// Deferred is true when this plan could not run an op because some
// output it needs is not yet available, either to template the body or
// to resolve its phy address.
func (r *PlanReport) Deferred() bool {
	return len(r.MissingOutputs) > 0 || len(r.MissingForAddrResolution) > 0
}

// PlanReportSet aggregates PlanReports across every addr planned in one
// pass.
type PlanReportSet struct {
	OverallSuccess         bool
	ApplySuccess           bool
	PlanReports            []PlanReport
	DeferredCount          int
	ObjectCount            int
	DeferredPendingOutputs map[template.ReadOutput]bool
}

// NewPlanReportSet folds the accounting fields (DeferredCount,
// ObjectCount, DeferredPendingOutputs, OverallSuccess) from a slice of
// already-computed PlanReports.
func NewPlanReportSet(reports []PlanReport) PlanReportSet {
	set := PlanReportSet{
		PlanReports:            reports,
		DeferredPendingOutputs: make(map[template.ReadOutput]bool),
		OverallSuccess:         true,
	}
	for _, r := range reports {
		set.ObjectCount++
		if r.Error != nil {
			set.OverallSuccess = false
			continue
		}
		if r.Deferred() {
			set.DeferredCount++
			for _, m := range r.MissingOutputs {
				set.DeferredPendingOutputs[m] = true
			}
		}
	}
	return set
}

// ApplyReport is the outcome of executing every op in a PlanReport.
type ApplyReport struct {
	ConnectorShortname string
	Prefix             string
	VirtAddr           string
	PhyAddr            string
	Outputs            []connector.OpExecOutput
	WroteFiles         []string
	Error              error
}

// ApplyReportSet aggregates ApplyReports across every addr applied in
// one pass.
type ApplyReportSet struct {
	OverallSuccess bool
	ApplyReports   []ApplyReport
	Error          error
}

// NewApplyReportSet folds OverallSuccess from a slice of ApplyReports.
func NewApplyReportSet(reports []ApplyReport) ApplyReportSet {
	set := ApplyReportSet{ApplyReports: reports, OverallSuccess: true}
	for _, r := range reports {
		if r.Error != nil {
			set.OverallSuccess = false
		}
	}
	return set
}

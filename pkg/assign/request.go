package assign

import (
	"github.com/yahsan2/enrollctl/pkg/validate"
)

// AssignParams is everything collected by the wizard for a bulk assignment
type AssignParams struct {
	InstituteID string
	UserIDs     []string
	Targets     []Target
	Configs     map[string]*ItemConfig
	Options     AssignOptions
}

// BuildAssignRequest builds the bulk assign body. Preview and confirm both go
// through here so that the two requests differ only in options.dry_run.
func BuildAssignRequest(p AssignParams, dryRun bool) (*BulkAssignRequest, error) {
	req := &BulkAssignRequest{
		InstituteID: p.InstituteID,
		UserIDs:     append([]string(nil), p.UserIDs...),
		Assignments: make([]Assignment, 0, len(p.Targets)),
		Options:     p.Options,
	}
	req.Options.DryRun = dryRun

	for _, t := range p.Targets {
		req.Assignments = append(req.Assignments, buildAssignment(t.PackageSessionID, p.Configs[t.PackageSessionID]))
	}

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

func buildAssignment(packageSessionID string, cfg *ItemConfig) Assignment {
	a := Assignment{PackageSessionID: packageSessionID}
	if cfg == nil {
		return a
	}

	if cfg.AccessDaysOverride != nil {
		days := *cfg.AccessDaysOverride
		a.AccessDays = &days
	}

	if cfg.IsAutoMode || cfg.SelectedInvite == nil {
		return a
	}

	a.EnrollInviteID = stringPtr(cfg.SelectedInvite.ID)
	if cfg.ResolvedPaymentOption != nil {
		a.PaymentOptionID = stringPtr(cfg.ResolvedPaymentOption.ID)
	}
	if cfg.ResolvedPaymentPlan != nil {
		a.PlanID = stringPtr(cfg.ResolvedPaymentPlan.ID)
	}
	return a
}

// WithDryRun returns a copy of the request with options.dry_run set
func (r *BulkAssignRequest) WithDryRun(dryRun bool) *BulkAssignRequest {
	out := *r
	out.UserIDs = append([]string(nil), r.UserIDs...)
	out.Assignments = make([]Assignment, len(r.Assignments))
	for i, a := range r.Assignments {
		out.Assignments[i] = a.clone()
	}
	out.Options.DryRun = dryRun
	return &out
}

func (a Assignment) clone() Assignment {
	out := a
	if a.EnrollInviteID != nil {
		out.EnrollInviteID = stringPtr(*a.EnrollInviteID)
	}
	if a.PaymentOptionID != nil {
		out.PaymentOptionID = stringPtr(*a.PaymentOptionID)
	}
	if a.PlanID != nil {
		out.PlanID = stringPtr(*a.PlanID)
	}
	if a.AccessDays != nil {
		days := *a.AccessDays
		out.AccessDays = &days
	}
	return out
}

// DeassignParams is everything collected by the wizard for a bulk de-assignment
type DeassignParams struct {
	InstituteID string
	UserIDs     []string
	Targets     []Target
	Options     DeassignOptions
}

// BuildDeassignRequest builds the bulk de-assign body
func BuildDeassignRequest(p DeassignParams, dryRun bool) (*BulkDeassignRequest, error) {
	req := &BulkDeassignRequest{
		InstituteID:       p.InstituteID,
		UserIDs:           append([]string(nil), p.UserIDs...),
		PackageSessionIDs: make([]string, 0, len(p.Targets)),
		Options:           p.Options,
	}
	req.Options.DryRun = dryRun

	for _, t := range p.Targets {
		req.PackageSessionIDs = append(req.PackageSessionIDs, t.PackageSessionID)
	}

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

// WithDryRun returns a copy of the request with options.dry_run set
func (r *BulkDeassignRequest) WithDryRun(dryRun bool) *BulkDeassignRequest {
	out := *r
	out.UserIDs = append([]string(nil), r.UserIDs...)
	out.PackageSessionIDs = append([]string(nil), r.PackageSessionIDs...)
	out.Options.DryRun = dryRun
	return &out
}

func stringPtr(s string) *string {
	return &s
}

package assign

import (
	"strings"

	"github.com/yahsan2/enrollctl/pkg/invite"
)

// DuplicateHandling tells the server what to do with existing enrollments
type DuplicateHandling string

const (
	DuplicateSkip     DuplicateHandling = "SKIP"
	DuplicateReEnroll DuplicateHandling = "RE_ENROLL"
	DuplicateError    DuplicateHandling = "ERROR"
)

// DeassignMode selects soft (access revoked) or hard (record removed) removal
type DeassignMode string

const (
	DeassignSoft DeassignMode = "SOFT"
	DeassignHard DeassignMode = "HARD"
)

// Target is a selectable course / package-session combination
type Target struct {
	PackageSessionID string `json:"package_session_id"`
	CourseName       string `json:"course_name"`
	LevelName        string `json:"level_name,omitempty"`
	SessionName      string `json:"session_name,omitempty"`
	Status           string `json:"status,omitempty"`
}

// Label returns "course · level · session", skipping empty parts
func (t Target) Label() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.CourseName, t.LevelName, t.SessionName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return t.PackageSessionID
	}
	return strings.Join(parts, " · ")
}

// ItemConfig is the per-target configuration collected before submission
type ItemConfig struct {
	PackageSessionID      string
	IsAutoMode            bool
	SelectedInvite        *invite.Summary
	ResolvedPaymentOption *invite.PaymentOption
	ResolvedPaymentPlan   *invite.PaymentPlan
	AccessDaysOverride    *int
}

// NewItemConfig returns an auto-mode config for a target
func NewItemConfig(packageSessionID string) *ItemConfig {
	return &ItemConfig{
		PackageSessionID: packageSessionID,
		IsAutoMode:       true,
	}
}

// Clone returns a deep copy of the config
func (c *ItemConfig) Clone() *ItemConfig {
	out := *c
	if c.SelectedInvite != nil {
		s := *c.SelectedInvite
		out.SelectedInvite = &s
	}
	if c.ResolvedPaymentOption != nil {
		o := *c.ResolvedPaymentOption
		o.PaymentPlans = append([]invite.PaymentPlan(nil), c.ResolvedPaymentOption.PaymentPlans...)
		out.ResolvedPaymentOption = &o
	}
	if c.ResolvedPaymentPlan != nil {
		p := *c.ResolvedPaymentPlan
		out.ResolvedPaymentPlan = &p
	}
	if c.AccessDaysOverride != nil {
		d := *c.AccessDaysOverride
		out.AccessDaysOverride = &d
	}
	return &out
}

// Unresolved reports an explicit invite without a payment option for the target
func (c *ItemConfig) Unresolved() bool {
	return !c.IsAutoMode && c.SelectedInvite != nil && c.ResolvedPaymentOption == nil
}

// Describe summarizes the config for display
func (c *ItemConfig) Describe() string {
	if c.IsAutoMode || c.SelectedInvite == nil {
		return "auto (default invite)"
	}

	desc := "invite " + c.SelectedInvite.Label()
	switch {
	case c.ResolvedPaymentOption == nil:
		desc += ", payment unresolved"
	case c.ResolvedPaymentPlan == nil:
		desc += ", " + c.ResolvedPaymentOption.Name + " (no active plan)"
	default:
		desc += ", " + c.ResolvedPaymentOption.Name + " / " + c.ResolvedPaymentPlan.Name + " " + c.ResolvedPaymentPlan.Price()
	}
	return desc
}

// AssignOptions controls bulk assignment behaviour
type AssignOptions struct {
	DuplicateHandling DuplicateHandling `json:"duplicate_handling" validate:"required,oneof=SKIP RE_ENROLL ERROR"`
	NotifyLearners    bool              `json:"notify_learners"`
	DryRun            bool              `json:"dry_run"`
}

// Assignment is one target within a bulk assign request
type Assignment struct {
	PackageSessionID string  `json:"package_session_id" validate:"notblank"`
	EnrollInviteID   *string `json:"enroll_invite_id"`
	PaymentOptionID  *string `json:"payment_option_id"`
	PlanID           *string `json:"plan_id"`
	AccessDays       *int    `json:"access_days" validate:"omitempty,gt=0"`
}

// BulkAssignRequest is the body of the bulk assign endpoint
type BulkAssignRequest struct {
	InstituteID string        `json:"institute_id" validate:"notblank"`
	UserIDs     []string      `json:"user_ids" validate:"required,min=1,unique,dive,notblank"`
	Assignments []Assignment  `json:"assignments" validate:"required,min=1,dive"`
	Options     AssignOptions `json:"options"`
}

// DeassignOptions controls bulk de-assignment behaviour
type DeassignOptions struct {
	Mode           DeassignMode `json:"mode" validate:"required,oneof=SOFT HARD"`
	NotifyLearners bool         `json:"notify_learners"`
	DryRun         bool         `json:"dry_run"`
}

// BulkDeassignRequest is the body of the bulk de-assign endpoint
type BulkDeassignRequest struct {
	InstituteID       string          `json:"institute_id" validate:"notblank"`
	UserIDs           []string        `json:"user_ids" validate:"required,min=1,unique,dive,notblank"`
	PackageSessionIDs []string        `json:"package_session_ids" validate:"required,min=1,unique,dive,notblank"`
	Options           DeassignOptions `json:"options"`
}

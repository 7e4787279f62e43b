package assign

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"

	"github.com/yahsan2/enrollctl/pkg/invite"
	"github.com/yahsan2/enrollctl/pkg/logging"
)

// InviteDetailSource fetches a single invite with its payment options
type InviteDetailSource interface {
	GetInvite(ctx context.Context, inviteID string) (*invite.Detail, error)
}

// Configurator resolves explicit invite choices into payment option and plan
type Configurator struct {
	source InviteDetailSource
}

// NewConfigurator creates a configurator backed by source
func NewConfigurator(source InviteDetailSource) *Configurator {
	return &Configurator{source: source}
}

// SelectInvite switches cfg to the explicit invite and resolves the payment
// option and plan for cfg's target. A missing match leaves them nil. When
// the detail fetch fails cfg is left untouched.
func (c *Configurator) SelectInvite(ctx context.Context, cfg *ItemConfig, summary invite.Summary) error {
	detail, err := c.source.GetInvite(ctx, summary.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch invite detail",
			goerr.V("invite_id", summary.ID),
			goerr.V("package_session_id", cfg.PackageSessionID))
	}

	c.apply(ctx, cfg, summary, detail)
	return nil
}

// SelectInviteByID is SelectInvite for callers that only know the invite id
func (c *Configurator) SelectInviteByID(ctx context.Context, cfg *ItemConfig, inviteID string) error {
	detail, err := c.source.GetInvite(ctx, inviteID)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch invite detail",
			goerr.V("invite_id", inviteID),
			goerr.V("package_session_id", cfg.PackageSessionID))
	}

	c.apply(ctx, cfg, detail.Summary(), detail)
	return nil
}

func (c *Configurator) apply(ctx context.Context, cfg *ItemConfig, summary invite.Summary, detail *invite.Detail) {
	option, plan := invite.Resolve(detail, cfg.PackageSessionID)

	selected := summary
	cfg.IsAutoMode = false
	cfg.SelectedInvite = &selected
	cfg.ResolvedPaymentOption = nil
	cfg.ResolvedPaymentPlan = nil
	if option != nil {
		o := *option
		cfg.ResolvedPaymentOption = &o
	}
	if plan != nil {
		p := *plan
		cfg.ResolvedPaymentPlan = &p
	}

	logging.From(ctx).Debug("invite selected",
		"package_session_id", cfg.PackageSessionID,
		"invite_id", summary.ID,
		"resolved", !cfg.Unresolved())
}

// SetAuto switches cfg back to auto mode, clearing the explicit choice
func (c *ItemConfig) SetAuto() {
	c.IsAutoMode = true
	c.SelectedInvite = nil
	c.ResolvedPaymentOption = nil
	c.ResolvedPaymentPlan = nil
}

// SetAccessDays sets or clears (nil) the access-days override
func (c *ItemConfig) SetAccessDays(days *int) error {
	if days == nil {
		c.AccessDaysOverride = nil
		return nil
	}
	if *days <= 0 {
		return fmt.Errorf("access days must be positive, got %d", *days)
	}
	d := *days
	c.AccessDaysOverride = &d
	return nil
}

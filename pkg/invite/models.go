package invite

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"

	// TagDefault marks the plan preselected for a payment option
	TagDefault = "DEFAULT"
)

// Summary is one row of the invite listing
type Summary struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	InviteCode        string   `json:"invite_code"`
	Status            string   `json:"status"`
	PackageSessionIDs []string `json:"package_session_ids,omitempty"`
}

// Label returns a display label for the invite
func (s Summary) Label() string {
	if s.InviteCode == "" {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.InviteCode)
}

// Filter selects a page of invites
type Filter struct {
	PackageSessionID string `json:"package_session_id"`
	Search           string `json:"search,omitempty"`
	Page             int    `json:"page"`
	Size             int    `json:"size"`
}

// Page is one page of invite search results
type Page struct {
	Content       []Summary `json:"content"`
	Page          int       `json:"page"`
	Size          int       `json:"size"`
	TotalElements int64     `json:"total_elements"`
	TotalPages    int       `json:"total_pages"`
	Last          bool      `json:"last"`
}

// Detail is the full invite, including the payment options per package session
type Detail struct {
	ID                             string                 `json:"id"`
	Name                           string                 `json:"name"`
	InviteCode                     string                 `json:"invite_code"`
	Status                         string                 `json:"status"`
	PackageSessionToPaymentOptions []SessionPaymentOption `json:"package_session_to_payment_options"`
}

// Summary returns the listing view of the detail
func (d *Detail) Summary() Summary {
	ids := make([]string, 0, len(d.PackageSessionToPaymentOptions))
	for _, pso := range d.PackageSessionToPaymentOptions {
		ids = append(ids, pso.PackageSessionID)
	}
	return Summary{
		ID:                d.ID,
		Name:              d.Name,
		InviteCode:        d.InviteCode,
		Status:            d.Status,
		PackageSessionIDs: ids,
	}
}

// SessionPaymentOption links a package session to a payment option
type SessionPaymentOption struct {
	ID               string        `json:"id"`
	PackageSessionID string        `json:"package_session_id"`
	Status           string        `json:"status"`
	PaymentOption    PaymentOption `json:"payment_option"`
}

// PaymentOption groups the plans a learner can pay with
type PaymentOption struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	Type         string        `json:"type"`
	PaymentPlans []PaymentPlan `json:"payment_plans"`
}

// PaymentPlan is a priced plan within a payment option
type PaymentPlan struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	Tag            string          `json:"tag,omitempty"`
	ActualPrice    decimal.Decimal `json:"actual_price"`
	ElevatedPrice  decimal.Decimal `json:"elevated_price"`
	Currency       string          `json:"currency"`
	ValidityInDays int             `json:"validity_in_days"`
}

// Price formats the plan's price, e.g. "INR 1499.00"
func (p PaymentPlan) Price() string {
	if p.ActualPrice.IsZero() {
		return "free"
	}
	return fmt.Sprintf("%s %s", p.Currency, p.ActualPrice.StringFixed(2))
}

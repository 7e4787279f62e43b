package invite

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plan(id, status, tag string) PaymentPlan {
	return PaymentPlan{
		ID:          id,
		Name:        "Plan " + id,
		Status:      status,
		Tag:         tag,
		ActualPrice: decimal.RequireFromString("1499"),
		Currency:    "INR",
	}
}

func TestResolve(t *testing.T) {
	detail := &Detail{
		ID:   "inv-1",
		Name: "Summer batch",
		PackageSessionToPaymentOptions: []SessionPaymentOption{
			{
				PackageSessionID: "ps-inactive",
				Status:           StatusInactive,
				PaymentOption: PaymentOption{
					ID:           "po-0",
					PaymentPlans: []PaymentPlan{plan("pl-0", StatusActive, TagDefault)},
				},
			},
			{
				PackageSessionID: "ps-default",
				Status:           StatusActive,
				PaymentOption: PaymentOption{
					ID: "po-1",
					PaymentPlans: []PaymentPlan{
						plan("pl-1", StatusActive, ""),
						plan("pl-2", StatusInactive, TagDefault),
						plan("pl-3", StatusActive, TagDefault),
					},
				},
			},
			{
				PackageSessionID: "ps-fallback",
				Status:           StatusActive,
				PaymentOption: PaymentOption{
					ID: "po-2",
					PaymentPlans: []PaymentPlan{
						plan("pl-4", StatusInactive, ""),
						plan("pl-5", StatusActive, ""),
						plan("pl-6", StatusActive, ""),
					},
				},
			},
			{
				PackageSessionID: "ps-noplans",
				Status:           StatusActive,
				PaymentOption: PaymentOption{
					ID:           "po-3",
					PaymentPlans: []PaymentPlan{plan("pl-7", StatusInactive, TagDefault)},
				},
			},
		},
	}

	tests := []struct {
		name       string
		target     string
		wantOption string
		wantPlan   string
	}{
		{name: "default tagged active plan", target: "ps-default", wantOption: "po-1", wantPlan: "pl-3"},
		{name: "first active plan fallback", target: "ps-fallback", wantOption: "po-2", wantPlan: "pl-5"},
		{name: "option without active plans", target: "ps-noplans", wantOption: "po-3"},
		{name: "inactive mapping ignored", target: "ps-inactive"},
		{name: "unknown target", target: "ps-missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			option, p := Resolve(detail, tt.target)

			if tt.wantOption == "" {
				assert.Nil(t, option)
			} else {
				require.NotNil(t, option)
				assert.Equal(t, tt.wantOption, option.ID)
			}

			if tt.wantPlan == "" {
				assert.Nil(t, p)
			} else {
				require.NotNil(t, p)
				assert.Equal(t, tt.wantPlan, p.ID)
			}
		})
	}
}

func TestResolve_NilDetail(t *testing.T) {
	option, p := Resolve(nil, "ps-1")
	assert.Nil(t, option)
	assert.Nil(t, p)
}

func TestPaymentPlanPrice(t *testing.T) {
	assert.Equal(t, "INR 1499.00", plan("x", StatusActive, "").Price())
	assert.Equal(t, "free", PaymentPlan{}.Price())
}

func TestSummaryLabel(t *testing.T) {
	assert.Equal(t, "Summer (SUM24)", Summary{Name: "Summer", InviteCode: "SUM24"}.Label())
	assert.Equal(t, "Summer", Summary{Name: "Summer"}.Label())
}

package invite

// Resolve picks the payment option an invite offers for packageSessionID and,
// within it, the active DEFAULT-tagged plan, falling back to the first active
// plan. Either result is nil when nothing matches.
func Resolve(detail *Detail, packageSessionID string) (*PaymentOption, *PaymentPlan) {
	if detail == nil {
		return nil, nil
	}

	var option *PaymentOption
	for i := range detail.PackageSessionToPaymentOptions {
		pso := &detail.PackageSessionToPaymentOptions[i]
		if pso.PackageSessionID == packageSessionID && pso.Status == StatusActive {
			option = &pso.PaymentOption
			break
		}
	}
	if option == nil {
		return nil, nil
	}

	var fallback *PaymentPlan
	for i := range option.PaymentPlans {
		plan := &option.PaymentPlans[i]
		if plan.Status != StatusActive {
			continue
		}
		if plan.Tag == TagDefault {
			return option, plan
		}
		if fallback == nil {
			fallback = plan
		}
	}

	return option, fallback
}

package workspace

// PlanLimits are soft limits for the simple, generous billing tiers.
// Free: 1 user. Starter: up to 10 users. Growth: up to 50 users.
type PlanLimits struct {
	Users    int
	Contacts int
	Deals    int
}

var planLimits = map[BillingTier]PlanLimits{
	TierFree:    {Users: 1, Contacts: 5_000, Deals: 500},
	TierStarter: {Users: 10, Contacts: 10_000, Deals: 1_000},
	TierGrowth:  {Users: 50, Contacts: 50_000, Deals: 10_000},
	// legacy; same as GROWTH
	TierPaid: {Users: 50, Contacts: 50_000, Deals: 10_000},
}

func GetPlanLimits(plan BillingTier) PlanLimits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[TierFree]
}

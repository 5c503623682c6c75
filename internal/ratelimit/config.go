package ratelimit

import "github.com/ppiankov/agentward/internal/model"

// TierLimits defines the request ceilings for one subscription tier.
type TierLimits struct {
	RequestsPerHour int64
	RequestsPerDay  int64
}

// tierTable is the fixed ceiling table. Unknown tiers fall back to free.
var tierTable = map[model.Tier]TierLimits{
	model.TierFree:       {RequestsPerHour: 1000, RequestsPerDay: 5000},
	model.TierPro:        {RequestsPerHour: 10000, RequestsPerDay: 100000},
	model.TierEnterprise: {RequestsPerHour: 100000, RequestsPerDay: 1000000},
}

// LimitsFor returns the ceilings for a tier. Unknown tiers get the
// free-tier limits.
func LimitsFor(tier model.Tier) TierLimits {
	if l, ok := tierTable[tier]; ok {
		return l
	}
	return tierTable[model.TierFree]
}

package model

import "fmt"

// SubscriptionTier is the paid level a user is billed at.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
	TierElite   SubscriptionTier = "elite"
)

// Tiers lists every tier from the smallest allowance to the largest.
var Tiers = []SubscriptionTier{TierFree, TierPremium, TierElite}

// TierLimits are the daily allowances granted by a tier.
type TierLimits struct {
	DailyCompanionMessages int `json:"daily_companion_messages"`
	DailyProfileClicks     int `json:"daily_profile_clicks"`
}

// tierLimits is the single source of truth for allowances. Adding a tier
// means adding a constant above and one row here; TestTierTableCoversEveryTier
// fails if a row is missing.
var tierLimits = map[SubscriptionTier]TierLimits{
	TierFree:    {DailyCompanionMessages: 5, DailyProfileClicks: 1},
	TierPremium: {DailyCompanionMessages: 40, DailyProfileClicks: 999999},
	TierElite:   {DailyCompanionMessages: 65, DailyProfileClicks: 999999},
}

// UnknownTierError is returned for a tier value outside the recognised set.
type UnknownTierError struct {
	Tier string
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown subscription tier %q", e.Tier)
}

// ParseTier converts a stored tier string into a SubscriptionTier.
func ParseTier(s string) (SubscriptionTier, error) {
	t := SubscriptionTier(s)
	if _, ok := tierLimits[t]; !ok {
		return "", &UnknownTierError{Tier: s}
	}
	return t, nil
}

// ResolveLimits returns the allowances for tier.
func ResolveLimits(tier SubscriptionTier) (TierLimits, error) {
	limits, ok := tierLimits[tier]
	if !ok {
		return TierLimits{}, &UnknownTierError{Tier: string(tier)}
	}
	return limits, nil
}

// Limit returns the allowance for a single action.
func (l TierLimits) Limit(action QuotaAction) int {
	switch action {
	case ActionCompanionMessage:
		return l.DailyCompanionMessages
	case ActionProfileClick:
		return l.DailyProfileClicks
	}
	return 0
}

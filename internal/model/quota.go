package model

import (
	"fmt"
	"time"
)

// WindowDuration is the length of a usage window. Windows roll from first
// use rather than aligning to calendar days.
const WindowDuration = 24 * time.Hour

// QuotaAction is a metered user action.
type QuotaAction string

const (
	ActionCompanionMessage QuotaAction = "companion_message"
	ActionProfileClick     QuotaAction = "profile_click"
)

// ParseQuotaAction validates an action name coming from a request or CLI flag.
func ParseQuotaAction(s string) (QuotaAction, error) {
	switch a := QuotaAction(s); a {
	case ActionCompanionMessage, ActionProfileClick:
		return a, nil
	}
	return "", fmt.Errorf("unknown quota action %q", s)
}

// QuotaRecord is one user's usage window. Limits are copied from the tier at
// creation and are never rewritten; a tier change shows up in the next window.
type QuotaRecord struct {
	ID                     string           `db:"id" json:"id"`
	UserID                 string           `db:"user_id" json:"user_id"`
	TierAtCreation         SubscriptionTier `db:"tier" json:"tier"`
	CompanionMessagesUsed  int              `db:"companion_messages_used" json:"companion_messages_used"`
	ProfileClicksUsed      int              `db:"profile_clicks_used" json:"profile_clicks_used"`
	CompanionMessagesLimit int              `db:"companion_messages_limit" json:"companion_messages_limit"`
	ProfileClicksLimit     int              `db:"profile_clicks_limit" json:"profile_clicks_limit"`
	WindowStart            time.Time        `db:"window_start" json:"window_start"`
	WindowEnd              time.Time        `db:"window_end" json:"window_end"`
}

// NewQuotaRecord builds a fresh window starting at now with zeroed counters.
func NewQuotaRecord(id, userID string, tier SubscriptionTier, limits TierLimits, now time.Time) *QuotaRecord {
	return &QuotaRecord{
		ID:                     id,
		UserID:                 userID,
		TierAtCreation:         tier,
		CompanionMessagesLimit: limits.DailyCompanionMessages,
		ProfileClicksLimit:     limits.DailyProfileClicks,
		WindowStart:            now,
		WindowEnd:              now.Add(WindowDuration),
	}
}

// ActiveAt reports whether the window is still open at now.
func (r *QuotaRecord) ActiveAt(now time.Time) bool {
	return r.WindowEnd.After(now)
}

// Usage returns the used counter and limit for action.
func (r *QuotaRecord) Usage(action QuotaAction) (used, limit int) {
	switch action {
	case ActionCompanionMessage:
		return r.CompanionMessagesUsed, r.CompanionMessagesLimit
	case ActionProfileClick:
		return r.ProfileClicksUsed, r.ProfileClicksLimit
	}
	return 0, 0
}

// Remaining returns how many more times action may be consumed in this window.
func (r *QuotaRecord) Remaining(action QuotaAction) int {
	used, limit := r.Usage(action)
	if used >= limit {
		return 0
	}
	return limit - used
}

package dto

import "time"

// ActionUsageDTO is the usage of one metered action inside a window
type ActionUsageDTO struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// QuotaResponseDTO describes the caller's current quota window
type QuotaResponseDTO struct {
	WindowID          string         `json:"window_id"`
	Tier              string         `json:"tier"`
	CompanionMessages ActionUsageDTO `json:"companion_messages"`
	ProfileClicks     ActionUsageDTO `json:"profile_clicks"`
	WindowStart       time.Time      `json:"window_start"`
	WindowEnd         time.Time      `json:"window_end"`
}

// QuotaExceededDTO is returned with 429 responses
type QuotaExceededDTO struct {
	Error   string    `json:"error"`
	Action  string    `json:"action"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"reset_at"`
}

// TierResponseDTO lists the allowances of one subscription tier
type TierResponseDTO struct {
	Tier                   string `json:"tier"`
	DailyCompanionMessages int    `json:"daily_companion_messages"`
	DailyProfileClicks     int    `json:"daily_profile_clicks"`
}

// ErrorResponseDTO is the body of non-quota error responses
type ErrorResponseDTO struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

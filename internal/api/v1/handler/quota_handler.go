package handler

import (
	"net/http"

	"astra/internal/api/v1/dto"
	"astra/internal/middleware"
	"astra/internal/model"
	"astra/internal/service"

	"github.com/rs/zerolog"
)

// QuotaHandler exposes the caller's usage windows and tier allowances.
type QuotaHandler struct {
	quotaSvc service.QuotaService
	logger   zerolog.Logger
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(quotaSvc service.QuotaService, logger zerolog.Logger) *QuotaHandler {
	return &QuotaHandler{quotaSvc: quotaSvc, logger: logger}
}

// RegisterRoutes registers the quota endpoints.
func (h *QuotaHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/quota", authMiddleware(http.HandlerFunc(h.GetQuota)))
	mux.Handle("/quota/profile-clicks", authMiddleware(http.HandlerFunc(h.ConsumeProfileClick)))
	mux.HandleFunc("/tiers", h.ListTiers)
}

// GetQuota godoc
// @Summary Get the current quota window
// @Description Returns the caller's active 24h window, creating it when none is active. Does not consume quota.
// @Tags quota
// @Produce json
// @Success 200 {object} dto.QuotaResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {object} dto.ErrorResponseDTO "storage unavailable"
// @Router /quota [get]
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	rec, err := h.quotaSvc.CurrentWindow(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, quotaResponse(rec))
}

// ConsumeProfileClick godoc
// @Summary Consume a profile click
// @Description Uses one profile click from the caller's current window.
// @Tags quota
// @Produce json
// @Success 200 {object} dto.QuotaResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 429 {object} dto.QuotaExceededDTO "daily limit reached"
// @Failure 503 {object} dto.ErrorResponseDTO "storage unavailable"
// @Router /quota/profile-clicks [post]
func (h *QuotaHandler) ConsumeProfileClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	rec, err := h.quotaSvc.Authorize(r.Context(), userID, model.ActionProfileClick)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, quotaResponse(rec))
}

// ListTiers godoc
// @Summary List subscription tiers
// @Description Returns the daily allowances of every subscription tier.
// @Tags quota
// @Produce json
// @Success 200 {array} dto.TierResponseDTO
// @Router /tiers [get]
func (h *QuotaHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	tiers := make([]dto.TierResponseDTO, 0, len(model.Tiers))
	for _, tier := range model.Tiers {
		limits, err := h.quotaSvc.ResolveLimits(tier)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		tiers = append(tiers, dto.TierResponseDTO{
			Tier:                   string(tier),
			DailyCompanionMessages: limits.DailyCompanionMessages,
			DailyProfileClicks:     limits.DailyProfileClicks,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, tiers)
}

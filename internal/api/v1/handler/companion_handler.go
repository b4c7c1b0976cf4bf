package handler

import (
	"encoding/json"
	"net/http"

	"astra/internal/api/v1/dto"
	"astra/internal/middleware"
	"astra/internal/model"
	"astra/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CompanionHandler serves the ASTRA companion endpoints.
type CompanionHandler struct {
	companionSvc service.CompanionService
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewCompanionHandler creates a new CompanionHandler.
func NewCompanionHandler(companionSvc service.CompanionService, v *validator.Validate, logger zerolog.Logger) *CompanionHandler {
	return &CompanionHandler{companionSvc: companionSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the companion endpoints.
func (h *CompanionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/companion/messages", authMiddleware(http.HandlerFunc(h.SendMessage)))
	mux.Handle("/companion/context", authMiddleware(http.HandlerFunc(h.PreviewContext)))
	mux.Handle("/companion/profile-refresh", authMiddleware(http.HandlerFunc(h.RefreshProfile)))
}

// SendMessage godoc
// @Summary Send a message to the companion
// @Description Consumes one companion message from the caller's window, builds the context and returns the reply.
// @Tags companion
// @Accept json
// @Produce json
// @Param message body dto.CompanionMessageRequestDTO true "Companion message"
// @Success 200 {object} dto.CompanionMessageResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 422 {object} dto.ErrorResponseDTO "astrological profile incomplete"
// @Failure 429 {object} dto.QuotaExceededDTO "daily limit reached"
// @Failure 502 {object} dto.ErrorResponseDTO "companion unavailable"
// @Failure 503 {object} dto.ErrorResponseDTO "storage unavailable"
// @Router /companion/messages [post]
func (h *CompanionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req dto.CompanionMessageRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	session, err := model.ParseSession(req.SessionType, req.Tone)
	if err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	it, err := h.companionSvc.SendMessage(r.Context(), userID, req.Message, session)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.CompanionMessageResponseDTO{
		Reply:       it.Reply,
		MemoryCount: it.Context.MemoryCount,
		TurnCount:   it.Context.TurnCount,
		Quota:       quotaResponse(it.Quota),
	})
}

// PreviewContext godoc
// @Summary Preview the companion context
// @Description Builds the context block the companion would receive without consuming quota.
// @Tags companion
// @Produce json
// @Success 200 {object} dto.CompanionContextResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 422 {object} dto.ErrorResponseDTO "astrological profile incomplete"
// @Failure 503 {object} dto.ErrorResponseDTO "storage unavailable"
// @Router /companion/context [get]
func (h *CompanionHandler) PreviewContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	block, err := h.companionSvc.PreviewContext(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.CompanionContextResponseDTO{
		Context:     block.Text,
		MemoryCount: block.MemoryCount,
		TurnCount:   block.TurnCount,
	})
}

// RefreshProfile godoc
// @Summary Refresh the cached astrological profile
// @Description Called after the caller's profile changes so the next companion context uses the new signs.
// @Tags companion
// @Success 204 "No Content"
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {object} dto.ErrorResponseDTO "storage unavailable"
// @Router /companion/profile-refresh [post]
func (h *CompanionHandler) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.companionSvc.RefreshProfile(r.Context(), userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

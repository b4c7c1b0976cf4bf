package handler

import (
	"encoding/json"
	"net/http"

	"astra/internal/api/v1/dto"
	"astra/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DLQHandler receives dead-lettered exchange events pushed by Pub/Sub.
type DLQHandler struct {
	service  service.DLQService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewDLQHandler(s service.DLQService, v *validator.Validate, l zerolog.Logger) *DLQHandler {
	return &DLQHandler{service: s, validate: v, logger: l}
}

// RegisterRoutes registers the dead-letter push endpoint.
func (h *DLQHandler) RegisterRoutes(mux *http.ServeMux, pubsubAuth func(http.Handler) http.Handler) {
	mux.Handle("/dlq", pubsubAuth(http.HandlerFunc(h.RecordDLQ)))
}

// RecordDLQ godoc
// @Summary Record a dead-lettered exchange event
// @Description Pub/Sub push endpoint for the exchange topic's dead-letter subscription.
// @Tags internal
// @Accept json
// @Param message body dto.PubSubPushRequest true "Pub/Sub push request"
// @Success 204 "recorded"
// @Failure 400 {string} string "invalid Pub/Sub message"
// @Router /dlq [post]
func (h *DLQHandler) RecordDLQ(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PubSubPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid Pub/Sub message", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "invalid Pub/Sub message: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("messageId", req.Message.MessageID).
		Str("subscription", req.Subscription).
		Msg("Processing dead-letter queue message")

	if err := h.service.ProcessAndSave(r.Context(), &req); err != nil {
		// Still 204: a non-2xx makes Pub/Sub redeliver a message that is already dead-lettered.
		h.logger.Error().Err(err).Msg("Failed to save DLQ message to database")
	}
	w.WriteHeader(http.StatusNoContent)
}

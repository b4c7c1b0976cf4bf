package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"astra/internal/api/v1/dto"
	"astra/internal/model"
	"astra/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// writeServiceError maps service errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var (
		exceeded   *service.QuotaExceededError
		emptyErr   *service.EmptyProfileError
		storageErr *service.StorageUnavailableError
		tierErr    *model.UnknownTierError
	)
	switch {
	case errors.As(err, &exceeded):
		retryAfter := int(time.Until(exceeded.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, logger, http.StatusTooManyRequests, dto.QuotaExceededDTO{
			Error:   "quota exceeded",
			Action:  string(exceeded.Action),
			Limit:   exceeded.Limit,
			ResetAt: exceeded.ResetAt,
		})
	case errors.As(err, &emptyErr):
		writeJSON(w, logger, http.StatusUnprocessableEntity, dto.ErrorResponseDTO{
			Error:   "astrological profile incomplete",
			Missing: emptyErr.Missing,
		})
	case errors.Is(err, service.ErrEmptyMessage):
		writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponseDTO{Error: err.Error()})
	case errors.As(err, &storageErr):
		logger.Error().Err(err).Msg("storage unavailable")
		writeJSON(w, logger, http.StatusServiceUnavailable, dto.ErrorResponseDTO{Error: "storage unavailable"})
	case errors.Is(err, service.ErrModelUnavailable):
		logger.Error().Err(err).Msg("companion model unavailable")
		writeJSON(w, logger, http.StatusBadGateway, dto.ErrorResponseDTO{Error: "companion unavailable"})
	case errors.As(err, &tierErr):
		logger.Error().Err(err).Msg("subscription has an unknown tier")
		writeJSON(w, logger, http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "internal server error"})
	default:
		logger.Error().Err(err).Msg("unhandled service error")
		writeJSON(w, logger, http.StatusInternalServerError, dto.ErrorResponseDTO{Error: "internal server error"})
	}
}

func quotaResponse(rec *model.QuotaRecord) dto.QuotaResponseDTO {
	usage := func(action model.QuotaAction) dto.ActionUsageDTO {
		used, limit := rec.Usage(action)
		return dto.ActionUsageDTO{Used: used, Limit: limit, Remaining: rec.Remaining(action)}
	}
	return dto.QuotaResponseDTO{
		WindowID:          rec.ID,
		Tier:              string(rec.TierAtCreation),
		CompanionMessages: usage(model.ActionCompanionMessage),
		ProfileClicks:     usage(model.ActionProfileClick),
		WindowStart:       rec.WindowStart,
		WindowEnd:         rec.WindowEnd,
	}
}

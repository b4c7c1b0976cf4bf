package service

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"astra/internal/api/v1/dto"
	"astra/internal/model"
	"astra/internal/repository"

	"github.com/rs/zerolog"
)

// DLQService records exchange events that Pub/Sub dead-lettered.
type DLQService interface {
	ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error
	// Pending lists unprocessed dead letters for replay, oldest first.
	Pending(ctx context.Context, limit int) ([]model.DeadLetterMessage, error)
}

// DefaultPendingLimit caps Pending when no limit is given.
const DefaultPendingLimit = 50

type dlqService struct {
	repo   repository.DLQRepository
	logger zerolog.Logger
}

func NewDLQService(repo repository.DLQRepository, logger zerolog.Logger) DLQService {
	return &dlqService{repo: repo, logger: logger.With().Str("service", "DLQService").Logger()}
}

func (s *dlqService) ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error {
	decoded, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		// Keep the raw data rather than lose the message.
		decoded = []byte(req.Message.Data)
	}

	var attributes *string
	if len(req.Message.Attributes) > 0 {
		if b, err := json.Marshal(req.Message.Attributes); err == nil {
			attr := string(b)
			attributes = &attr
		}
	}

	msg := &model.DeadLetterMessage{
		SubscriptionName: req.Subscription,
		MessageID:        req.Message.MessageID,
		Payload:          string(decoded),
		Attributes:       attributes,
		Status:           model.DeadLetterStatusUnprocessed,
	}
	var ev model.ExchangeEvent
	if err := json.Unmarshal(decoded, &ev); err == nil {
		msg.UserID = ev.UserID
	} else {
		s.logger.Warn().Str("message_id", msg.MessageID).Msg("Dead-lettered payload is not an exchange event")
	}

	return s.repo.Create(ctx, msg)
}

func (s *dlqService) Pending(ctx context.Context, limit int) ([]model.DeadLetterMessage, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	msgs, err := s.repo.ListUnprocessed(ctx, limit)
	if err != nil {
		return nil, &StorageUnavailableError{Op: "list dead letters", Err: err}
	}
	return msgs, nil
}

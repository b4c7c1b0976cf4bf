package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"astra/internal/model"
	"astra/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyMessage is returned when a companion message has no text.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrModelUnavailable wraps failures of the model call.
	ErrModelUnavailable = errors.New("companion model unavailable")
)

// InteractionState is the stage a companion request has reached.
type InteractionState string

const (
	StatePending      InteractionState = "pending"
	StateAuthorizing  InteractionState = "authorizing"
	StateContextBuild InteractionState = "context_build"
	StateReady        InteractionState = "ready"
	StateDenied       InteractionState = "denied"
)

// Interaction carries one companion request through authorization and context
// assembly. Reply is set once the model has answered.
type Interaction struct {
	UserID   string
	State    InteractionState
	Quota    *model.QuotaRecord
	Context  model.ContextBlock
	Memories []model.MemoryEntry
	History  []model.ConversationTurn
	Session  model.Session
	ResetAt  time.Time
	Reply    string
}

// CompanionConfig bounds the inputs loaded for a context.
type CompanionConfig struct {
	MemoryLimit      int
	MemoryFetchLimit int
	RecentTurns      int
}

// CompanionService runs companion interactions end to end.
type CompanionService interface {
	// Prepare authorizes one companion message and assembles its context. On
	// refusal the returned interaction is in StateDenied alongside a *QuotaExceededError.
	Prepare(ctx context.Context, userID string) (*Interaction, error)
	// SendMessage prepares an interaction, calls the model and stores the exchange.
	// An empty session takes model.DefaultSession.
	SendMessage(ctx context.Context, userID, message string, session model.Session) (*Interaction, error)
	// PreviewContext builds the context block without consuming quota.
	PreviewContext(ctx context.Context, userID string) (model.ContextBlock, error)
	// RefreshProfile forgets any cached profile snapshot so the next context
	// reflects the stored profile.
	RefreshProfile(ctx context.Context, userID string) error
}

type companionService struct {
	quota     QuotaService
	profiles  repository.ProfileRepository
	memories  repository.MemoryRepository
	turns     repository.ConversationRepository
	model     ModelClient
	refs      MemoryReferenceQueue
	exchanges ExchangePublisher
	builder   ContextBuilder
	cfg       CompanionConfig
	now       func() time.Time
	logger    zerolog.Logger
}

// NewCompanionService wires the companion collaborators. refs and exchanges may
// be nil. A nil modelClient limits the service to Prepare and PreviewContext.
func NewCompanionService(
	quota QuotaService,
	profiles repository.ProfileRepository,
	memories repository.MemoryRepository,
	turns repository.ConversationRepository,
	modelClient ModelClient,
	refs MemoryReferenceQueue,
	exchanges ExchangePublisher,
	cfg CompanionConfig,
	logger zerolog.Logger,
) CompanionService {
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = DefaultMemoryLimit
	}
	if cfg.MemoryFetchLimit < cfg.MemoryLimit {
		cfg.MemoryFetchLimit = cfg.MemoryLimit
	}
	if cfg.RecentTurns <= 0 {
		cfg.RecentTurns = 10
	}
	return &companionService{
		quota:     quota,
		profiles:  profiles,
		memories:  memories,
		turns:     turns,
		model:     modelClient,
		refs:      refs,
		exchanges: exchanges,
		builder:   ContextBuilder{MemoryLimit: cfg.MemoryLimit},
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With().Str("service", "CompanionService").Logger(),
	}
}

type companionInputs struct {
	profile  *model.Profile
	memories []model.MemoryEntry
	turns    []model.ConversationTurn
}

func (s *companionService) loadInputs(ctx context.Context, userID string) (*companionInputs, error) {
	in := &companionInputs{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.GetProfile(gctx, userID)
		if errors.Is(err, repository.ErrProfileNotFound) {
			return &EmptyProfileError{UserID: userID, Missing: []string{"sun_sign", "moon_sign", "ascendant_sign"}}
		}
		if err != nil {
			return &StorageUnavailableError{Op: "load profile", Err: err}
		}
		in.profile = p
		return nil
	})
	g.Go(func() error {
		m, err := s.memories.ListMemories(gctx, userID, s.cfg.MemoryFetchLimit)
		if err != nil {
			return &StorageUnavailableError{Op: "load memories", Err: err}
		}
		in.memories = m
		return nil
	})
	g.Go(func() error {
		t, err := s.turns.RecentTurns(gctx, userID, s.cfg.RecentTurns)
		if err != nil {
			return &StorageUnavailableError{Op: "load conversation", Err: err}
		}
		in.turns = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *companionService) Prepare(ctx context.Context, userID string) (*Interaction, error) {
	it := &Interaction{UserID: userID, State: StatePending}

	in, err := s.loadInputs(ctx, userID)
	if err != nil {
		return it, err
	}
	// Refuse before metering: a context without a chart is useless.
	if err := validateProfile(in.profile); err != nil {
		return it, err
	}

	it.State = StateAuthorizing
	rec, err := s.quota.Authorize(ctx, userID, model.ActionCompanionMessage)
	if err != nil {
		var exceeded *QuotaExceededError
		if errors.As(err, &exceeded) {
			it.State = StateDenied
			it.ResetAt = exceeded.ResetAt
		}
		return it, err
	}
	it.Quota = rec

	it.State = StateContextBuild
	block, ranked, err := s.builder.Build(in.profile, in.memories, in.turns)
	if err != nil {
		return it, err
	}
	it.Context = block
	it.Memories = ranked
	it.History = in.turns
	it.State = StateReady
	return it, nil
}

func (s *companionService) SendMessage(ctx context.Context, userID, message string, session model.Session) (*Interaction, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.model == nil {
		return nil, ErrModelUnavailable
	}
	sentAt := s.now()

	it, err := s.Prepare(ctx, userID)
	if err != nil {
		return it, err
	}

	it.Session = session.WithDefaults()
	reply, err := s.model.Complete(ctx, it.Context, it.Session, it.History, message)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Companion model call failed")
		return it, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	it.Reply = reply
	repliedAt := s.now()

	err = s.turns.AppendTurns(ctx, userID,
		model.ConversationTurn{Speaker: model.SpeakerUser, Content: message, Timestamp: sentAt},
		model.ConversationTurn{Speaker: model.SpeakerCompanion, Content: reply, Timestamp: repliedAt},
	)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store companion exchange")
	}

	memoryIDs := make([]string, 0, len(it.Memories))
	for _, m := range it.Memories {
		if m.ID != "" {
			memoryIDs = append(memoryIDs, m.ID)
		}
	}
	if s.refs != nil && len(memoryIDs) > 0 {
		job := model.MemoryReferenceJob{UserID: userID, MemoryIDs: memoryIDs, ReferencedAt: repliedAt}
		if err := s.refs.EnqueueReference(ctx, job); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to enqueue memory reference job")
		}
	}
	if s.exchanges != nil {
		ev := model.ExchangeEvent{
			UserID:      userID,
			WindowID:    it.Quota.ID,
			UserMessage: message,
			Reply:       reply,
			MemoryIDs:   memoryIDs,
			Session:     it.Session,
			CreatedAt:   repliedAt,
		}
		if err := s.exchanges.PublishExchange(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to publish companion exchange")
		}
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("memories", it.Context.MemoryCount).
		Int("turns", it.Context.TurnCount).
		Int("remaining", it.Quota.Remaining(model.ActionCompanionMessage)).
		Msg("Companion reply generated")
	return it, nil
}

func (s *companionService) PreviewContext(ctx context.Context, userID string) (model.ContextBlock, error) {
	in, err := s.loadInputs(ctx, userID)
	if err != nil {
		return model.ContextBlock{}, err
	}
	block, _, err := s.builder.Build(in.profile, in.memories, in.turns)
	return block, err
}

func (s *companionService) RefreshProfile(ctx context.Context, userID string) error {
	inv, ok := s.profiles.(repository.ProfileInvalidator)
	if !ok {
		return nil
	}
	if err := inv.Invalidate(ctx, userID); err != nil {
		return &StorageUnavailableError{Op: "invalidate profile", Err: err}
	}
	s.logger.Debug().Str("user_id", userID).Msg("Profile cache invalidated")
	return nil
}

package service

import (
	"context"
	"errors"
	"time"

	"astra/internal/model"
	"astra/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// QuotaService meters companion messages and profile clicks per user over
// rolling 24 hour windows.
type QuotaService interface {
	// ResolveLimits returns the allowances of a tier.
	ResolveLimits(tier model.SubscriptionTier) (model.TierLimits, error)
	// GetOrCreateWindow returns the user's window active at now, creating it with the
	// limits of tier when there is none.
	GetOrCreateWindow(ctx context.Context, userID string, tier model.SubscriptionTier, now time.Time) (*model.QuotaRecord, error)
	// CheckAndConsume uses one unit of action from rec's window. A stale window is
	// replaced by the current one first.
	CheckAndConsume(ctx context.Context, rec *model.QuotaRecord, action model.QuotaAction, now time.Time) (*model.QuotaRecord, error)
	// CurrentWindow resolves the user's tier and returns the active window.
	CurrentWindow(ctx context.Context, userID string) (*model.QuotaRecord, error)
	// Authorize resolves the tier, locates the window and consumes one unit of action.
	Authorize(ctx context.Context, userID string, action model.QuotaAction) (*model.QuotaRecord, error)
}

// createWindowTimeout bounds a window insert that is no longer tied to the
// request that started it.
const createWindowTimeout = 10 * time.Second

type quotaService struct {
	repo    repository.QuotaRepository
	subs    repository.SubscriptionRepository
	creates singleflight.Group
	now     func() time.Time
	logger  zerolog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(repo repository.QuotaRepository, subs repository.SubscriptionRepository, logger zerolog.Logger) QuotaService {
	return newQuotaService(repo, subs, time.Now, logger)
}

func newQuotaService(repo repository.QuotaRepository, subs repository.SubscriptionRepository, now func() time.Time, logger zerolog.Logger) *quotaService {
	return &quotaService{
		repo:   repo,
		subs:   subs,
		now:    now,
		logger: logger.With().Str("service", "QuotaService").Logger(),
	}
}

func (s *quotaService) ResolveLimits(tier model.SubscriptionTier) (model.TierLimits, error) {
	return model.ResolveLimits(tier)
}

func (s *quotaService) GetOrCreateWindow(ctx context.Context, userID string, tier model.SubscriptionTier, now time.Time) (*model.QuotaRecord, error) {
	rec, err := s.repo.FindActiveWindow(ctx, userID, now)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, repository.ErrWindowNotFound) {
		return nil, &StorageUnavailableError{Op: "find window", Err: err}
	}

	limits, err := model.ResolveLimits(tier)
	if err != nil {
		return nil, err
	}

	// The repository serializes creation per user; singleflight only saves
	// redundant round trips from this process. Callers that join a flight
	// share its result, so the create must not die with the first caller.
	v, err, _ := s.creates.Do(userID, func() (any, error) {
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), createWindowTimeout)
		defer cancel()
		return s.repo.CreateWindow(createCtx, model.NewQuotaRecord(uuid.NewString(), userID, tier, limits, now))
	})
	if err != nil {
		return nil, &StorageUnavailableError{Op: "create window", Err: err}
	}
	created := v.(*model.QuotaRecord)
	s.logger.Info().
		Str("user_id", userID).
		Str("window_id", created.ID).
		Str("tier", string(created.TierAtCreation)).
		Time("window_end", created.WindowEnd).
		Msg("Quota window ready")

	out := *created
	return &out, nil
}

func (s *quotaService) CheckAndConsume(ctx context.Context, rec *model.QuotaRecord, action model.QuotaAction, now time.Time) (*model.QuotaRecord, error) {
	if _, err := model.ParseQuotaAction(string(action)); err != nil {
		return nil, err
	}

	// One refresh is enough: a window created at now is active at now.
	for attempt := 0; attempt < 2; attempt++ {
		if !rec.ActiveAt(now) {
			fresh, err := s.refreshWindow(ctx, rec.UserID, now)
			if err != nil {
				return nil, err
			}
			rec = fresh
		}

		// Counters only grow inside a window, so a local exhausted view is final.
		if used, limit := rec.Usage(action); used >= limit {
			return nil, s.exceeded(rec, action)
		}

		updated, ok, err := s.repo.IncrementIfBelow(ctx, rec.ID, action, now)
		if errors.Is(err, repository.ErrWindowNotFound) {
			rec = &model.QuotaRecord{UserID: rec.UserID}
			continue
		}
		if err != nil {
			return nil, &StorageUnavailableError{Op: "consume " + string(action), Err: err}
		}
		if ok {
			s.logger.Debug().
				Str("user_id", updated.UserID).
				Str("action", string(action)).
				Int("remaining", updated.Remaining(action)).
				Msg("Quota consumed")
			return updated, nil
		}
		if updated.ActiveAt(now) {
			return nil, s.exceeded(updated, action)
		}
		rec = updated
	}
	return nil, &StorageUnavailableError{Op: "consume " + string(action), Err: errors.New("window expired during consumption")}
}

func (s *quotaService) refreshWindow(ctx context.Context, userID string, now time.Time) (*model.QuotaRecord, error) {
	tier, err := s.resolveTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.GetOrCreateWindow(ctx, userID, tier, now)
}

func (s *quotaService) exceeded(rec *model.QuotaRecord, action model.QuotaAction) error {
	_, limit := rec.Usage(action)
	s.logger.Info().
		Str("user_id", rec.UserID).
		Str("action", string(action)).
		Int("limit", limit).
		Time("reset_at", rec.WindowEnd).
		Msg("Quota exceeded")
	return &QuotaExceededError{Action: action, Limit: limit, ResetAt: rec.WindowEnd}
}

func (s *quotaService) resolveTier(ctx context.Context, userID string) (model.SubscriptionTier, error) {
	tier, err := s.subs.GetCurrentTier(ctx, userID)
	if err != nil {
		var tierErr *model.UnknownTierError
		if errors.As(err, &tierErr) {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Subscription has an unknown tier")
			return "", err
		}
		return "", &StorageUnavailableError{Op: "resolve tier", Err: err}
	}
	return tier, nil
}

func (s *quotaService) CurrentWindow(ctx context.Context, userID string) (*model.QuotaRecord, error) {
	tier, err := s.resolveTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.GetOrCreateWindow(ctx, userID, tier, s.now())
}

func (s *quotaService) Authorize(ctx context.Context, userID string, action model.QuotaAction) (*model.QuotaRecord, error) {
	now := s.now()
	tier, err := s.resolveTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.GetOrCreateWindow(ctx, userID, tier, now)
	if err != nil {
		return nil, err
	}
	return s.CheckAndConsume(ctx, rec, action, now)
}

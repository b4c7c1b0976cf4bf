package memoryref

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"astra/internal/config"
	"astra/internal/model"
	"astra/internal/pgmq"
	"astra/internal/repository"

	"github.com/rs/zerolog"
)

// Queue is the subset of the pgmq client the worker needs.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, timeoutSec, maxMessages int) ([]*pgmq.Message, error)
	Send(ctx context.Context, queue string, payload []byte) error
	Delete(ctx context.Context, queue string, msgID int64) error
}

// Settings controls polling and retry behaviour.
type Settings struct {
	QueueName           string
	DeadLetterQueueName string
	VisibilitySec       int
	PollTimeoutSec      int
	PollMaxMsg          int
	MaxRetries          int
	BackoffInitial      time.Duration
	BackoffMax          time.Duration
}

// SettingsFromConfig reads the worker settings from the service configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		QueueName:           cfg.MemoryRefQueueName,
		DeadLetterQueueName: cfg.MemoryRefDeadLetterQueueName,
		VisibilitySec:       cfg.MemoryRefPollTimeoutSec * 2,
		PollTimeoutSec:      cfg.MemoryRefPollTimeoutSec,
		PollMaxMsg:          cfg.MemoryRefPollMaxMsg,
		MaxRetries:          cfg.MemoryRefMaxRetries,
		BackoffInitial:      time.Duration(cfg.MemoryRefBackoffInitialSec) * time.Second,
		BackoffMax:          time.Duration(cfg.MemoryRefBackoffMaxSec) * time.Second,
	}
}

// Worker drains the memory reference queue and bumps reference bookkeeping
// on the referenced memories.
type Worker struct {
	queue    Queue
	memories repository.MemoryRepository
	settings Settings
	sleep    func(ctx context.Context, d time.Duration) error
	logger   zerolog.Logger
}

func NewWorker(queue Queue, memories repository.MemoryRepository, settings Settings, logger zerolog.Logger) *Worker {
	if settings.MaxRetries <= 0 {
		settings.MaxRetries = 1
	}
	if settings.PollMaxMsg <= 0 {
		settings.PollMaxMsg = 1
	}
	return &Worker{
		queue:    queue,
		memories: memories,
		settings: settings,
		sleep:    sleepCtx,
		logger:   logger.With().Str("orchestrator", "memory_reference").Logger(),
	}
}

// Run creates the work and dead-letter queues, then starts the memory
// reference orchestrator.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, memories repository.MemoryRepository, cfg *config.Config) error {
	settings := SettingsFromConfig(cfg)
	for _, q := range []string{settings.QueueName, settings.DeadLetterQueueName} {
		if err := client.CreateQueue(ctx, q); err != nil {
			return err
		}
	}
	return NewWorker(client, memories, settings, logger).Run(ctx)
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	queue := w.settings.QueueName
	w.logger.Info().Str("queue", queue).Msg("Starting memory reference orchestrator")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Shutting down memory reference orchestrator")
			return nil
		default:
		}

		msgs, err := w.queue.ReadWithPoll(ctx, queue, w.settings.VisibilitySec, w.settings.PollTimeoutSec, w.settings.PollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error().Err(err).Msg("Error reading memory reference queue")
			_ = w.sleep(ctx, time.Second)
			continue
		}
		for _, msg := range msgs {
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *pgmq.Message) {
	log := w.logger.With().Str("queue", w.settings.QueueName).Int64("msg_id", msg.ID).Logger()

	var job model.MemoryReferenceJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal memory reference payload; deleting message")
		w.ack(ctx, msg)
		return
	}
	if job.UserID == "" || len(job.MemoryIDs) == 0 {
		log.Warn().Msg("Memory reference job without user or memories; deleting message")
		w.ack(ctx, msg)
		return
	}
	if job.ReferencedAt.IsZero() {
		job.ReferencedAt = time.Now().UTC()
	}

	// Redelivered past the retry budget: a previous run died mid-job.
	if msg.ReadCount > w.settings.MaxRetries {
		w.deadLetter(ctx, msg, errors.New("read count exceeded"))
		return
	}

	backoff := w.settings.BackoffInitial
	var lastErr error
	for attempt := 1; attempt <= w.settings.MaxRetries; attempt++ {
		n, err := w.memories.TouchMemories(ctx, job.UserID, job.MemoryIDs, job.ReferencedAt)
		if err == nil {
			log.Info().
				Str("user_id", job.UserID).
				Int("memories", len(job.MemoryIDs)).
				Int64("updated", n).
				Msg("Memory references recorded")
			w.ack(ctx, msg)
			return
		}
		lastErr = err
		log.Error().Err(err).Int("attempt", attempt).Msg("Recording memory references failed, retrying")
		if attempt == w.settings.MaxRetries {
			break
		}
		if err := w.sleep(ctx, backoff); err != nil {
			// Leave the message; it becomes visible again after the visibility timeout.
			return
		}
		backoff *= 2
		if backoff > w.settings.BackoffMax {
			backoff = w.settings.BackoffMax
		}
	}

	w.deadLetter(ctx, msg, lastErr)
}

func (w *Worker) deadLetter(ctx context.Context, msg *pgmq.Message, cause error) {
	dlq := w.settings.DeadLetterQueueName
	if err := w.queue.Send(ctx, dlq, msg.Data); err != nil {
		w.logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
		return
	}
	w.ack(ctx, msg)
	w.logger.Warn().
		Int64("msg_id", msg.ID).
		Int("attempts", w.settings.MaxRetries).
		Err(cause).
		Msg("Exhausted memory reference retries; moving job to DLQ")
}

func (w *Worker) ack(ctx context.Context, msg *pgmq.Message) {
	if err := w.queue.Delete(ctx, w.settings.QueueName, msg.ID); err != nil {
		w.logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting memory reference message")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package memoryref

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"astra/internal/model"
	"astra/internal/pgmq"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	queue   string
	payload []byte
}

type fakeQueue struct {
	mu      sync.Mutex
	batches [][]*pgmq.Message
	sent    []sentMessage
	deleted []int64
	cancel  context.CancelFunc
}

func (q *fakeQueue) ReadWithPoll(_ context.Context, _ string, _, _, _ int) ([]*pgmq.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.batches) == 0 {
		q.cancel()
		return nil, nil
	}
	next := q.batches[0]
	q.batches = q.batches[1:]
	return next, nil
}

func (q *fakeQueue) Send(_ context.Context, queue string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, sentMessage{queue: queue, payload: payload})
	return nil
}

func (q *fakeQueue) Delete(_ context.Context, _ string, msgID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, msgID)
	return nil
}

type touchCall struct {
	userID string
	ids    []string
	at     time.Time
}

type fakeMemories struct {
	failures int
	calls    []touchCall
}

func (m *fakeMemories) ListMemories(context.Context, string, int) ([]model.MemoryEntry, error) {
	return nil, nil
}

func (m *fakeMemories) TouchMemories(_ context.Context, userID string, ids []string, at time.Time) (int64, error) {
	m.calls = append(m.calls, touchCall{userID: userID, ids: ids, at: at})
	if len(m.calls) <= m.failures {
		return 0, errors.New("deadlock detected")
	}
	return int64(len(ids)), nil
}

func testSettings() Settings {
	return Settings{
		QueueName:           "memory_reference_queue",
		DeadLetterQueueName: "memory_reference_queue_dlq",
		VisibilitySec:       60,
		PollTimeoutSec:      1,
		PollMaxMsg:          10,
		MaxRetries:          3,
		BackoffInitial:      time.Second,
		BackoffMax:          4 * time.Second,
	}
}

func jobMessage(t *testing.T, id int64, job model.MemoryReferenceJob) *pgmq.Message {
	t.Helper()
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return &pgmq.Message{ID: id, ReadCount: 1, Data: data}
}

func newTestWorker(queue *fakeQueue, memories *fakeMemories) (*Worker, *[]time.Duration) {
	w := NewWorker(queue, memories, testSettings(), zerolog.Nop())
	var slept []time.Duration
	w.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return w, &slept
}

func TestWorker_RecordsReferences(t *testing.T) {
	at := time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC)
	queue := &fakeQueue{}
	memories := &fakeMemories{}
	w, _ := newTestWorker(queue, memories)

	w.handle(context.Background(), jobMessage(t, 7, model.MemoryReferenceJob{UserID: "u1", MemoryIDs: []string{"m1", "m2"}, ReferencedAt: at}))

	require.Len(t, memories.calls, 1)
	assert.Equal(t, "u1", memories.calls[0].userID)
	assert.Equal(t, []string{"m1", "m2"}, memories.calls[0].ids)
	assert.True(t, memories.calls[0].at.Equal(at))
	assert.Equal(t, []int64{7}, queue.deleted)
	assert.Empty(t, queue.sent)
}

func TestWorker_RetriesWithBackoff(t *testing.T) {
	queue := &fakeQueue{}
	memories := &fakeMemories{failures: 2}
	w, slept := newTestWorker(queue, memories)

	w.handle(context.Background(), jobMessage(t, 8, model.MemoryReferenceJob{UserID: "u1", MemoryIDs: []string{"m1"}}))

	assert.Len(t, memories.calls, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, []int64{8}, queue.deleted)
	assert.Empty(t, queue.sent)
}

func TestWorker_ExhaustedRetriesGoToDeadLetterQueue(t *testing.T) {
	queue := &fakeQueue{}
	memories := &fakeMemories{failures: 10}
	w, _ := newTestWorker(queue, memories)

	msg := jobMessage(t, 9, model.MemoryReferenceJob{UserID: "u1", MemoryIDs: []string{"m1"}})
	w.handle(context.Background(), msg)

	assert.Len(t, memories.calls, 3)
	require.Len(t, queue.sent, 1)
	assert.Equal(t, "memory_reference_queue_dlq", queue.sent[0].queue)
	assert.JSONEq(t, string(msg.Data), string(queue.sent[0].payload))
	assert.Equal(t, []int64{9}, queue.deleted)
}

func TestWorker_RedeliveredPastBudget(t *testing.T) {
	queue := &fakeQueue{}
	memories := &fakeMemories{}
	w, _ := newTestWorker(queue, memories)

	msg := jobMessage(t, 10, model.MemoryReferenceJob{UserID: "u1", MemoryIDs: []string{"m1"}})
	msg.ReadCount = 4
	w.handle(context.Background(), msg)

	assert.Empty(t, memories.calls)
	require.Len(t, queue.sent, 1)
	assert.Equal(t, []int64{10}, queue.deleted)
}

func TestWorker_DropsInvalidPayloads(t *testing.T) {
	queue := &fakeQueue{}
	memories := &fakeMemories{}
	w, _ := newTestWorker(queue, memories)

	w.handle(context.Background(), &pgmq.Message{ID: 1, Data: []byte("not json")})
	w.handle(context.Background(), jobMessage(t, 2, model.MemoryReferenceJob{UserID: "u1"}))

	assert.Empty(t, memories.calls)
	assert.Empty(t, queue.sent)
	assert.Equal(t, []int64{1, 2}, queue.deleted)
}

func TestWorker_RunDrainsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := &fakeQueue{cancel: cancel}
	queue.batches = [][]*pgmq.Message{
		{
			jobMessage(t, 1, model.MemoryReferenceJob{UserID: "u1", MemoryIDs: []string{"m1"}}),
			jobMessage(t, 2, model.MemoryReferenceJob{UserID: "u2", MemoryIDs: []string{"m9"}}),
		},
	}
	memories := &fakeMemories{}
	w, _ := newTestWorker(queue, memories)

	require.NoError(t, w.Run(ctx))
	assert.Len(t, memories.calls, 2)
	assert.Equal(t, []int64{1, 2}, queue.deleted)
}

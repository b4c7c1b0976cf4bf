package pgmq

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Client runs pgmq functions over database/sql.
type Client struct {
	db *sql.DB
}

func New(db *sql.DB) *Client {
	return &Client{db: db}
}

// Message is a row returned by pgmq.read_with_poll.
type Message struct {
	ID         int64
	ReadCount  int
	EnqueuedAt time.Time
	Data       []byte
}

// CreateQueue creates queue if it does not exist yet.
func (c *Client) CreateQueue(ctx context.Context, queue string) error {
	if _, err := c.db.ExecContext(ctx, "SELECT pgmq.create($1)", queue); err != nil {
		return fmt.Errorf("pgmq create %s: %w", queue, err)
	}
	return nil
}

// Send enqueues payload for immediate delivery.
func (c *Client) Send(ctx context.Context, queue string, payload []byte) error {
	return c.SendDelayed(ctx, queue, payload, 0)
}

// SendDelayed enqueues payload, hidden from readers for delaySec seconds.
func (c *Client) SendDelayed(ctx context.Context, queue string, payload []byte, delaySec int) error {
	if !json.Valid(payload) {
		return fmt.Errorf("pgmq send to %s: payload is not valid JSON", queue)
	}
	if _, err := c.db.ExecContext(ctx, "SELECT pgmq.send($1, $2::jsonb, $3)", queue, string(payload), delaySec); err != nil {
		return fmt.Errorf("pgmq send to %s: %w", queue, err)
	}
	return nil
}

// SendJSON marshals v and enqueues it.
func (c *Client) SendJSON(ctx context.Context, queue string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("pgmq marshal payload for %s: %w", queue, err)
	}
	return c.Send(ctx, queue, payload)
}

// ReadWithPoll blocks up to timeoutSec for at most maxMessages. Returned
// messages stay invisible to other readers for visibilitySec seconds.
func (c *Client) ReadWithPoll(ctx context.Context, queue string, visibilitySec, timeoutSec, maxMessages int) ([]*Message, error) {
	const q = "SELECT msg_id, read_ct, enqueued_at, message FROM pgmq.read_with_poll($1, $2, $3, $4)"
	rows, err := c.db.QueryContext(ctx, q, queue, visibilitySec, maxMessages, timeoutSec)
	if err != nil {
		return nil, fmt.Errorf("pgmq read_with_poll on %s: %w", queue, err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ReadCount, &m.EnqueuedAt, &m.Data); err != nil {
			return nil, fmt.Errorf("pgmq scan message from %s: %w", queue, err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgmq read rows from %s: %w", queue, err)
	}
	return msgs, nil
}

// Delete removes a processed message.
func (c *Client) Delete(ctx context.Context, queue string, msgID int64) error {
	if _, err := c.db.ExecContext(ctx, "SELECT pgmq.delete($1, $2::bigint)", queue, msgID); err != nil {
		return fmt.Errorf("pgmq delete %d from %s: %w", msgID, queue, err)
	}
	return nil
}

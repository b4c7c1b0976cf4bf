package model

import "time"

// DeadLetterStatusUnprocessed marks a dead-lettered message nobody has looked at yet.
const DeadLetterStatusUnprocessed = "unprocessed"

// DeadLetterMessage is an exchange event Pub/Sub gave up delivering, kept for
// offline replay by the memory writer.
type DeadLetterMessage struct {
	ID               string    `db:"id"`
	SubscriptionName string    `db:"subscription_name"`
	MessageID        string    `db:"message_id"`
	UserID           string    `db:"user_id"` // empty when the payload is not an ExchangeEvent
	Payload          string    `db:"payload"`
	Attributes       *string   `db:"attributes"` // JSON object, nil when the push carried none
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
}

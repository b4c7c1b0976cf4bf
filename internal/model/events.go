package model

import "time"

// MemoryReferenceJob asks the memory worker to mark memories as used in a context.
type MemoryReferenceJob struct {
	UserID       string    `json:"user_id"`
	MemoryIDs    []string  `json:"memory_ids"`
	ReferencedAt time.Time `json:"referenced_at"`
}

// ExchangeEvent is published after every completed companion exchange so that
// downstream consumers (memory extraction, analytics) can react to it.
type ExchangeEvent struct {
	UserID      string    `json:"user_id"`
	WindowID    string    `json:"window_id"`
	UserMessage string    `json:"user_message"`
	Reply       string    `json:"reply"`
	MemoryIDs   []string  `json:"memory_ids,omitempty"`
	Session     Session   `json:"session"`
	CreatedAt   time.Time `json:"created_at"`
}

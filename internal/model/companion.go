package model

import "time"

// Energies are the four elemental scores of a natal chart, in percent.
type Energies struct {
	Fire  int `json:"fire"`
	Earth int `json:"earth"`
	Air   int `json:"air"`
	Water int `json:"water"`
}

// Profile is the read-only snapshot of a user the companion speaks to.
type Profile struct {
	UserID        string   `db:"id" json:"user_id"`
	FirstName     string   `db:"first_name" json:"first_name"`
	SunSign       string   `db:"sun_sign" json:"sun_sign"`
	MoonSign      string   `db:"moon_sign" json:"moon_sign"`
	AscendantSign string   `db:"ascendant_sign" json:"ascendant_sign"`
	Energies      Energies `json:"energies"`
	Bio           string   `db:"bio" json:"bio,omitempty"`
}

// MemoryEntry is a durable fact about a user. Importance is assigned by
// whoever writes the memory, usually in 1..10.
type MemoryEntry struct {
	ID             string    `db:"id" json:"id"`
	MemoryType     string    `db:"memory_type" json:"memory_type"`
	Content        string    `db:"content" json:"content"`
	Importance     int       `db:"importance" json:"importance"`
	LastReferenced time.Time `db:"last_referenced" json:"last_referenced"`
}

// Speaker identifies the author of a conversation turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerCompanion Speaker = "companion"
)

// ConversationTurn is one message of the recent conversation window.
type ConversationTurn struct {
	Speaker   Speaker   `db:"speaker" json:"speaker"`
	Content   string    `db:"content" json:"content"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// ContextBlock is the assembled prefix handed to the model call.
type ContextBlock struct {
	Text        string `json:"text"`
	MemoryCount int    `json:"memory_count"`
	TurnCount   int    `json:"turn_count"`
}

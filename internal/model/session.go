package model

import (
	"errors"
	"fmt"
)

// SessionType is the kind of guidance the user asked the companion for.
type SessionType string

const (
	SessionQuestion SessionType = "question"
	SessionGuidance SessionType = "guidance"
	SessionPattern  SessionType = "pattern"
	SessionGuardian SessionType = "guardian"
	SessionSilence  SessionType = "silence"
)

// SessionTone is the register the companion answers in.
type SessionTone string

const (
	ToneObservation SessionTone = "observation"
	ToneClarity     SessionTone = "clarity"
	ToneAlert       SessionTone = "alert"
	ToneProtection  SessionTone = "protection"
)

// ErrInvalidSession is returned for a session type or tone outside the known set.
var ErrInvalidSession = errors.New("invalid session")

// Session steers the companion persona for one message. It is sent to the
// model next to the context block, never inside it.
type Session struct {
	Type SessionType `json:"session_type"`
	Tone SessionTone `json:"tone"`
}

// DefaultSession is used when a message names no session.
var DefaultSession = Session{Type: SessionQuestion, Tone: ToneObservation}

// ParseSession validates raw values; empty values take the defaults.
func ParseSession(sessionType, tone string) (Session, error) {
	s := Session{Type: SessionType(sessionType), Tone: SessionTone(tone)}.WithDefaults()
	switch s.Type {
	case SessionQuestion, SessionGuidance, SessionPattern, SessionGuardian, SessionSilence:
	default:
		return Session{}, fmt.Errorf("%w: unknown session type %q", ErrInvalidSession, sessionType)
	}
	switch s.Tone {
	case ToneObservation, ToneClarity, ToneAlert, ToneProtection:
	default:
		return Session{}, fmt.Errorf("%w: unknown tone %q", ErrInvalidSession, tone)
	}
	return s, nil
}

// WithDefaults fills empty fields from DefaultSession.
func (s Session) WithDefaults() Session {
	if s.Type == "" {
		s.Type = DefaultSession.Type
	}
	if s.Tone == "" {
		s.Tone = DefaultSession.Tone
	}
	return s
}

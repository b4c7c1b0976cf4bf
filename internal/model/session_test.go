package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSession(t *testing.T) {
	tests := []struct {
		name        string
		sessionType string
		tone        string
		want        Session
		wantErr     bool
	}{
		{name: "defaults", want: DefaultSession},
		{name: "explicit", sessionType: "guardian", tone: "protection", want: Session{Type: SessionGuardian, Tone: ToneProtection}},
		{name: "tone only", tone: "alert", want: Session{Type: SessionQuestion, Tone: ToneAlert}},
		{name: "unknown type", sessionType: "therapy", wantErr: true},
		{name: "unknown tone", sessionType: "pattern", tone: "gentle", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSession(tt.sessionType, tt.tone)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSession)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

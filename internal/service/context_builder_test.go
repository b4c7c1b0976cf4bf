package service

import (
	"math"
	"testing"
	"time"

	"astra/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *model.Profile {
	return &model.Profile{
		UserID:        "u1",
		FirstName:     "Lina",
		SunSign:       "Scorpio",
		MoonSign:      "Cancer",
		AscendantSign: "Leo",
		Energies:      model.Energies{Fire: 30, Earth: 10, Air: 20, Water: 40},
	}
}

func TestRankMemories_ImportanceThenRecency(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	a := model.MemoryEntry{ID: "A", MemoryType: "pattern", Content: "a", Importance: 5, LastReferenced: older}
	b := model.MemoryEntry{ID: "B", MemoryType: "pattern", Content: "b", Importance: 5, LastReferenced: newer}
	c := model.MemoryEntry{ID: "C", MemoryType: "pattern", Content: "c", Importance: 2, LastReferenced: newer}

	ranked := RankMemories([]model.MemoryEntry{a, b, c}, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "B", ranked[0].ID)
	assert.Equal(t, "A", ranked[1].ID)
}

func TestRankMemories_TiesKeepInputOrder(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	memories := []model.MemoryEntry{
		{ID: "first", Importance: 7, LastReferenced: at},
		{ID: "second", Importance: 7, LastReferenced: at},
		{ID: "top", Importance: 9, LastReferenced: at},
	}

	ranked := RankMemories(memories, 10)
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"top", "first", "second"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID})
}

func TestRankMemories_Idempotent(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var memories []model.MemoryEntry
	for i := 0; i < 12; i++ {
		memories = append(memories, model.MemoryEntry{
			ID:             string(rune('a' + i)),
			Importance:     1 + i%4,
			LastReferenced: base.Add(time.Duration(i%3) * time.Hour),
		})
	}

	once := RankMemories(memories, 6)
	twice := RankMemories(once, 6)
	assert.Equal(t, once, twice)
}

func TestRankMemories_DoesNotMutateInput(t *testing.T) {
	memories := []model.MemoryEntry{
		{ID: "low", Importance: 1},
		{ID: "high", Importance: 9},
	}

	RankMemories(memories, 5)
	assert.Equal(t, "low", memories[0].ID)
	assert.Equal(t, "high", memories[1].ID)
}

func TestRankMemories_ExtremeImportance(t *testing.T) {
	ranked := RankMemories([]model.MemoryEntry{
		{ID: "floor", Importance: math.MinInt},
		{ID: "ceiling", Importance: math.MaxInt},
		{ID: "zero", Importance: 0},
	}, 5)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"ceiling", "zero", "floor"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID})
}

func TestRankMemories_DefaultLimit(t *testing.T) {
	memories := make([]model.MemoryEntry, 8)
	assert.Len(t, RankMemories(memories, 0), DefaultMemoryLimit)
	assert.Len(t, RankMemories(memories, -3), DefaultMemoryLimit)
	assert.Empty(t, RankMemories(nil, 3))
}

func TestBuildContext_FullBlock(t *testing.T) {
	p := testProfile()
	p.Bio = "Night owl.\nLoves  the sea."
	ranked := []model.MemoryEntry{
		{MemoryType: "pattern", Content: "Pulls away after conflict"},
		{MemoryType: "preference", Content: "Prefers\ndirect answers"},
	}
	turns := []model.ConversationTurn{
		{Speaker: model.SpeakerUser, Content: "hi"},
		{Speaker: model.SpeakerCompanion, Content: "hello"},
		{Speaker: model.SpeakerUser, Content: "why?"},
	}

	block, err := BuildContext(p, ranked, turns)
	require.NoError(t, err)

	want := "USER PROFILE:\n" +
		"- First name: Lina\n" +
		"- Sun: Scorpio, Moon: Cancer, Ascendant: Leo\n" +
		"- Energies: Fire 30%, Earth 10%, Air 20%, Water 40%\n" +
		"- Bio: Night owl. Loves the sea.\n" +
		"\nMEMORY:\n" +
		"[pattern] Pulls away after conflict\n" +
		"[preference] Prefers direct answers\n" +
		"\nRECENT CONVERSATION: 3 messages"
	assert.Equal(t, want, block.Text)
	assert.Equal(t, 2, block.MemoryCount)
	assert.Equal(t, 3, block.TurnCount)
}

func TestBuildContext_ProfileOnly(t *testing.T) {
	block, err := BuildContext(testProfile(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "USER PROFILE:\n"+
		"- First name: Lina\n"+
		"- Sun: Scorpio, Moon: Cancer, Ascendant: Leo\n"+
		"- Energies: Fire 30%, Earth 10%, Air 20%, Water 40%", block.Text)
	assert.NotContains(t, block.Text, "MEMORY")
	assert.NotContains(t, block.Text, "RECENT CONVERSATION")
	assert.Zero(t, block.MemoryCount)
	assert.Zero(t, block.TurnCount)
}

func TestBuildContext_SingleTurnNote(t *testing.T) {
	block, err := BuildContext(testProfile(), nil, []model.ConversationTurn{{Speaker: model.SpeakerUser, Content: "hey"}})
	require.NoError(t, err)
	assert.Contains(t, block.Text, "\n\nRECENT CONVERSATION: 1 message")
	assert.NotContains(t, block.Text, "1 messages")
}

func TestBuildContext_MissingFirstName(t *testing.T) {
	p := testProfile()
	p.FirstName = "  "

	block, err := BuildContext(p, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, block.Text, "- First name: User\n")
}

func TestBuildContext_Deterministic(t *testing.T) {
	ranked := []model.MemoryEntry{{MemoryType: "event", Content: "Moved to Lyon"}}
	turns := []model.ConversationTurn{{Speaker: model.SpeakerUser, Content: "x"}}

	first, err := BuildContext(testProfile(), ranked, turns)
	require.NoError(t, err)
	second, err := BuildContext(testProfile(), ranked, turns)
	require.NoError(t, err)
	assert.Equal(t, []byte(first.Text), []byte(second.Text))
}

func TestBuildContext_EmptyProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile *model.Profile
		missing []string
	}{
		{
			name:    "nil profile",
			profile: nil,
			missing: []string{"sun_sign", "moon_sign", "ascendant_sign"},
		},
		{
			name:    "no moon",
			profile: &model.Profile{UserID: "u1", SunSign: "Aries", AscendantSign: "Virgo"},
			missing: []string{"moon_sign"},
		},
		{
			name:    "blank signs",
			profile: &model.Profile{UserID: "u1", SunSign: " ", MoonSign: "Pisces", AscendantSign: ""},
			missing: []string{"sun_sign", "ascendant_sign"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildContext(tt.profile, nil, nil)
			var emptyErr *EmptyProfileError
			require.ErrorAs(t, err, &emptyErr)
			assert.Equal(t, tt.missing, emptyErr.Missing)
		})
	}
}

func TestContextBuilder_Build(t *testing.T) {
	memories := []model.MemoryEntry{
		{ID: "m1", MemoryType: "pattern", Content: "one", Importance: 3},
		{ID: "m2", MemoryType: "pattern", Content: "two", Importance: 8},
		{ID: "m3", MemoryType: "pattern", Content: "three", Importance: 5},
	}

	block, ranked, err := ContextBuilder{MemoryLimit: 2}.Build(testProfile(), memories, nil)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "m2", ranked[0].ID)
	assert.Equal(t, "m3", ranked[1].ID)
	assert.Equal(t, 2, block.MemoryCount)
	assert.Contains(t, block.Text, "[pattern] two\n[pattern] three")
}

package service

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"astra/internal/model"
)

// DefaultMemoryLimit is the number of memories kept when no limit is configured.
const DefaultMemoryLimit = 5

// RankMemories orders memories by importance, most recently referenced first
// among equals, and keeps the first limit entries. Entries that tie on both keys
// keep their input order. The input slice is not modified.
func RankMemories(memories []model.MemoryEntry, limit int) []model.MemoryEntry {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	ranked := slices.Clone(memories)
	slices.SortStableFunc(ranked, func(a, b model.MemoryEntry) int {
		if c := cmp.Compare(b.Importance, a.Importance); c != 0 {
			return c
		}
		return b.LastReferenced.Compare(a.LastReferenced)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// BuildContext renders the profile section, the memory section and a note on the
// size of the recent conversation, in that order. The turns themselves are sent
// to the model as message history, not flattened into the block.
func BuildContext(profile *model.Profile, ranked []model.MemoryEntry, recent []model.ConversationTurn) (model.ContextBlock, error) {
	if err := validateProfile(profile); err != nil {
		return model.ContextBlock{}, err
	}

	var b strings.Builder
	name := strings.TrimSpace(profile.FirstName)
	if name == "" {
		name = "User"
	}
	b.WriteString("USER PROFILE:\n")
	fmt.Fprintf(&b, "- First name: %s\n", name)
	fmt.Fprintf(&b, "- Sun: %s, Moon: %s, Ascendant: %s\n",
		strings.TrimSpace(profile.SunSign),
		strings.TrimSpace(profile.MoonSign),
		strings.TrimSpace(profile.AscendantSign))
	fmt.Fprintf(&b, "- Energies: Fire %d%%, Earth %d%%, Air %d%%, Water %d%%\n",
		profile.Energies.Fire, profile.Energies.Earth, profile.Energies.Air, profile.Energies.Water)
	if bio := oneLine(profile.Bio); bio != "" {
		fmt.Fprintf(&b, "- Bio: %s\n", bio)
	}

	if len(ranked) > 0 {
		b.WriteString("\nMEMORY:\n")
		for _, m := range ranked {
			fmt.Fprintf(&b, "[%s] %s\n", m.MemoryType, oneLine(m.Content))
		}
	}

	if n := len(recent); n > 0 {
		unit := "messages"
		if n == 1 {
			unit = "message"
		}
		fmt.Fprintf(&b, "\nRECENT CONVERSATION: %d %s\n", n, unit)
	}

	return model.ContextBlock{
		Text:        strings.TrimSpace(b.String()),
		MemoryCount: len(ranked),
		TurnCount:   len(recent),
	}, nil
}

func validateProfile(p *model.Profile) error {
	if p == nil {
		return &EmptyProfileError{Missing: []string{"sun_sign", "moon_sign", "ascendant_sign"}}
	}
	var missing []string
	if strings.TrimSpace(p.SunSign) == "" {
		missing = append(missing, "sun_sign")
	}
	if strings.TrimSpace(p.MoonSign) == "" {
		missing = append(missing, "moon_sign")
	}
	if strings.TrimSpace(p.AscendantSign) == "" {
		missing = append(missing, "ascendant_sign")
	}
	if len(missing) > 0 {
		return &EmptyProfileError{UserID: p.UserID, Missing: missing}
	}
	return nil
}

// oneLine collapses runs of whitespace, including newlines, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContextBuilder ranks and renders with a fixed memory limit.
type ContextBuilder struct {
	MemoryLimit int
}

// Build ranks memories with the configured limit and renders the context block.
func (c ContextBuilder) Build(profile *model.Profile, memories []model.MemoryEntry, recent []model.ConversationTurn) (model.ContextBlock, []model.MemoryEntry, error) {
	ranked := RankMemories(memories, c.MemoryLimit)
	block, err := BuildContext(profile, ranked, recent)
	if err != nil {
		return model.ContextBlock{}, nil, err
	}
	return block, ranked, nil
}

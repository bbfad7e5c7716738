package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchItem_Sides(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		left, right string
	}{
		{"both sides", "Alice VS Bob", "Alice", "Bob"},
		{"no separator", "Bye week", "Bye week", ""},
		{"only first separator splits", "A VS B VS C", "A", "B VS C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := MatchItem{Text: tt.text}.Sides()
			assert.Equal(t, tt.left, left)
			assert.Equal(t, tt.right, right)
		})
	}
	assert.Equal(t, "Alice VS Bob", JoinSides("Alice", "Bob"))
}

func TestRouletteConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultRouletteConfig().Validate())

	broken := map[string]func(*RouletteConfig){
		"zero height":         func(c *RouletteConfig) { c.ItemHeight = 0 },
		"even visible items":  func(c *RouletteConfig) { c.VisibleItems = 4 },
		"negative spin speed": func(c *RouletteConfig) { c.SpinSpeed = -1 },
		"friction of one":     func(c *RouletteConfig) { c.Friction = 1 },
	}
	for name, mutate := range broken {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultRouletteConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.Equal(t, 250.0, DefaultRouletteConfig().ViewportCenter())
}

func TestGameState(t *testing.T) {
	assert.True(t, GameStateStopping.Valid())
	assert.False(t, GameState("PAUSED").Valid())
	assert.True(t, GameStateSpinning.IsAnimating())
	assert.False(t, GameStateWon.IsAnimating())
}

func TestSyncSnapshot_Clone(t *testing.T) {
	id := "x"
	snap := SyncSnapshot{
		Items:        []MatchItem{{ID: "x", Text: "A VS B"}},
		GameState:    GameStateWon,
		LastWinnerID: &id,
	}

	clone := snap.Clone()
	clone.Items[0].Played = true
	*clone.LastWinnerID = "y"

	assert.False(t, snap.Items[0].Played)
	assert.Equal(t, "x", snap.WinnerID())
	assert.Equal(t, "y", clone.WinnerID())

	found, ok := snap.FindItem("x")
	assert.True(t, ok)
	assert.Equal(t, "A VS B", found.Text)
	_, ok = snap.FindItem("nope")
	assert.False(t, ok)
	assert.Empty(t, SyncSnapshot{}.WinnerID())
}

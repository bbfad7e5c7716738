package models

import (
	"errors"
	"fmt"
	"strings"
)

// VersusSeparator joins the two sides of a match-up in MatchItem.Text.
const VersusSeparator = " VS "

// GameState defines the state of the roulette.
type GameState string

const (
	GameStateIdle     GameState = "IDLE"
	GameStateSpinning GameState = "SPINNING"
	GameStateStopping GameState = "STOPPING"
	GameStateWon      GameState = "WON"
)

// Valid reports whether s is one of the known states.
func (s GameState) Valid() bool {
	switch s {
	case GameStateIdle, GameStateSpinning, GameStateStopping, GameStateWon:
		return true
	}
	return false
}

// IsAnimating is true while the list is in motion.
func (s GameState) IsAnimating() bool {
	return s == GameStateSpinning || s == GameStateStopping
}

// Side identifies one half of a match-up.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// MatchItem represents one candidate match-up. Played only ever moves from
// false to true, except through an explicit reset of the whole registry.
type MatchItem struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Color  string `json:"color"`
	Played bool   `json:"played"`
}

// Sides splits Text into its two halves. Text without a separator is
// returned whole as the left side.
func (m MatchItem) Sides() (left, right string) {
	parts := strings.SplitN(m.Text, VersusSeparator, 2)
	if len(parts) < 2 {
		return m.Text, ""
	}
	return parts[0], parts[1]
}

// JoinSides builds the Text of a match-up from its two halves.
func JoinSides(left, right string) string {
	return left + VersusSeparator + right
}

// RouletteConfig holds the geometry and motion tuning of the roulette.
type RouletteConfig struct {
	ItemHeight   float64 `json:"item_height" yaml:"item_height"`     // px per row
	VisibleItems int     `json:"visible_items" yaml:"visible_items"` // odd; the center row is the target
	SpinSpeed    float64 `json:"spin_speed" yaml:"spin_speed"`       // px per frame
	Friction     float64 `json:"friction" yaml:"friction"`           // per-frame decay while stopping
}

// DefaultRouletteConfig returns the stock broadcast layout.
func DefaultRouletteConfig() RouletteConfig {
	return RouletteConfig{
		ItemHeight:   100,
		VisibleItems: 5,
		SpinSpeed:    40,
		Friction:     0.985,
	}
}

var ErrInvalidConfig = errors.New("invalid roulette config")

// Validate checks the configuration invariants.
func (c RouletteConfig) Validate() error {
	switch {
	case c.ItemHeight <= 0:
		return fmt.Errorf("%w: item_height must be positive", ErrInvalidConfig)
	case c.VisibleItems < 1 || c.VisibleItems%2 == 0:
		return fmt.Errorf("%w: visible_items must be a positive odd number", ErrInvalidConfig)
	case c.SpinSpeed <= 0:
		return fmt.Errorf("%w: spin_speed must be positive", ErrInvalidConfig)
	case c.Friction <= 0 || c.Friction >= 1:
		return fmt.Errorf("%w: friction must be within (0,1)", ErrInvalidConfig)
	}
	return nil
}

// ViewportCenter is the distance from the top of the viewport to its center row's middle.
func (c RouletteConfig) ViewportCenter() float64 {
	return float64(c.VisibleItems) * c.ItemHeight / 2
}

// Scores is the running tally of both sides.
type Scores struct {
	A int `json:"A"`
	B int `json:"B"`
}

// SyncSnapshot is the unit of replication between view contexts.
type SyncSnapshot struct {
	Items        []MatchItem `json:"items"`
	GameState    GameState   `json:"gameState"`
	LastWinnerID *string     `json:"lastWinnerId"`
	Scores       Scores      `json:"scores"`
}

// Clone returns a deep copy so receivers never alias the owner's slice.
func (s SyncSnapshot) Clone() SyncSnapshot {
	out := s
	out.Items = append([]MatchItem(nil), s.Items...)
	if s.LastWinnerID != nil {
		id := *s.LastWinnerID
		out.LastWinnerID = &id
	}
	return out
}

// WinnerID returns the last winner id or "" when none is recorded.
func (s SyncSnapshot) WinnerID() string {
	if s.LastWinnerID == nil {
		return ""
	}
	return *s.LastWinnerID
}

// FindItem looks an item up by id.
func (s SyncSnapshot) FindItem(id string) (MatchItem, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return MatchItem{}, false
}

// Outcome is reported by a display once its spin lands.
type Outcome struct {
	WinnerID string `json:"winnerId"`
}

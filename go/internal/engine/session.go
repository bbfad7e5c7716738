package engine

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/mcdev12/roulette/go/internal/models"
)

// Motion tuning. Speeds are in px per frame.
const (
	RampIncrement   = 0.5
	MinStopSpeed    = 5.0
	EaseFactor      = 0.05
	SnapEpsilon     = 0.5
	TickMinSpeed    = 2.0
	TickMinInterval = 80 * time.Millisecond
)

// NoSnapTarget marks a session that has not committed to a landing row.
const NoSnapTarget = -1

// Copies is how many times the list is repeated so it can scroll seamlessly.
const Copies = 3

// Session is the motion state of one spin. Indexes refer to the list
// repeated Copies times.
type Session struct {
	State         models.GameState
	Offset        float64
	Speed         float64
	LastTickIndex int
	LastTickAt    time.Time
	SnapTarget    int
}

// NewSession returns a motionless session in state at offset.
func NewSession(state models.GameState, offset float64) Session {
	return Session{
		State:         state,
		Offset:        offset,
		LastTickIndex: -1,
		SnapTarget:    NoSnapTarget,
	}
}

// Snapping reports whether a landing row has been locked.
func (s Session) Snapping() bool {
	return s.SnapTarget != NoSnapTarget
}

// Step describes the side effects of one frame.
type Step struct {
	Tick        bool
	Landed      bool
	WinnerIndex int
	Winner      models.MatchItem
}

// SnapFunc chooses the landing index for a list at offset.
type SnapFunc func(cfg models.RouletteConfig, items []models.MatchItem, offset float64) int

// PinnedOffset is the offset that centers the row at index.
func PinnedOffset(cfg models.RouletteConfig, index int) float64 {
	return float64(index)*cfg.ItemHeight - cfg.ViewportCenter() + cfg.ItemHeight/2
}

// CycleExtent is the height of one full copy of the list.
func CycleExtent(cfg models.RouletteConfig, n int) float64 {
	return float64(n) * cfg.ItemHeight
}

func centeredIndex(cfg models.RouletteConfig, items []models.MatchItem, offset float64) int {
	exact := (offset + cfg.ViewportCenter() - cfg.ItemHeight/2) / cfg.ItemHeight
	idx := int(math.Round(exact))
	return max(0, min(idx, Copies*len(items)-1))
}

// SnapIndex converts the centered offset to the nearest row, then scans
// forward, wrapping over all copies, to the first unplayed item. When every
// item is played the rounded row is returned.
func SnapIndex(cfg models.RouletteConfig, items []models.MatchItem, offset float64) int {
	n := len(items)
	idx := centeredIndex(cfg, items, offset)
	total := Copies * n
	for i := 0; i < total; i++ {
		j := (idx + i) % total
		if !items[j%n].Played {
			return j
		}
	}
	return idx
}

// RandomSnap draws the winner uniformly among unplayed items with rng and
// lands on it within the copy currently under the center row.
func RandomSnap(rng *rand.Rand) SnapFunc {
	return func(cfg models.RouletteConfig, items []models.MatchItem, offset float64) int {
		n := len(items)
		var eligible []int
		for i, it := range items {
			if !it.Played {
				eligible = append(eligible, i)
			}
		}
		idx := centeredIndex(cfg, items, offset)
		if len(eligible) == 0 {
			return idx
		}
		return (idx/n)*n + eligible[rng.IntN(len(eligible))]
	}
}

// Advance runs one frame of motion over items using SnapIndex.
func (s Session) Advance(cfg models.RouletteConfig, items []models.MatchItem, now time.Time) (Session, Step) {
	return s.AdvanceWith(cfg, items, now, SnapIndex)
}

// AdvanceWith runs one frame of motion. It is pure: the returned session
// replaces s and Step lists what the caller should act on.
func (s Session) AdvanceWith(cfg models.RouletteConfig, items []models.MatchItem, now time.Time, snap SnapFunc) (Session, Step) {
	var step Step
	n := len(items)
	if n == 0 || !s.State.IsAnimating() {
		return s, step
	}

	switch s.State {
	case models.GameStateSpinning:
		if s.Speed < cfg.SpinSpeed {
			s.Speed = math.Min(s.Speed+RampIncrement, cfg.SpinSpeed)
		}
	case models.GameStateStopping:
		s.Speed *= cfg.Friction
	}

	s.Offset += s.Speed

	// Wraparound only applies to free motion; the ease may aim past an edge.
	if !s.Snapping() {
		total := CycleExtent(cfg, n)
		s.Offset = math.Mod(s.Offset, total)
		if s.Offset < 0 {
			s.Offset += total
		}
	}

	idx := int(math.Floor(s.Offset / cfg.ItemHeight))
	if idx != s.LastTickIndex && s.Speed > TickMinSpeed && now.Sub(s.LastTickAt) > TickMinInterval {
		step.Tick = true
		s.LastTickIndex = idx
		s.LastTickAt = now
	}

	if s.State != models.GameStateStopping || s.Speed >= MinStopSpeed {
		return s, step
	}

	if !s.Snapping() {
		s.SnapTarget = snap(cfg, items, s.Offset)
	}

	target := PinnedOffset(cfg, s.SnapTarget)
	diff := target - s.Offset
	s.Speed = 0

	if math.Abs(diff) < SnapEpsilon {
		step.Landed = true
		step.WinnerIndex = s.SnapTarget
		step.Winner = items[s.SnapTarget%n]

		s.Offset = target
		s.SnapTarget = NoSnapTarget
		s.State = models.GameStateWon
		return s, step
	}

	s.Offset += diff * EaseFactor
	return s, step
}

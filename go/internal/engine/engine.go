package engine

import (
	"math"
	"math/rand/v2"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/roulette/go/internal/audio"
	"github.com/mcdev12/roulette/go/internal/models"
)

// Engine drives one Session frame by frame over a list of items and fires
// audio cues. It is not safe for concurrent use; a view context owns it.
type Engine struct {
	cfg    models.RouletteConfig
	clock  clockwork.Clock
	player audio.Player
	snap   SnapFunc

	session Session
	items   []models.MatchItem

	// Copy of the list the winner is shown in, kept so later re-pins of the
	// same winner do not jump between copies.
	pinnedID   string
	pinnedCopy int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to rate-limit tick cues.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithPlayer sets the audio capability.
func WithPlayer(p audio.Player) Option {
	return func(e *Engine) { e.player = audio.Safe(p) }
}

// WithRandomSnap replaces the offset-derived landing row with an explicit
// seeded draw among unplayed items.
func WithRandomSnap(rng *rand.Rand) Option {
	return func(e *Engine) { e.snap = RandomSnap(rng) }
}

// New creates an idle engine.
func New(cfg models.RouletteConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		clock:   clockwork.NewRealClock(),
		player:  audio.Nop{},
		snap:    SnapIndex,
		session: NewSession(models.GameStateIdle, 0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() models.RouletteConfig { return e.cfg }

// Session returns the current motion state.
func (e *Engine) Session() Session { return e.session }

// State returns the engine's local game state.
func (e *Engine) State() models.GameState { return e.session.State }

// Offset returns the current scroll offset in px.
func (e *Engine) Offset() float64 { return e.session.Offset }

// PinnedID returns the id of the item the engine last came to rest on.
func (e *Engine) PinnedID() string { return e.pinnedID }

// Items returns the list being animated.
func (e *Engine) Items() []models.MatchItem { return e.items }

// Start discards any session in flight and begins spinning over items
// from the current position with zero speed.
func (e *Engine) Start(items []models.MatchItem) {
	e.items = items
	next := NewSession(models.GameStateSpinning, e.session.Offset)
	next.LastTickIndex = e.session.LastTickIndex
	next.LastTickAt = e.session.LastTickAt
	e.session = next
}

// Stop begins deceleration. It only acts on a spinning engine.
func (e *Engine) Stop() bool {
	if e.session.State != models.GameStateSpinning {
		return false
	}
	e.session.State = models.GameStateStopping
	return true
}

// Attach joins a stop already in progress elsewhere, from rest at the
// current position.
func (e *Engine) Attach(items []models.MatchItem) {
	e.items = items
	next := NewSession(models.GameStateStopping, e.session.Offset)
	next.LastTickIndex = e.session.LastTickIndex
	next.LastTickAt = e.session.LastTickAt
	e.session = next
}

// Frame advances one frame and plays the cues it triggered.
func (e *Engine) Frame() Step {
	next, step := e.session.AdvanceWith(e.cfg, e.items, e.clock.Now(), e.snap)
	e.session = next

	if step.Tick {
		e.player.Play(audio.CueTick)
	}
	if step.Landed {
		e.pinnedID = step.Winner.ID
		e.pinnedCopy = step.WinnerIndex / len(e.items)
		e.player.Play(audio.CueWin)
	}
	return step
}

// PinIdle stops motion with the first item of the middle copy centered.
func (e *Engine) PinIdle(items []models.MatchItem) {
	e.items = items
	e.pinnedID = ""
	e.rest(models.GameStateIdle, len(items))
}

// PinWinner stops motion with winnerID centered. A winner that landed here
// stays in the copy it landed in; otherwise the middle copy is used. An
// unknown winner falls back to the idle position.
func (e *Engine) PinWinner(items []models.MatchItem, winnerID string) {
	e.items = items
	n := len(items)

	idx := -1
	for i, it := range items {
		if it.ID == winnerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.pinnedID = ""
		e.rest(models.GameStateWon, n)
		return
	}

	copyIdx := 1
	if e.pinnedID == winnerID {
		copyIdx = e.pinnedCopy
	}
	e.pinnedID = winnerID
	e.pinnedCopy = copyIdx
	e.rest(models.GameStateWon, copyIdx*n+idx)
}

func (e *Engine) rest(state models.GameState, index int) {
	offset := 0.0
	if len(e.items) > 0 {
		offset = PinnedOffset(e.cfg, index)
	}
	next := NewSession(state, offset)
	next.LastTickIndex = int(math.Floor(offset / e.cfg.ItemHeight))
	next.LastTickAt = e.session.LastTickAt
	e.session = next
}

// Package display holds the passive view contexts: the roulette overlay that
// animates replicated spins and the topic view that announces the winner.
// Neither writes authoritative state; the overlay only reports where its own
// spin landed.
package display

import (
	"context"
	"fmt"

	"github.com/mcdev12/roulette/go/internal/broadcast"
	"github.com/mcdev12/roulette/go/internal/engine"
	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/mcdev12/roulette/go/internal/scheduler"
	"github.com/rs/zerolog/log"
)

// DisplayFrame is what the overlay draws after each snapshot or frame.
type DisplayFrame struct {
	Connected bool                  `json:"connected"`
	GameState models.GameState      `json:"gameState"`
	Items     []models.MatchItem    `json:"items"`
	Offset    float64               `json:"offset"`
	Scores    models.Scores         `json:"scores"`
	WinnerID  string                `json:"winnerId,omitempty"`
	Config    models.RouletteConfig `json:"config"`
}

// Sink receives rendered frames.
type Sink func(DisplayFrame)

// WorkingItems is the list the overlay animates over: every unplayed item
// plus the most recent winner, so it stays on screen while WON.
func WorkingItems(snap models.SyncSnapshot) []models.MatchItem {
	winner := snap.WinnerID()
	out := make([]models.MatchItem, 0, len(snap.Items))
	for _, it := range snap.Items {
		if !it.Played || (winner != "" && it.ID == winner) {
			out = append(out, it)
		}
	}
	return out
}

// Renderer is one overlay view context. It replicates snapshots, keeps the
// animated list frozen while a spin is in motion and runs its own engine.
// It is not safe for concurrent use; Run serializes snapshots and frames.
type Renderer struct {
	engine    *engine.Engine
	loop      *scheduler.FrameLoop
	snapshots *broadcast.Channel[models.SyncSnapshot]
	outcomes  *broadcast.Channel[models.Outcome]

	connected bool
	snapshot  models.SyncSnapshot
	frozen    []models.MatchItem

	// landed is set when this renderer's own spin came to rest, until the
	// next spin or reset.
	landed bool
}

// NewRenderer creates a renderer that has not yet heard from control. Both
// channels must be bound to this view's endpoint.
func NewRenderer(eng *engine.Engine, loop *scheduler.FrameLoop, snapshots *broadcast.Channel[models.SyncSnapshot], outcomes *broadcast.Channel[models.Outcome]) *Renderer {
	return &Renderer{
		engine:    eng,
		loop:      loop,
		snapshots: snapshots,
		outcomes:  outcomes,
	}
}

// Connected reports whether any snapshot has arrived.
func (r *Renderer) Connected() bool { return r.connected }

// Items returns the list the engine animates over.
func (r *Renderer) Items() []models.MatchItem {
	if len(r.frozen) > 0 {
		return r.frozen
	}
	return WorkingItems(r.snapshot)
}

// Apply replaces the replica with snap and moves the engine to match it.
// The latest snapshot wins, except that a stop this renderer already landed
// is not restarted by a STOPPING snapshot that was sent before the outcome
// reached control.
func (r *Renderer) Apply(snap models.SyncSnapshot) {
	r.snapshot = snap.Clone()
	r.connected = true

	if r.snapshot.GameState == models.GameStateIdle || r.snapshot.GameState == models.GameStateWon {
		r.frozen = WorkingItems(r.snapshot)
	}
	items := r.Items()

	switch r.snapshot.GameState {
	case models.GameStateSpinning:
		if r.engine.State() != models.GameStateSpinning {
			r.engine.Start(items)
			r.landed = false
		}
	case models.GameStateStopping:
		switch {
		case r.engine.State() == models.GameStateSpinning:
			r.engine.Stop()
		case r.engine.State() == models.GameStateStopping:
		case r.landed:
			log.Debug().Msg("ignoring STOPPING snapshot after local landing")
		default:
			// Joined mid-stop: settle from the current position.
			r.engine.Attach(items)
		}
	case models.GameStateWon:
		r.engine.PinWinner(items, r.snapshot.WinnerID())
		r.landed = false
	default:
		r.engine.PinIdle(items)
		r.landed = false
	}

	r.syncLoop()
}

// Frame advances the engine one frame. On landing the renderer moves to WON
// locally and reports the winner to control.
func (r *Renderer) Frame(ctx context.Context) engine.Step {
	step := r.engine.Frame()
	if step.Landed {
		r.landed = true
		log.Info().
			Str("winner_id", step.Winner.ID).
			Str("text", step.Winner.Text).
			Msg("spin landed")

		if err := r.outcomes.Publish(ctx, models.Outcome{WinnerID: step.Winner.ID}); err != nil {
			log.Error().Err(err).Str("winner_id", step.Winner.ID).Msg("failed to report outcome")
		}
	}
	r.syncLoop()
	return step
}

// View renders the current local state.
func (r *Renderer) View() DisplayFrame {
	frame := DisplayFrame{
		Connected: r.connected,
		GameState: r.engine.State(),
		Items:     r.Items(),
		Offset:    r.engine.Offset(),
		Scores:    r.snapshot.Scores,
		WinnerID:  r.snapshot.WinnerID(),
		Config:    r.engine.Config(),
	}
	if r.landed {
		frame.WinnerID = r.engine.PinnedID()
	}
	return frame
}

func (r *Renderer) syncLoop() {
	if r.engine.State().IsAnimating() {
		r.loop.Arm()
		return
	}
	r.loop.Disarm()
}

// Run subscribes to snapshots and renders until ctx ends. The first frame
// sent is the disconnected one, so a late view shows it is waiting.
func (r *Renderer) Run(ctx context.Context, sink Sink) error {
	feed, err := r.snapshots.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe snapshots: %w", err)
	}
	defer feed.Close()
	defer r.loop.Disarm()

	sink(r.View())

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-feed.C():
			if !ok {
				return broadcast.ErrBusClosed
			}
			r.Apply(snap)
			sink(r.View())
		case <-r.loop.C():
			r.Frame(ctx)
			sink(r.View())
		}
	}
}

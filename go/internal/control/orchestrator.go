package control

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mcdev12/roulette/go/internal/broadcast"
	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/mcdev12/roulette/go/internal/registry"
	"github.com/rs/zerolog/log"
)

// MinEligible is the number of unplayed match-ups a spin needs.
const MinEligible = 3

var (
	ErrNotEnoughItems = fmt.Errorf("at least %d unplayed match-ups are required to spin", MinEligible)
	ErrSpinInProgress = errors.New("a spin is in progress")
	ErrUnknownSide    = errors.New("unknown side")
)

// Orchestrator is the single writer of the match registry and the game
// state. Every mutation republishes a full snapshot on the sync channel.
type Orchestrator struct {
	mu           sync.Mutex
	registry     *registry.Registry
	state        models.GameState
	lastWinnerID *string
	scores       models.Scores

	snapshots *broadcast.Channel[models.SyncSnapshot]
	outcomes  *broadcast.Channel[models.Outcome]
}

// NewOrchestrator creates an idle orchestrator over reg. Both channels must
// be bound to the same control endpoint.
func NewOrchestrator(reg *registry.Registry, snapshots *broadcast.Channel[models.SyncSnapshot], outcomes *broadcast.Channel[models.Outcome]) *Orchestrator {
	return &Orchestrator{
		registry:  reg,
		state:     models.GameStateIdle,
		snapshots: snapshots,
		outcomes:  outcomes,
	}
}

// Snapshot returns a copy of the authoritative state.
func (o *Orchestrator) Snapshot() models.SyncSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() models.SyncSnapshot {
	snap := models.SyncSnapshot{
		Items:     o.registry.Items(),
		GameState: o.state,
		Scores:    o.scores,
	}
	if o.lastWinnerID != nil {
		id := *o.lastWinnerID
		snap.LastWinnerID = &id
	}
	return snap
}

// publishLocked broadcasts the current state. A failed publish leaves the
// mutation in place; the next one will carry it.
func (o *Orchestrator) publishLocked(ctx context.Context) models.SyncSnapshot {
	snap := o.snapshotLocked()
	if err := o.snapshots.Publish(ctx, snap); err != nil {
		log.Error().
			Err(err).
			Str("game_state", string(snap.GameState)).
			Msg("failed to publish snapshot")
	}
	return snap
}

func (o *Orchestrator) requireAtRestLocked(op string) error {
	if o.state.IsAnimating() {
		log.Debug().Str("op", op).Str("game_state", string(o.state)).Msg("refused during spin")
		return ErrSpinInProgress
	}
	return nil
}

// AddMatch appends "<left> VS <right>" as a new unplayed match-up.
func (o *Orchestrator) AddMatch(ctx context.Context, left, right string) (models.MatchItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireAtRestLocked("add_match"); err != nil {
		return models.MatchItem{}, err
	}
	item, err := o.registry.Add(left, right)
	if err != nil {
		log.Debug().Err(err).Msg("add match rejected")
		return models.MatchItem{}, err
	}

	log.Info().Str("item_id", item.ID).Str("text", item.Text).Msg("match added")
	o.publishLocked(ctx)
	return item, nil
}

// EditMatch replaces the text of id, keeping its color and played flag.
func (o *Orchestrator) EditMatch(ctx context.Context, id, left, right string) (models.MatchItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireAtRestLocked("edit_match"); err != nil {
		return models.MatchItem{}, err
	}
	item, err := o.registry.Edit(id, left, right)
	if err != nil {
		log.Debug().Err(err).Str("item_id", id).Msg("edit match rejected")
		return models.MatchItem{}, err
	}

	log.Info().Str("item_id", item.ID).Str("text", item.Text).Msg("match edited")
	o.publishLocked(ctx)
	return item, nil
}

// RemoveMatch deletes id whether or not it has been played.
func (o *Orchestrator) RemoveMatch(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireAtRestLocked("remove_match"); err != nil {
		return err
	}
	if err := o.registry.Remove(id); err != nil {
		log.Debug().Err(err).Str("item_id", id).Msg("remove match rejected")
		return err
	}

	log.Info().Str("item_id", id).Msg("match removed")
	o.publishLocked(ctx)
	return nil
}

// Start begins a spin. It needs MinEligible unplayed match-ups and no spin
// already running.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireAtRestLocked("start"); err != nil {
		return err
	}
	if eligible := o.registry.EligibleCount(); eligible < MinEligible {
		log.Debug().Int("eligible", eligible).Msg("start rejected")
		return ErrNotEnoughItems
	}

	o.state = models.GameStateSpinning
	log.Info().Int("eligible", o.registry.EligibleCount()).Msg("spin started")
	o.publishLocked(ctx)
	return nil
}

// Stop asks the displays to decelerate. It only acts while spinning and
// reports whether the state changed.
func (o *Orchestrator) Stop(ctx context.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != models.GameStateSpinning {
		log.Debug().Str("game_state", string(o.state)).Msg("stop ignored")
		return false
	}

	o.state = models.GameStateStopping
	log.Info().Msg("spin stopping")
	o.publishLocked(ctx)
	return true
}

// OnOutcome records the landed winner. Only the first outcome of a stop is
// applied. An id no longer in the registry still ends the spin but marks
// nothing played.
func (o *Orchestrator) OnOutcome(ctx context.Context, winnerID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != models.GameStateStopping {
		log.Debug().
			Str("winner_id", winnerID).
			Str("game_state", string(o.state)).
			Msg("outcome ignored")
		return false
	}

	if !o.registry.MarkPlayed(winnerID) {
		log.Warn().Str("winner_id", winnerID).Msg("winner not found among unplayed match-ups")
	}
	id := winnerID
	o.lastWinnerID = &id
	o.state = models.GameStateWon

	log.Info().Str("winner_id", winnerID).Msg("winner recorded")
	o.publishLocked(ctx)
	return true
}

// ResetAll clears every played flag and the last winner and returns to
// IDLE. It also ends a spin that no display is landing. It reports whether
// anything changed; nothing is published when it did not.
func (o *Orchestrator) ResetAll(ctx context.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	changed := o.registry.ResetPlayed()
	if o.lastWinnerID != nil || o.state != models.GameStateIdle {
		changed = true
	}
	if !changed {
		return false
	}

	o.lastWinnerID = nil
	o.state = models.GameStateIdle
	log.Info().Msg("roulette reset")
	o.publishLocked(ctx)
	return true
}

// AdjustScore adds delta to side's score, never going below zero.
func (o *Orchestrator) AdjustScore(ctx context.Context, side models.Side, delta int) (models.Scores, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch side {
	case models.SideA:
		o.scores.A = max(0, o.scores.A+delta)
	case models.SideB:
		o.scores.B = max(0, o.scores.B+delta)
	default:
		return o.scores, fmt.Errorf("%w: %q", ErrUnknownSide, side)
	}

	log.Debug().Str("side", string(side)).Int("delta", delta).Msg("score adjusted")
	o.publishLocked(ctx)
	return o.scores, nil
}

// ResetScores zeroes both sides.
func (o *Orchestrator) ResetScores(ctx context.Context) models.Scores {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.scores = models.Scores{}
	o.publishLocked(ctx)
	return o.scores
}

// Republish broadcasts the current state unchanged so views that attached
// late can leave their waiting state.
func (o *Orchestrator) Republish(ctx context.Context) models.SyncSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	log.Debug().Msg("republishing snapshot")
	return o.publishLocked(ctx)
}

// Run applies outcomes reported on the outcome channel until ctx ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	feed, err := o.outcomes.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe outcomes: %w", err)
	}
	defer feed.Close()

	log.Info().Str("endpoint", o.outcomes.Endpoint()).Msg("control orchestrator listening for outcomes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case out, ok := <-feed.C():
			if !ok {
				return broadcast.ErrBusClosed
			}
			o.OnOutcome(ctx, out.WinnerID)
		}
	}
}

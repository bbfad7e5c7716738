package display

import (
	"context"
	"fmt"

	"github.com/mcdev12/roulette/go/internal/broadcast"
	"github.com/mcdev12/roulette/go/internal/models"
)

// TopicPhase is what the topic view is currently announcing.
type TopicPhase string

const (
	TopicWaiting   TopicPhase = "waiting"
	TopicIdle      TopicPhase = "idle"
	TopicSelecting TopicPhase = "selecting"
	TopicWon       TopicPhase = "won"
)

// TopicFrame is the large-format announcement of the selected match-up.
type TopicFrame struct {
	Connected bool       `json:"connected"`
	Phase     TopicPhase `json:"phase"`
	WinnerID  string     `json:"winnerId,omitempty"`
	Left      string     `json:"left,omitempty"`
	Right     string     `json:"right,omitempty"`
}

// Topic replicates snapshots and shows only the winning match-up. It never
// animates.
type Topic struct {
	snapshots *broadcast.Channel[models.SyncSnapshot]

	connected bool
	snapshot  models.SyncSnapshot
}

// NewTopic creates a topic view bound to its own endpoint.
func NewTopic(snapshots *broadcast.Channel[models.SyncSnapshot]) *Topic {
	return &Topic{snapshots: snapshots}
}

// Apply replaces the replica with snap.
func (t *Topic) Apply(snap models.SyncSnapshot) {
	t.snapshot = snap.Clone()
	t.connected = true
}

// View renders the current replica. A WON state whose winner is no longer
// listed shows as idle.
func (t *Topic) View() TopicFrame {
	if !t.connected {
		return TopicFrame{Phase: TopicWaiting}
	}

	frame := TopicFrame{Connected: true, Phase: TopicIdle}
	switch t.snapshot.GameState {
	case models.GameStateSpinning, models.GameStateStopping:
		frame.Phase = TopicSelecting
	case models.GameStateWon:
		winner, ok := t.snapshot.FindItem(t.snapshot.WinnerID())
		if !ok {
			break
		}
		frame.Phase = TopicWon
		frame.WinnerID = winner.ID
		frame.Left, frame.Right = winner.Sides()
	}
	return frame
}

// Run subscribes to snapshots and renders each one until ctx ends.
func (t *Topic) Run(ctx context.Context, sink func(TopicFrame)) error {
	feed, err := t.snapshots.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe snapshots: %w", err)
	}
	defer feed.Close()

	sink(t.View())

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-feed.C():
			if !ok {
				return broadcast.ErrBusClosed
			}
			t.Apply(snap)
			sink(t.View())
		}
	}
}

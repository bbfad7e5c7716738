package display

import (
	"context"
	"testing"
	"time"

	"github.com/mcdev12/roulette/go/internal/broadcast"
	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_View(t *testing.T) {
	bus := broadcast.NewMemoryBus(0)
	defer bus.Close()
	topic := NewTopic(broadcast.NewChannel[models.SyncSnapshot](bus, broadcast.SnapshotChannel, "topic"))

	assert.Equal(t, TopicFrame{Phase: TopicWaiting}, topic.View())

	topic.Apply(snapshot(models.GameStateIdle, matchItems(), ""))
	assert.Equal(t, TopicFrame{Connected: true, Phase: TopicIdle}, topic.View())

	topic.Apply(snapshot(models.GameStateStopping, matchItems(), ""))
	assert.Equal(t, TopicSelecting, topic.View().Phase)

	topic.Apply(snapshot(models.GameStateWon, matchItems(), "cd"))
	assert.Equal(t, TopicFrame{
		Connected: true,
		Phase:     TopicWon,
		WinnerID:  "cd",
		Left:      "C",
		Right:     "D",
	}, topic.View())

	topic.Apply(snapshot(models.GameStateWon, matchItems(), "gone"))
	assert.Equal(t, TopicIdle, topic.View().Phase)
}

func TestTopic_Run(t *testing.T) {
	bus := broadcast.NewMemoryBus(0)
	defer bus.Close()
	topic := NewTopic(broadcast.NewChannel[models.SyncSnapshot](bus, broadcast.SnapshotChannel, "topic"))
	control := broadcast.NewChannel[models.SyncSnapshot](bus, broadcast.SnapshotChannel, "control")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan TopicFrame, 16)
	go func() { _ = topic.Run(ctx, func(f TopicFrame) { frames <- f }) }()

	next := func() TopicFrame {
		t.Helper()
		select {
		case f := <-frames:
			return f
		case <-time.After(time.Second):
			t.Fatal("no topic frame")
			return TopicFrame{}
		}
	}

	assert.Equal(t, TopicWaiting, next().Phase)

	require.Eventually(t, func() bool {
		return bus.Subscribers(broadcast.SnapshotChannel) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, control.Publish(ctx, snapshot(models.GameStateSpinning, matchItems(), "")))

	assert.Equal(t, TopicSelecting, next().Phase)
}

package scheduler

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameLoop_Interval(t *testing.T) {
	assert.Equal(t, time.Second/60, NewFrameLoop(nil, 0).Interval())
	assert.Equal(t, time.Second/30, NewFrameLoop(nil, 30).Interval())
}

func TestFrameLoop_ArmDisarm(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := NewFrameLoop(clock, 50)

	assert.Nil(t, loop.C(), "disarmed loop has no channel")
	assert.False(t, loop.Armed())

	loop.Arm()
	first := loop.C()
	loop.Arm()
	require.True(t, loop.Armed())
	assert.Equal(t, first, loop.C(), "arming twice keeps the same ticker")

	clock.Advance(loop.Interval())
	select {
	case <-loop.C():
	case <-time.After(time.Second):
		t.Fatal("no frame after one interval")
	}

	loop.Disarm()
	loop.Disarm()
	assert.False(t, loop.Armed())
	assert.Nil(t, loop.C())
}

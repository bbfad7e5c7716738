package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafe(t *testing.T) {
	t.Run("forwards cues", func(t *testing.T) {
		var got []Cue
		p := Safe(Func(func(c Cue) { got = append(got, c) }))

		p.Play(CueTick)
		p.Play(CueWin)

		assert.Equal(t, []Cue{CueTick, CueWin}, got)
	})

	t.Run("swallows a panicking player", func(t *testing.T) {
		p := Safe(Func(func(Cue) { panic("no audio device") }))
		assert.NotPanics(t, func() { p.Play(CueWin) })
	})

	t.Run("treats nil as silent", func(t *testing.T) {
		assert.NotPanics(t, func() { Safe(nil).Play(CueTick) })
	})
}

// Package audio defines the sound capability the selection engine invokes.
// The sounds themselves are synthesized by whatever renders the view.
package audio

import "github.com/rs/zerolog/log"

// Cue identifies a sound trigger.
type Cue string

const (
	// CueTick is the short percussive click for each row passing the center.
	CueTick Cue = "tick"
	// CueWin is the multi-note fanfare played once on landing.
	CueWin Cue = "win"
)

// Player plays cues. Implementations must not block the caller.
type Player interface {
	Play(cue Cue)
}

// Nop is a Player that stays silent.
type Nop struct{}

func (Nop) Play(Cue) {}

// Func adapts a function to Player.
type Func func(cue Cue)

func (f Func) Play(cue Cue) { f(cue) }

// Safe wraps p so a failing player degrades to silence instead of stopping
// the caller. A nil p is treated as Nop.
func Safe(p Player) Player {
	if p == nil {
		return Nop{}
	}
	return safePlayer{p: p}
}

type safePlayer struct {
	p Player
}

func (s safePlayer) Play(cue Cue) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Str("cue", string(cue)).Msg("audio unavailable, continuing silently")
		}
	}()
	s.p.Play(cue)
}

package replay

import (
	"recurrent-dqn/internal/env"
	"recurrent-dqn/internal/frame"
)

// Transition is a single agent step. Frames are shared by pointer: a
// transition's Next is the same frame as the following transition's Frame.
type Transition struct {
	Frame  *frame.Frame
	Action env.Action
	Reward float32
	// Next is the frame observed after acting, nil exactly when this
	// transition ends the episode.
	Next *frame.Frame
}

// Terminal reports whether this transition ended its episode.
func (t Transition) Terminal() bool {
	return t.Next == nil
}

// Episode is one complete trajectory from environment reset to termination,
// immutable once recorded.
type Episode []Transition

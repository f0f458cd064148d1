// Package engine defines the value-function collaborator interface consumed
// by the training core, the staging batch marshalled into it, and a reference
// linear implementation.
package engine

import (
	"recurrent-dqn/internal/frame"
)

// Window is the temporal context for one decision point: framesPerTimestep
// consecutive frames, oldest first.
type Window []*frame.Frame

// Engine is the only surface through which the core touches trainable
// parameters. Three logical roles share this one interface: the live training
// instance, the evaluation instance (weight-shared with the live one), and
// the periodically frozen target clone produced by Clone.
type Engine interface {
	// EvaluateBatch runs a forward pass over a batch of frame windows and
	// returns, per input, one Q-value for each legal action. cont[i]
	// reports whether recurrent state for batch slot i carries over from
	// the previous call; false resets it to zero.
	EvaluateBatch(windows []Window, cont []bool) ([][]float32, error)

	// TrainStep performs one optimization step minimizing the squared
	// error between predicted and target Q-values at the (position,
	// action) pairs flagged in the batch's filter tensor, and advances
	// the iteration counter.
	TrainStep(b *Batch) error

	// Clone returns an independent frozen parameter copy that does not
	// share mutation with its source, used for bootstrapped targets.
	Clone() (Engine, error)

	// Iteration returns the number of completed training steps.
	Iteration() int

	SaveWeights(path string) error
	LoadWeights(path string) error
	SaveSolver(path string) error
	LoadSolver(path string) error
}

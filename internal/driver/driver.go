// Package driver runs the environment-interaction loop: play episodes with
// the selector, record them into replay memory, trigger updates, and snapshot
// periodically.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"recurrent-dqn/internal/config"
	"recurrent-dqn/internal/dqn"
	"recurrent-dqn/internal/engine"
	"recurrent-dqn/internal/env"
	"recurrent-dqn/internal/frame"
	"recurrent-dqn/internal/replay"
	"recurrent-dqn/internal/snapshot"
)

// Runner wires the agent together. All fields must be set before Run.
type Runner struct {
	Env       env.Environment
	Selector  *dqn.Selector
	Trainer   *dqn.Trainer
	Memory    *replay.Memory
	Snapshots *snapshot.Coordinator

	Episodes          int
	FramesPerTimestep int
	Algorithm         string
	EpsilonStart      float64
	EpsilonEnd        float64
	EpsilonDecaySteps int
	SnapshotPrefix    string
	SnapshotEvery     int // episodes between snapshots, 0 disables

	Logger zerolog.Logger

	steps int // environment steps taken, drives epsilon decay
}

func (r *Runner) Run(ctx context.Context) error {
	if r.Episodes <= 0 {
		return errors.New("episodes must be > 0")
	}
	if r.FramesPerTimestep <= 0 {
		return errors.New("frames per timestep must be > 0")
	}
	if r.Algorithm != config.AlgorithmSequential && r.Algorithm != config.AlgorithmRandom {
		return fmt.Errorf("unknown update algorithm %q", r.Algorithm)
	}

	for episode := 1; episode <= r.Episodes; episode++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		recorded, reward, err := r.playEpisode()
		if err != nil {
			return err
		}
		r.Memory.Append(recorded)

		steps, err := r.update()
		if err != nil && !errors.Is(err, dqn.ErrNoEligibleEpisode) {
			return err
		}

		r.Logger.Info().
			Int("episode", episode).
			Int("length", len(recorded)).
			Float32("reward", reward).
			Float64("epsilon", r.epsilon()).
			Int("train_steps", steps).
			Int("memory_transitions", r.Memory.Size()).
			Msg("episode complete")

		if r.SnapshotEvery > 0 && episode%r.SnapshotEvery == 0 {
			if err := r.Snapshots.Snapshot(r.SnapshotPrefix, true, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) update() (int, error) {
	if r.Algorithm == config.AlgorithmSequential {
		return r.Trainer.UpdateSequential()
	}
	return r.Trainer.UpdateRandom()
}

// epsilon decays linearly with environment steps from start to end.
func (r *Runner) epsilon() float64 {
	if r.steps >= r.EpsilonDecaySteps {
		return r.EpsilonEnd
	}
	frac := float64(r.steps) / float64(r.EpsilonDecaySteps)
	return r.EpsilonStart + frac*(r.EpsilonEnd-r.EpsilonStart)
}

// playEpisode runs one trajectory from reset to termination and returns the
// recorded episode and its total reward.
func (r *Runner) playEpisode() (replay.Episode, float32, error) {
	screen := r.Env.Reset()
	current := frame.Preprocess(screen)

	// The history window starts out padded with the reset frame.
	window := make(engine.Window, r.FramesPerTimestep)
	for i := range window {
		window[i] = current
	}

	var (
		recorded replay.Episode
		total    float32
		cont     bool
	)
	for {
		action, err := r.Selector.SelectAction(window, r.epsilon(), cont)
		if err != nil {
			return nil, 0, fmt.Errorf("driver: select action: %w", err)
		}
		cont = true

		screen, reward, done := r.Env.Step(action)
		r.steps++
		total += reward

		transition := replay.Transition{Frame: current, Action: action, Reward: reward}
		if !done {
			next := frame.Preprocess(screen)
			transition.Next = next
			current = next
			window = append(window[1:], next)
		}
		recorded = append(recorded, transition)
		if done {
			return recorded, total, nil
		}
	}
}

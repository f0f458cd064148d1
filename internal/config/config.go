// Package config holds the YAML configuration surface of the trainer.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Update algorithm names.
const (
	AlgorithmSequential = "sequential"
	AlgorithmRandom     = "random"
)

type Config struct {
	// Learning core.
	ReplayCapacity    int     `yaml:"replay_capacity"`
	Gamma             float64 `yaml:"gamma"`
	CloneEvery        int     `yaml:"clone_every"`
	Unroll            int     `yaml:"unroll"`
	MinibatchSize     int     `yaml:"minibatch_size"`
	FramesPerTimestep int     `yaml:"frames_per_timestep"`
	Seed              int64   `yaml:"seed"`

	// Trainer loop.
	Algorithm         string  `yaml:"algorithm"`
	Episodes          int     `yaml:"episodes"`
	LearningRate      float64 `yaml:"learning_rate"`
	EpsilonStart      float64 `yaml:"epsilon_start"`
	EpsilonEnd        float64 `yaml:"epsilon_end"`
	EpsilonDecaySteps int     `yaml:"epsilon_decay_steps"`
	SnapshotPrefix    string  `yaml:"snapshot_prefix"`
	SnapshotEvery     int     `yaml:"snapshot_every"`
}

func Default() Config {
	return Config{
		ReplayCapacity:    50000,
		Gamma:             0.95,
		CloneEvery:        500,
		Unroll:            10,
		MinibatchSize:     8,
		FramesPerTimestep: 1,
		Seed:              0,
		Algorithm:         AlgorithmRandom,
		Episodes:          1000,
		LearningRate:      0.001,
		EpsilonStart:      1.0,
		EpsilonEnd:        0.1,
		EpsilonDecaySteps: 100000,
		SnapshotPrefix:    "snapshots/drqn",
		SnapshotEvery:     50,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ReplayCapacity <= 0 {
		return errors.New("replay_capacity must be greater than zero")
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		return errors.New("gamma must be in (0,1]")
	}
	if c.CloneEvery <= 0 {
		return errors.New("clone_every must be greater than zero")
	}
	if c.Unroll <= 0 {
		return errors.New("unroll must be greater than zero")
	}
	if c.MinibatchSize <= 0 {
		return errors.New("minibatch_size must be greater than zero")
	}
	if c.FramesPerTimestep <= 0 {
		return errors.New("frames_per_timestep must be greater than zero")
	}
	if c.Algorithm != AlgorithmSequential && c.Algorithm != AlgorithmRandom {
		return fmt.Errorf("algorithm must be %q or %q", AlgorithmSequential, AlgorithmRandom)
	}
	if c.Episodes <= 0 {
		return errors.New("episodes must be greater than zero")
	}
	if c.LearningRate <= 0 {
		return errors.New("learning_rate must be greater than zero")
	}
	if c.EpsilonStart < 0 || c.EpsilonStart > 1 || c.EpsilonEnd < 0 || c.EpsilonEnd > 1 {
		return errors.New("epsilon bounds must be in [0,1]")
	}
	if c.EpsilonDecaySteps <= 0 {
		return errors.New("epsilon_decay_steps must be greater than zero")
	}
	if c.SnapshotEvery < 0 {
		return errors.New("snapshot_every must not be negative")
	}
	if c.SnapshotEvery > 0 && c.SnapshotPrefix == "" {
		return errors.New("snapshot_prefix required when snapshot_every is set")
	}
	return nil
}

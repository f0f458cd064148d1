package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"recurrent-dqn/internal/config"
	"recurrent-dqn/internal/dqn"
	"recurrent-dqn/internal/driver"
	"recurrent-dqn/internal/engine"
	"recurrent-dqn/internal/env"
	"recurrent-dqn/internal/replay"
	"recurrent-dqn/internal/snapshot"
)

func main() {
	configPath := flag.String("config", getenv("DRQN_CONFIG", "config.yaml"), "path to configuration file")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", *configPath).Msg("no config file, using defaults")
			cfg = config.Default()
		} else {
			logger.Fatal().Err(err).Msg("load config")
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	game := env.NewBounce(rand.New(rand.NewSource(seed + 1)))
	legal := game.LegalActions()

	eng, err := engine.NewLinear(len(legal), float32(cfg.LearningRate))
	if err != nil {
		logger.Fatal().Err(err).Msg("create engine")
	}
	memory, err := replay.NewMemory(cfg.ReplayCapacity, rng)
	if err != nil {
		logger.Fatal().Err(err).Msg("create replay memory")
	}
	snapshots := snapshot.NewCoordinator(eng, memory, logger)

	if cfg.SnapshotEvery > 0 {
		if err := os.MkdirAll(filepath.Dir(cfg.SnapshotPrefix), 0o755); err != nil {
			logger.Fatal().Err(err).Msg("create snapshot directory")
		}
		iter, err := snapshot.FindLatest(cfg.SnapshotPrefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("scan snapshots")
		}
		if iter >= 0 {
			if err := snapshots.Restore(cfg.SnapshotPrefix, iter); err != nil {
				logger.Fatal().Err(err).Msg("restore snapshot")
			}
		} else {
			logger.Info().Str("prefix", cfg.SnapshotPrefix).Msg("no complete snapshot found, starting fresh")
		}
	}

	selector, err := dqn.NewSelector(eng, legal, cfg.MinibatchSize, rng)
	if err != nil {
		logger.Fatal().Err(err).Msg("create selector")
	}
	trainer, err := dqn.NewTrainer(eng, memory, legal, dqn.TrainerConfig{
		Gamma:             float32(cfg.Gamma),
		CloneEvery:        cfg.CloneEvery,
		Unroll:            cfg.Unroll,
		MinibatchSize:     cfg.MinibatchSize,
		FramesPerTimestep: cfg.FramesPerTimestep,
	}, rng, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create trainer")
	}

	runner := &driver.Runner{
		Env:               game,
		Selector:          selector,
		Trainer:           trainer,
		Memory:            memory,
		Snapshots:         snapshots,
		Episodes:          cfg.Episodes,
		FramesPerTimestep: cfg.FramesPerTimestep,
		Algorithm:         cfg.Algorithm,
		EpsilonStart:      cfg.EpsilonStart,
		EpsilonEnd:        cfg.EpsilonEnd,
		EpsilonDecaySteps: cfg.EpsilonDecaySteps,
		SnapshotPrefix:    cfg.SnapshotPrefix,
		SnapshotEvery:     cfg.SnapshotEvery,
		Logger:            logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Int64("seed", seed).
		Str("algorithm", cfg.Algorithm).
		Int("capacity", cfg.ReplayCapacity).
		Msg("training starts")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("training failed")
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

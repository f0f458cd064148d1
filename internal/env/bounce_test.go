package env_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"recurrent-dqn/internal/env"
)

func TestBounceScreenGeometry(t *testing.T) {
	b := env.NewBounce(rand.New(rand.NewSource(1)))
	s := b.Reset()

	require.Equal(t, 160, s.Width)
	require.Equal(t, 210, s.Height)
	require.Greater(t, s.Height, s.Width)
	require.Len(t, s.Pixels, s.Width*s.Height)
}

func TestBounceLegalActions(t *testing.T) {
	b := env.NewBounce(rand.New(rand.NewSource(2)))
	require.Equal(t, []env.Action{0, 1, 2}, b.LegalActions())
}

func TestBounceEpisodeTerminates(t *testing.T) {
	b := env.NewBounce(rand.New(rand.NewSource(3)))
	b.Reset()

	done := false
	for i := 0; i < env.MaxSteps() && !done; i++ {
		var reward float32
		_, reward, done = b.Step(0)
		require.Contains(t, []float32{-1, 0, 1}, reward)
	}
	require.True(t, done)
}

func TestBounceResetStartsFresh(t *testing.T) {
	b := env.NewBounce(rand.New(rand.NewSource(4)))
	b.Reset()
	done := false
	for !done {
		_, _, done = b.Step(0)
	}

	s := b.Reset()
	require.NotNil(t, s)
	_, _, done = b.Step(0)
	require.False(t, done)
}

func TestBounceRendersSprites(t *testing.T) {
	b := env.NewBounce(rand.New(rand.NewSource(5)))
	s := b.Reset()

	counts := map[uint8]int{}
	for _, px := range s.Pixels {
		counts[px]++
	}
	// A fresh screen holds the paddle, the ball, and background.
	require.Equal(t, 16*3, counts[0x1e])
	require.Equal(t, 3*3, counts[0x0e])
	require.Equal(t, len(s.Pixels)-16*3-3*3, counts[0])
}

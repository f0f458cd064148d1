package frame_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"recurrent-dqn/internal/env"
	"recurrent-dqn/internal/frame"
)

func randomScreen(seed int64) *env.Screen {
	rng := rand.New(rand.NewSource(seed))
	s := &env.Screen{Width: 160, Height: 210}
	s.Pixels = make([]uint8, s.Width*s.Height)
	for i := range s.Pixels {
		s.Pixels[i] = uint8(rng.Intn(256))
	}
	return s
}

func TestPreprocessDeterministic(t *testing.T) {
	s := randomScreen(7)
	a := frame.Preprocess(s)
	b := frame.Preprocess(s)
	require.Equal(t, a, b)

	// Same content in a fresh buffer, not just the same buffer.
	c := frame.Preprocess(randomScreen(7))
	require.Equal(t, a, c)
}

func TestPreprocessUniformScreen(t *testing.T) {
	const pixel = 0x0e // 0xececec, gray 236
	s := &env.Screen{Width: 160, Height: 210}
	s.Pixels = make([]uint8, s.Width*s.Height)
	for i := range s.Pixels {
		s.Pixels[i] = pixel
	}
	want := frame.Grayscale(pixel)
	out := frame.Preprocess(s)
	for i, v := range out {
		require.Equal(t, want, v, "pixel %d", i)
	}
}

func TestGrayscaleLuminosity(t *testing.T) {
	// 0x02 -> 0x4a4a4a: equal channels keep their value.
	require.Equal(t, uint8(0x4a), frame.Grayscale(0x02))
	// 0x40 -> 0x940000: pure red is weighted by 0.21.
	red := float64(0x94) * 0.21
	require.Equal(t, uint8(red), frame.Grayscale(0x40))
	// Odd palette entries are unused and map to black.
	require.Equal(t, uint8(0), frame.Grayscale(0x41))
}

func TestPreprocessContractViolations(t *testing.T) {
	require.Panics(t, func() {
		frame.Preprocess(&env.Screen{Width: 210, Height: 160, Pixels: make([]uint8, 210*160)})
	})
	require.Panics(t, func() {
		frame.Preprocess(&env.Screen{Width: 160, Height: 210, Pixels: make([]uint8, 10)})
	})
}

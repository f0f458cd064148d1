package env

// Action is an index into an environment's legal-action list. The index is
// stable for the lifetime of the process.
type Action int

// Screen is a raw emulator frame. Pixels are NTSC palette bytes in row-major
// order; Width must be strictly less than Height.
type Screen struct {
	Width  int
	Height int
	Pixels []uint8
}

// Environment supplies raw screens on demand and a fixed legal-action set at
// construction time.
type Environment interface {
	// Reset starts a new episode and returns the initial screen.
	Reset() *Screen
	// Step applies an action and returns the resulting screen, the reward,
	// and whether the episode terminated.
	Step(a Action) (*Screen, float32, bool)
	// LegalActions returns the fixed action set.
	LegalActions() []Action
}

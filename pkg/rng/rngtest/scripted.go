// Package rngtest provides a scripted rng.Source for tests that need to steer
// individual draws.
package rngtest

import "fmt"

// Scripted replays fixed draws. Floats feeds Float64, Ints feeds IntN (the
// value returned, not the 1-based roll). Shuffle leaves the order unchanged.
// Running out of scripted values panics so tests notice unexpected draws.
type Scripted struct {
	Floats []float64
	Ints   []int

	FloatCalls int
	IntCalls   int
}

func (s *Scripted) Float64() float64 {
	if s.FloatCalls >= len(s.Floats) {
		panic(fmt.Sprintf("rngtest: unexpected Float64 draw #%d", s.FloatCalls+1))
	}
	v := s.Floats[s.FloatCalls]
	s.FloatCalls++
	return v
}

func (s *Scripted) IntN(n int) int {
	if s.IntCalls >= len(s.Ints) {
		panic(fmt.Sprintf("rngtest: unexpected IntN(%d) draw #%d", n, s.IntCalls+1))
	}
	v := s.Ints[s.IntCalls]
	s.IntCalls++
	if v < 0 || v >= n {
		panic(fmt.Sprintf("rngtest: scripted value %d out of range for IntN(%d)", v, n))
	}
	return v
}

func (s *Scripted) Shuffle(n int, swap func(i, j int)) {}

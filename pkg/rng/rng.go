// Package rng implements the weighted and probabilistic selection used to
// pick scenarios, inventory items, text choices and instructions.
//
// # Determinism
//
// Every selection draws from an injected Source. Given the same seed and the
// same inputs, a Source returned by NewSource produces the same sequence of
// choices, which makes a full scenario evaluation reproducible.
//
// # Weights
//
// A choice reports its odds through the Weighted interface. For single picks
// the odds act as a relative weight and default to 1 when absent. For
// independent picks the odds are a 0-100 percentage and choices without
// explicit odds are never included.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
)

// ErrInternalInvariant is returned when a weighted pick over a non-empty
// collection runs past its cumulative weight without choosing anything.
var ErrInternalInvariant = errors.New("internal invariant violated")

// Source is the uniform random generator behind every selection.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Weighted is implemented by anything that can be selected.
type Weighted interface {
	// Weight returns the explicit odds of the choice, if any.
	Weight() (int, bool)
}

// NewSource returns a deterministic Source for seed.
// Any string is a valid seed; it is hashed into the two PCG seed words.
func NewSource(seed string) *rand.Rand {
	// Non-cryptographic PRNG is intentional: runs must be reproducible.
	// #nosec G404
	return rand.New(rand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b")))
}

func seedWord(seed string, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed + ":" + salt))
	return h.Sum64()
}

// NewSeed generates a fresh seed using crypto/rand.
func NewSeed() (string, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random seed: %w", err)
	}
	return strconv.FormatUint(binary.LittleEndian.Uint64(b[:])>>1, 10), nil
}

// Roll returns a uniform integer in [1, sides].
func Roll(src Source, sides int) int {
	return src.IntN(sides) + 1
}

func weightOf(w Weighted) int {
	if odds, ok := w.Weight(); ok {
		return odds
	}
	return 1
}

// Pick chooses one element of choices with probability proportional to its
// weight. A single choice is returned without drawing from src.
func Pick[T Weighted](src Source, choices []T) (T, bool, error) {
	var zero T
	switch len(choices) {
	case 0:
		return zero, false, nil
	case 1:
		return choices[0], true, nil
	}

	total := 0
	for _, c := range choices {
		total += weightOf(c)
	}
	if total < 1 {
		return zero, false, nil
	}

	roll := Roll(src, total)
	acc := 0
	for _, c := range choices {
		acc += weightOf(c)
		if acc >= roll {
			return c, true, nil
		}
	}

	return zero, false, fmt.Errorf("%w: no choice for roll %d with total weight %d", ErrInternalInvariant, roll, total)
}

// MaybePick draws once against probability (0-1) and, when the draw passes,
// delegates to Pick.
func MaybePick[T Weighted](src Source, choices []T, probability float64) (T, bool, error) {
	if src.Float64() < probability {
		return Pick(src, choices)
	}
	var zero T
	return zero, false, nil
}

// PickSome rolls a d100 for every choice with explicit odds and keeps the
// choice when the roll is at most odds*scale. Input order is preserved.
// A scale above 1 raises the chance of inclusion, below 1 lowers it.
func PickSome[T Weighted](src Source, choices []T, scale float64) []T {
	var chosen []T
	for _, c := range choices {
		odds, ok := c.Weight()
		if !ok {
			continue
		}
		if float64(Roll(src, 100)) <= float64(odds)*scale {
			chosen = append(chosen, c)
		}
	}
	return chosen
}

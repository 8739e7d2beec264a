// Package generate builds one randomly-parameterized circuit per task index.
// A task seeds its own generator from the shared seed array before the first
// draw, so output depends only on (seed, width, depth) and never on which
// worker or in which order the task ran.
package generate

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/amartinfer/qcbatch/circuit"
	"github.com/amartinfer/qcbatch/unitary"
)

var (
	ErrIndexOutOfRange = errors.New("generate: task index out of seed range")
	ErrInvalidWidth    = errors.New("generate: width must be at least 1")
	ErrInvalidDepth    = errors.New("generate: depth must not be negative")
)

// Generate deterministically builds the output pair for one task: the full
// circuit ending in a terminal read-out, and an independent snapshot taken
// just before the read-out was appended.
//
// Per layer it draws one uniform permutation of the lanes, pairs consecutive
// entries (an odd leftover lane sits the layer out), and appends the
// decomposition of one Haar-random pair unitary per pair, mapped back to
// global lane indices. Identity primitives append nothing.
//
// The seed slice is read only; the random generator lives and dies inside
// the call.
func Generate(index int, seeds []int64, width, depth int) (full, reduced *circuit.Circuit, err error) {
	if index < 0 || index >= len(seeds) {
		return nil, nil, errors.Wrapf(ErrIndexOutOfRange, "index %d with %d seeds", index, len(seeds))
	}
	if width < 1 {
		return nil, nil, errors.Wrapf(ErrInvalidWidth, "got %d", width)
	}
	if depth < 0 {
		return nil, nil, errors.Wrapf(ErrInvalidDepth, "got %d", depth)
	}

	// Seeding must come before any draw. The generator is task local; a
	// shared or ambient one would let concurrent tasks entangle their
	// streams and silently replicate output.
	r := rand.New(rand.NewSource(seeds[index]))

	c, err := circuit.New(width)
	if err != nil {
		return nil, nil, err
	}

	for layer := 0; layer < depth; layer++ {
		perm := r.Perm(width)
		for p := 0; p+1 < width; p += 2 {
			a, b := perm[p], perm[p+1]
			m := unitary.Haar(r)
			for _, prim := range unitary.Decompose(m) {
				if prim.Kind == circuit.KindIdentity {
					continue
				}
				lanes := make([]int, len(prim.Lanes))
				for i, rel := range prim.Lanes {
					if rel == 0 {
						lanes[i] = a
					} else {
						lanes[i] = b
					}
				}
				if err := c.Append(circuit.Instruction{
					Kind:   prim.Kind,
					Lanes:  lanes,
					Params: prim.Params,
				}); err != nil {
					return nil, nil, errors.Wrapf(err, "layer %d pair (%d,%d)", layer, a, b)
				}
			}
		}
	}

	reduced = c.Snapshot()
	if err := c.MeasureAll(); err != nil {
		return nil, nil, err
	}
	return c, reduced, nil
}

// Package seed draws the per-task seed array. All seeds for a run come from
// one source, before any dispatch, so no two workers can ever re-derive the
// same "random" stream from a shared clock or a forked generator.
package seed

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/valyala/fastrand"
)

var ErrBadCount = errors.New("seed: count must be positive")

// Draw returns n independently drawn seeds from process-local entropy.
func Draw(n int) ([]int64, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrBadCount, "got %d", n)
	}
	seeds := make([]int64, n)
	for i := range seeds {
		hi := int64(fastrand.Uint32())
		lo := int64(fastrand.Uint32())
		seeds[i] = hi<<32 | lo
	}
	return seeds, nil
}

// DrawDeterministic returns n seeds derived from a single master seed, for
// reproducible runs. Equal (master, n) always yields the same array.
func DrawDeterministic(master int64, n int) ([]int64, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrBadCount, "got %d", n)
	}
	r := rand.New(rand.NewSource(master))
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = r.Int63()
	}
	return seeds, nil
}

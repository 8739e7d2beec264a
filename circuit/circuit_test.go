package circuit

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadWidth(t *testing.T) {
	for _, width := range []int{0, -1, -100} {
		_, err := New(width)
		assert.True(t, errors.Is(err, ErrInvalidWidth), "width %d", width)
	}
}

func TestAppendValidation(t *testing.T) {
	c, err := New(3)
	require.NoError(t, err)

	assert.NoError(t, c.Append(Instruction{Kind: KindPhase, Lanes: []int{0}, Params: []float64{0.5}}))
	assert.NoError(t, c.Append(Instruction{Kind: KindRotation3, Lanes: []int{2}, Params: []float64{1, 2, 3}}))
	assert.NoError(t, c.Append(Instruction{Kind: KindCoupling, Lanes: []int{0, 2}}))
	assert.Equal(t, 3, c.Len())

	err = c.Append(Instruction{Kind: KindPhase, Lanes: []int{3}, Params: []float64{0.5}})
	assert.True(t, errors.Is(err, ErrLaneOutOfRange))

	err = c.Append(Instruction{Kind: KindPhase, Lanes: []int{-1}, Params: []float64{0.5}})
	assert.True(t, errors.Is(err, ErrLaneOutOfRange))

	err = c.Append(Instruction{Kind: KindPhase, Lanes: []int{0}})
	assert.True(t, errors.Is(err, ErrBadArity))

	err = c.Append(Instruction{Kind: KindCoupling, Lanes: []int{1, 1}})
	assert.True(t, errors.Is(err, ErrLaneOutOfRange))

	err = c.Append(Instruction{Kind: KindMeasure, Lanes: []int{0}})
	assert.True(t, errors.Is(err, ErrBadKind))

	err = c.Append(Instruction{Kind: Kind(42), Lanes: []int{0}})
	assert.True(t, errors.Is(err, ErrBadKind))

	// nothing invalid landed
	assert.Equal(t, 3, c.Len())
}

func TestAppendDropsIdentity(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)
	require.NoError(t, c.Append(Instruction{Kind: KindIdentity, Lanes: []int{0}}))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.CountKind(KindIdentity))
}

func TestMeasureAllOnce(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	require.NoError(t, c.MeasureAll())
	assert.True(t, c.Measured())
	assert.Equal(t, 1, c.Len())

	ins := c.Instructions()
	require.Len(t, ins, 1)
	assert.Equal(t, KindMeasure, ins[0].Kind)
	assert.Equal(t, []int{0, 1, 2, 3}, ins[0].Lanes)

	assert.True(t, errors.Is(c.MeasureAll(), ErrMeasured))
	err = c.Append(Instruction{Kind: KindPhase, Lanes: []int{0}, Params: []float64{1}})
	assert.True(t, errors.Is(err, ErrMeasured))
}

func TestSnapshotIndependence(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)
	require.NoError(t, c.Append(Instruction{Kind: KindRotation, Lanes: []int{1}, Params: []float64{0.25}}))

	snap := c.Snapshot()
	require.True(t, snap.Equal(c))

	require.NoError(t, c.Append(Instruction{Kind: KindCoupling, Lanes: []int{0, 1}}))
	require.NoError(t, c.MeasureAll())

	assert.Equal(t, 1, snap.Len())
	assert.False(t, snap.Measured())
	assert.False(t, snap.Equal(c))

	// the copy is mutable on its own
	require.NoError(t, snap.Append(Instruction{Kind: KindPhase, Lanes: []int{0}, Params: []float64{3}}))
	assert.Equal(t, 3, c.Len())
}

func TestInstructionsAreDeepCopies(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)
	require.NoError(t, c.Append(Instruction{Kind: KindRotation3, Lanes: []int{0}, Params: []float64{1, 2, 3}}))

	ins := c.Instructions()
	ins[0].Params[0] = 99
	ins[0].Lanes[0] = 1

	again := c.Instructions()
	assert.Equal(t, 1.0, again[0].Params[0])
	assert.Equal(t, 0, again[0].Lanes[0])
}

func TestEqual(t *testing.T) {
	build := func() *Circuit {
		c, err := New(2)
		require.NoError(t, err)
		require.NoError(t, c.Append(Instruction{Kind: KindPhase, Lanes: []int{0}, Params: []float64{0.1}}))
		require.NoError(t, c.Append(Instruction{Kind: KindCoupling, Lanes: []int{0, 1}}))
		return c
	}
	a, b := build(), build()
	assert.True(t, a.Equal(b))

	require.NoError(t, b.Append(Instruction{Kind: KindPhase, Lanes: []int{1}, Params: []float64{0.1}}))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))

	other, err := New(3)
	require.NoError(t, err)
	assert.False(t, a.Equal(other))
}

func TestRestoreRoundTrip(t *testing.T) {
	c, err := New(3)
	require.NoError(t, err)
	require.NoError(t, c.Append(Instruction{Kind: KindRotation3, Lanes: []int{1}, Params: []float64{0.4, 0.5, 0.6}}))
	require.NoError(t, c.Append(Instruction{Kind: KindCoupling, Lanes: []int{1, 2}}))
	require.NoError(t, c.MeasureAll())

	restored, err := Restore(3, c.Instructions())
	require.NoError(t, err)
	assert.True(t, restored.Equal(c))
	assert.True(t, restored.Measured())
}

func TestRestoreRejectsEmbeddedMeasure(t *testing.T) {
	ins := []Instruction{
		{Kind: KindMeasure, Lanes: []int{0, 1}},
		{Kind: KindPhase, Lanes: []int{0}, Params: []float64{1}},
	}
	_, err := Restore(2, ins)
	assert.Error(t, err)
}

package unitary

import (
	"math"
	"math/cmplx"

	"github.com/amartinfer/qcbatch/circuit"
)

// negligible is the angle magnitude below which a primitive degrades to an
// identity descriptor.
const negligible = 1e-9

// Primitive describes one step of a pair decomposition. Lane indices are
// pair relative (0 or 1); the caller maps them onto global lanes.
type Primitive struct {
	Kind   circuit.Kind
	Lanes  []int
	Params []float64
}

// Decompose expresses a pair unitary as a fixed three-coupling canonical
// template: local three-parameter rotations on both lanes, the entangling
// core (coupling, one-parameter rotation, phase, coupling, local rotations,
// coupling), then residual per-lane phases. Angles are extracted
// deterministically from the matrix blocks, so equal inputs always yield
// equal sequences. Components whose angles are negligible come back as
// KindIdentity descriptors for the caller to skip; a matrix with no
// inter-lane mixing yields no couplings at all.
func Decompose(m Matrix) []Primitive {
	prims := make([]Primitive, 0, 12)

	th0, ph0, la0 := eulerAngles(block(m, 0, 0))
	th1, ph1, la1 := eulerAngles(block(m, 2, 2))
	prims = append(prims, single(circuit.KindRotation3, 0, th0, ph0, la0))
	prims = append(prims, single(circuit.KindRotation3, 1, th1, ph1, la1))

	ax := 2 * math.Atan2(blockNorm(block(m, 0, 2)), blockNorm(block(m, 0, 0)))
	az := cmplx.Phase(m[3][0]) - cmplx.Phase(m[0][0])
	if math.Abs(ax) > negligible || math.Abs(az) > negligible {
		prims = append(prims, coupling())
		prims = append(prims, single(circuit.KindRotation, 0, ax))
		prims = append(prims, single(circuit.KindPhase, 1, az))
		prims = append(prims, coupling())
		tu, pu, lu := eulerAngles(block(m, 0, 2))
		tl, pl, ll := eulerAngles(block(m, 2, 0))
		prims = append(prims, single(circuit.KindRotation3, 0, tu, pu, lu))
		prims = append(prims, single(circuit.KindRotation3, 1, tl, pl, ll))
		prims = append(prims, coupling())
	} else {
		prims = append(prims, identity(0), identity(1))
	}

	prims = append(prims, single(circuit.KindPhase, 0, cmplx.Phase(m[0][0])))
	prims = append(prims, single(circuit.KindPhase, 1, cmplx.Phase(m[1][1])))
	return prims
}

type subBlock [2][2]complex128

func block(m Matrix, row, col int) subBlock {
	return subBlock{
		{m[row][col], m[row][col+1]},
		{m[row+1][col], m[row+1][col+1]},
	}
}

func blockNorm(b subBlock) float64 {
	var sum float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			sum += real(b[i][j] * cmplx.Conj(b[i][j]))
		}
	}
	return math.Sqrt(sum)
}

// eulerAngles reads the three-parameter rotation angles off a 2x2 block
// using the standard convention: theta from the moduli of the first column,
// phi and lambda from the relative phases. The zero and identity blocks map
// to all-zero angles.
func eulerAngles(b subBlock) (theta, phi, lambda float64) {
	theta = 2 * math.Atan2(cmplx.Abs(b[1][0]), cmplx.Abs(b[0][0]))
	phi = cmplx.Phase(b[1][0]) - cmplx.Phase(b[0][0])
	lambda = cmplx.Phase(b[1][1]) - cmplx.Phase(b[1][0])
	return theta, phi, lambda
}

// single builds a one-lane primitive, degrading to identity when every
// parameter is negligible.
func single(kind circuit.Kind, lane int, params ...float64) Primitive {
	allZero := true
	for _, p := range params {
		if math.Abs(p) > negligible {
			allZero = false
			break
		}
	}
	if allZero {
		return identity(lane)
	}
	return Primitive{Kind: kind, Lanes: []int{lane}, Params: params}
}

func identity(lane int) Primitive {
	return Primitive{Kind: circuit.KindIdentity, Lanes: []int{lane}}
}

func coupling() Primitive {
	return Primitive{Kind: circuit.KindCoupling, Lanes: []int{0, 1}}
}

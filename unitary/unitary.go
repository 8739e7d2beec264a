// Package unitary draws Haar-random 4x4 unitaries from an explicit random
// generator and decomposes them into primitive one- and two-lane operations.
package unitary

import (
	"math"
	"math/cmplx"
	"math/rand"
)

// Dim is the fixed pair dimension: two lanes of two levels each.
const Dim = 4

// Matrix is a dense Dim x Dim complex matrix, row major.
type Matrix [Dim][Dim]complex128

func Identity() Matrix {
	var m Matrix
	for i := 0; i < Dim; i++ {
		m[i][i] = 1
	}
	return m
}

func (m Matrix) Mul(other Matrix) Matrix {
	var out Matrix
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			var sum complex128
			for k := 0; k < Dim; k++ {
				sum += m[i][k] * other[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func (m Matrix) Dagger() Matrix {
	var out Matrix
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			out[i][j] = cmplx.Conj(m[j][i])
		}
	}
	return out
}

// IsIdentity reports whether every entry is within tol of the identity.
func (m Matrix) IsIdentity(tol float64) bool {
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			want := complex(0, 0)
			if i == j {
				want = 1
			}
			if cmplx.Abs(m[i][j]-want) > tol {
				return false
			}
		}
	}
	return true
}

// Haar draws one unitary distributed by the Haar measure: a complex Ginibre
// matrix orthonormalized column by column. Gram-Schmidt keeps the implicit R
// diagonal real positive, which is exactly the phase convention the Haar
// measure needs. Only the supplied generator is consumed; no global random
// state is touched.
func Haar(r *rand.Rand) Matrix {
	var m Matrix
	inv := 1 / math.Sqrt2
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			m[i][j] = complex(r.NormFloat64()*inv, r.NormFloat64()*inv)
		}
	}
	for j := 0; j < Dim; j++ {
		for k := 0; k < j; k++ {
			var dot complex128
			for i := 0; i < Dim; i++ {
				dot += cmplx.Conj(m[i][k]) * m[i][j]
			}
			for i := 0; i < Dim; i++ {
				m[i][j] -= dot * m[i][k]
			}
		}
		var norm float64
		for i := 0; i < Dim; i++ {
			norm += real(m[i][j] * cmplx.Conj(m[i][j]))
		}
		norm = math.Sqrt(norm)
		for i := 0; i < Dim; i++ {
			m[i][j] /= complex(norm, 0)
		}
	}
	return m
}

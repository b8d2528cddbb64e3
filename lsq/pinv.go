// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsq

import "math"

// DefaultRcond is the relative pseudo-rank tolerance used when Pinv is given rcond ≤ 0.
// It matches the cutoff 1e-15·σₘₐₓ of numpy's pinv.
const DefaultRcond = 1e-15

// maxColNorm returns the largest column 2-norm of the m × n column-major matrix a.
// It equals |𝐑₁₁| of the pivoted triangulation done by HFTI.
func maxColNorm(a []float64, m, n int) float64 {
	best := zero
	for j := 0; j < n; j++ {
		sm := zero
		for _, t := range a[m*j : m*j+m] {
			sm += t * t
		}
		best = max(best, sm)
	}
	return math.Sqrt(best)
}

// Pinv computes the Moore-Penrose pseudo-inverse 𝐀⁺ of the m × n column-major matrix a
// by solving 𝐀𝐗 ≅ 𝐈ₘ with HFTI. The result is an n × m column-major matrix.
//
// Diagonal elements of the triangular factor below rcond·|𝐑₁₁| are treated as zero,
// so singular and near-singular matrices yield a finite generalized inverse instead of failing.
// The pseudo-rank used is returned alongside.
func Pinv(a []float64, m, n int, rcond float64) (inv []float64, rank int) {
	if m <= 0 || n <= 0 || len(a) < m*n {
		panic("bound check error")
	}
	if rcond <= zero {
		rcond = DefaultRcond
	}

	ld := max(m, n)
	wa := make([]float64, m*n)
	copy(wa, a[:m*n])

	tau := rcond * maxColNorm(wa, m, n)

	x := make([]float64, ld*m)
	for i := 0; i < m; i++ {
		x[i+ld*i] = one
	}

	rank = HFTI(wa, m, m, n, x, ld, m, tau, NewWork(m, n, m))

	inv = make([]float64, n*m)
	for j := 0; j < m; j++ {
		copy(inv[n*j:n*j+n], x[ld*j:ld*j+n])
	}
	return inv, rank
}

// Solve returns the minimum-length least-squares solution of 𝐀𝐱 ≅ 𝐛 for the m × n
// column-major matrix a, with the same pseudo-rank rule as Pinv.
func Solve(a []float64, m, n int, b []float64, rcond float64) (x []float64, rank int, resid float64) {
	if m <= 0 || n <= 0 || len(a) < m*n || len(b) < m {
		panic("bound check error")
	}
	if rcond <= zero {
		rcond = DefaultRcond
	}

	wa := make([]float64, m*n)
	copy(wa, a[:m*n])

	x = make([]float64, max(m, n))
	copy(x, b[:m])

	w := NewWork(m, n, 1)
	rank = HFTI(wa, m, m, n, x, len(x), 1, rcond*maxColNorm(wa, m, n), w)
	return x[:n], rank, w.Norm[0]
}

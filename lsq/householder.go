// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsq

import "math"

const (
	zero = 0.0
	one  = 1.0
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

// house constructs the Householder transformation 𝐐 = 𝐈ₘ - b⁻¹𝐮𝐮ᵀ (b = s·uₚ) that maps
// the strided m-vector v onto a multiple of the p-th unit vector, zeroing elements l..m-1.
//
// The pivot index must satisfy 0 ≤ p < l < m, otherwise house is the identity and returns 0.
// On return v[p] holds s, elements l..m-1 of v hold the tail of 𝐮 and uₚ is returned.
//
// C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974. Chapter 10.
func house(p, l, m int, v []float64, inc int) (up float64) {
	if p < 0 || p >= l || l >= m {
		return
	}
	if inc <= 0 || (m-1)*inc >= len(v) {
		panic("bound check error")
	}

	vp := v[p*inc]
	scale := math.Abs(vp)
	for j := l; j < m; j++ {
		scale = math.Max(scale, math.Abs(v[j*inc]))
	}
	if scale <= zero {
		return
	}

	// (vₚ² + ∑vᵢ²)¹ᐟ² computed on the scaled vector to avoid overflow
	inv := one / scale
	sum := (vp * inv) * (vp * inv)
	for j := l; j < m; j++ {
		t := v[j*inc] * inv
		sum += t * t
	}

	s := scale * math.Sqrt(sum)
	if vp > zero {
		s = -s
	}

	up = vp - s
	v[p*inc] = s
	return
}

// reflect applies the transformation built by house to ncv vectors stored in c.
// Element i of the k-th vector lives at c[k·icv + i·ice].
func reflect(p, l, m int, u []float64, iue int, up float64, c []float64, ice, icv, ncv int) {
	if p < 0 || p >= l || l >= m || ncv <= 0 {
		return
	}

	b := u[p*iue] * up
	if b >= zero {
		return
	}
	b = one / b

	if (m-1)*iue >= len(u) || (ncv-1)*icv+(m-1)*ice >= len(c) {
		panic("bound check error")
	}

	for k := 0; k < ncv; k++ {
		col := c[k*icv:]
		sm := col[p*ice] * up
		for i := l; i < m; i++ {
			sm += col[i*ice] * u[i*iue]
		}
		if sm == zero {
			continue
		}
		sm *= b
		col[p*ice] += sm * up
		for i := l; i < m; i++ {
			col[i*ice] += sm * u[i*iue]
		}
	}
}

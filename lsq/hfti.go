// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lsq

import "math"

// Work holds the scratch space of HFTI for matrices with at most n columns.
// It may be reused across calls but not shared between goroutines.
type Work struct {
	h, g []float64
	ip   []int
	// Norm contains the residual norm ‖𝐀𝐱ⱼ - 𝐛ⱼ‖₂ for each right-hand side after HFTI.
	Norm []float64
}

// NewWork allocates scratch space for an m × n system with nb right-hand sides.
func NewWork(m, n, nb int) *Work {
	k := max(m, n, 1)
	return &Work{
		h:    make([]float64, k),
		g:    make([]float64, k),
		ip:   make([]int, k),
		Norm: make([]float64, max(nb, 1)),
	}
}

// HFTI (Householder Forward Triangulation with column Interchanges) solves 𝐀𝐗 ≅ 𝐁 in the least-squares sense.
//   - 𝐀 is an m × n column-major matrix with leading dimension lda, overwritten on return
//   - 𝐁 is an m × nb column-major matrix with leading dimension ldb ≥ max(m,n); on return its
//     first n rows hold the solution 𝐗
//
// The pseudo-rank k is the number of diagonal elements of 𝐑 = 𝐐𝐀𝐏 exceeding tau in magnitude.
// Columns of 𝐑 beyond k are treated as zero and [𝐑₁₁:𝐑₁₂] is reduced to [𝐖:೦] by a second
// sequence of Householder transformations 𝐊, which yields the solution of minimum length
//
//	𝐱 = 𝐏𝐊[𝐖⁻¹𝐜₁ ೦]ᵀ
//
// For a full-rank square 𝐀 this is 𝐀⁻¹𝐛, and in general it is 𝐀⁺𝐛 restricted to the pseudo-rank.
//
// # References
//
//	C.L. Lawson, R.J. Hanson, 'Solving least squares problems' Prentice Hall, 1974.
//	Chapter 14, Algorithm 14.9.
func HFTI(a []float64, lda, m, n int, b []float64, ldb, nb int, tau float64, w *Work) (rank int) {

	diag := min(m, n)
	if diag <= 0 {
		return 0
	}

	switch {
	case lda < m || len(a) < lda*n:
		panic("bound check error")
	case nb > 0 && (ldb < max(m, n) || len(b) < ldb*nb):
		panic("bound check error")
	case len(w.h) < n || len(w.g) < n || len(w.ip) < diag || len(w.Norm) < nb:
		panic("workspace dimension too small")
	}

	h, g, ip := w.h, w.g, w.ip

	for j := 0; j < diag; j++ {
		// Pick the remaining column with the largest squared length in rows j..m-1.
		lmax, best := j, math.Inf(-1)
		for l := j; l < n; l++ {
			col := a[lda*l : lda*l+m]
			sm := zero
			for _, t := range col[j:] {
				sm += t * t
			}
			if sm > best {
				lmax, best = l, sm
			}
		}

		ip[j] = lmax
		if lmax != j {
			c1, c2 := a[lda*j:lda*j+m], a[lda*lmax:lda*lmax+m]
			for i := range c1 {
				c1[i], c2[i] = c2[i], c1[i]
			}
		}

		// 𝐐ⱼ applied to the remaining columns of 𝐀 and to 𝐁.
		h[j] = house(j, j+1, m, a[lda*j:], 1)
		if j+1 < n {
			reflect(j, j+1, m, a[lda*j:], 1, h[j], a[lda*(j+1):], 1, lda, n-j-1)
		}
		reflect(j, j+1, m, a[lda*j:], 1, h[j], b, 1, ldb, nb)
	}

	rank = diag
	for j := 0; j < diag; j++ {
		if math.Abs(a[j+lda*j]) <= tau {
			rank = j
			break
		}
	}

	// ‖𝐜₂‖ is the residual norm of each right-hand side.
	for jb := 0; jb < nb; jb++ {
		sm := zero
		for _, t := range b[ldb*jb+rank : ldb*jb+m] {
			sm += t * t
		}
		w.Norm[jb] = math.Sqrt(sm)
	}

	if rank == 0 {
		for jb := 0; jb < nb; jb++ {
			clear(b[ldb*jb : ldb*jb+n])
		}
		return 0
	}

	// Reduce the first rank rows [𝐑₁₁:𝐑₁₂] to [𝐖:೦] from the right.
	if rank < n {
		for i := rank - 1; i >= 0; i-- {
			g[i] = house(i, rank, n, a[i:], lda)
			reflect(i, rank, n, a[i:], lda, g[i], a, lda, 1, i)
		}
	}

	for jb := 0; jb < nb; jb++ {
		cb := b[ldb*jb : ldb*jb+max(m, n)]

		// 𝐖𝐲₁ = 𝐜₁
		for i := rank - 1; i >= 0; i-- {
			sm := zero
			for j := i + 1; j < rank; j++ {
				sm += a[i+lda*j] * cb[j]
			}
			cb[i] = (cb[i] - sm) / a[i+lda*i]
		}

		// 𝐊[𝐲₁ ೦]ᵀ
		if rank < n {
			clear(cb[rank:n])
			for i := 0; i < rank; i++ {
				reflect(i, rank, n, a[i:], lda, g[i], cb, 1, ldb, 1)
			}
		}

		// Undo the column interchanges 𝐏.
		for j := diag - 1; j >= 0; j-- {
			if l := ip[j]; l != j {
				cb[l], cb[j] = cb[j], cb[l]
			}
		}
	}

	return rank
}

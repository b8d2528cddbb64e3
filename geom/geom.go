// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package geom provides the fixed-size vector and matrix types used by the vertex fitter.
//
// All dimensions are known at compile time (3 for positions and directions, 6 for the
// concatenated track parameters) so every type is a plain array value and no operation allocates,
// except the pseudo-inverse and the condition number which delegate to general routines.
package geom

import (
	"math"

	"github.com/curioloop/svfit/lsq"
	"gonum.org/v1/gonum/mat"
)

// Vec3 is a point or direction in 3D.
type Vec3 [3]float64

// Mat3 is a row-major 3 × 3 matrix.
type Mat3 [3][3]float64

// Add returns u + v.
func (u Vec3) Add(v Vec3) Vec3 {
	return Vec3{u[0] + v[0], u[1] + v[1], u[2] + v[2]}
}

// Sub returns u - v.
func (u Vec3) Sub(v Vec3) Vec3 {
	return Vec3{u[0] - v[0], u[1] - v[1], u[2] - v[2]}
}

// Scale returns s·u.
func (u Vec3) Scale(s float64) Vec3 {
	return Vec3{s * u[0], s * u[1], s * u[2]}
}

// Dot returns u·v.
func (u Vec3) Dot(v Vec3) float64 {
	return u[0]*v[0] + u[1]*v[1] + u[2]*v[2]
}

// Cross returns u × v.
func (u Vec3) Cross(v Vec3) Vec3 {
	return Vec3{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
}

// Norm returns the Euclidean norm ‖u‖₂.
func (u Vec3) Norm() float64 {
	return math.Hypot(math.Hypot(u[0], u[1]), u[2])
}

// Identity returns 𝐈₃.
func Identity() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Outer returns u vᵀ.
func Outer(u, v Vec3) (m Mat3) {
	for i := range m {
		for j := range m[i] {
			m[i][j] = u[i] * v[j]
		}
	}
	return
}

// Add returns m + n.
func (m Mat3) Add(n Mat3) (r Mat3) {
	for i := range r {
		for j := range r[i] {
			r[i][j] = m[i][j] + n[i][j]
		}
	}
	return
}

// Scale returns s·m.
func (m Mat3) Scale(s float64) (r Mat3) {
	for i := range r {
		for j := range r[i] {
			r[i][j] = s * m[i][j]
		}
	}
	return
}

// T returns mᵀ.
func (m Mat3) T() (r Mat3) {
	for i := range r {
		for j := range r[i] {
			r[i][j] = m[j][i]
		}
	}
	return
}

// MulVec returns m·v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{Vec3(m[0]).Dot(v), Vec3(m[1]).Dot(v), Vec3(m[2]).Dot(v)}
}

func (m Mat3) colMajor() []float64 {
	a := make([]float64, 9)
	for i := range m {
		for j := range m[i] {
			a[i+3*j] = m[i][j]
		}
	}
	return a
}

// Pinv returns the Moore-Penrose pseudo-inverse of m together with its pseudo-rank.
// Singular matrices never fail: directions in the null space are simply left out.
func (m Mat3) Pinv() (p Mat3, rank int) {
	inv, rank := lsq.Pinv(m.colMajor(), 3, 3, 0)
	for i := range p {
		for j := range p[i] {
			p[i][j] = inv[i+3*j]
		}
	}
	return p, rank
}

// Cond returns the 2-norm condition number σₘₐₓ/σₘᵢₙ, which is +Inf for a singular matrix.
func (m Mat3) Cond() float64 {
	d := mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
	return mat.Cond(d, 2)
}

// Vec6 holds the concatenated (origin, direction) parameters of a track.
type Vec6 [6]float64

// Join concatenates two 3-vectors.
func Join(u, v Vec3) Vec6 {
	return Vec6{u[0], u[1], u[2], v[0], v[1], v[2]}
}

// Diag6 is a 6 × 6 diagonal matrix stored by its diagonal.
type Diag6 [6]float64

// Quad returns the quadratic form jᵀ·D·j.
func (d Diag6) Quad(j Vec6) (q float64) {
	for i, v := range j {
		q += v * d[i] * v
	}
	return
}

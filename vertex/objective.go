// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vertex

import (
	"github.com/curioloop/svfit/geom"
	"github.com/curioloop/svfit/track"
)

func meanOrigin(tracks []track.Track) (v geom.Vec3) {
	for _, t := range tracks {
		v = v.Add(t.Origin())
	}
	return v.Scale(1 / float64(len(tracks)))
}

// partials returns the derivatives of ‖𝐝 × 𝐚‖² with respect to the track origin (∂𝐫 = -∂𝐯)
// and direction, halved. They are built from the antisymmetric matrix ηⱼₖ = aⱼdₖ - aₖdⱼ:
//
//	∂𝐫 = 𝐝 - (𝐝·𝐚)𝐚       (for ‖𝐚‖ = 1)
//	∂𝐚 = ‖𝐝‖²𝐚 - (𝐝·𝐚)𝐝
func partials(d, a geom.Vec3) (dr, da geom.Vec3) {
	eta := geom.Outer(a, d).Add(geom.Outer(d, a).Scale(-1))
	dr = geom.Vec3{
		a[1]*eta[1][0] - a[2]*eta[0][2],
		a[2]*eta[2][1] - a[0]*eta[1][0],
		a[0]*eta[0][2] - a[1]*eta[2][1],
	}
	da = geom.Vec3{
		d[2]*eta[0][2] - d[1]*eta[1][0],
		d[0]*eta[1][0] - d[2]*eta[2][1],
		d[1]*eta[2][1] - d[0]*eta[0][2],
	}
	return
}

// curvature returns the Hessian 𝐈 - 𝐚𝐚ᵀ of ½‖𝐝 × 𝐚‖² with respect to the vertex, with the diagonal
// written as the sum of the two other squared components.
func curvature(a geom.Vec3) geom.Mat3 {
	h := geom.Outer(a, a).Scale(-1)
	h[0][0] = a[1]*a[1] + a[2]*a[2]
	h[1][1] = a[0]*a[0] + a[2]*a[2]
	h[2][2] = a[0]*a[0] + a[1]*a[1]
	return h
}

// accumulate returns the gradient and the Hessian of the weighted objective at v.
//
//	𝐉ᵢ = (2/N)(∂𝐫ᵢ, ∂𝐚ᵢ)    σᵢ = 𝐉ᵢᵀ𝐂ᵢ𝐉ᵢ + ϵ
//	∇𝑺 = -∑ᵢ (2/N)∂𝐫ᵢ / σᵢ   ∇²𝑺 = ∑ᵢ (2/N)𝐇ᵢ / σᵢ
func accumulate(tracks []track.Track, v geom.Vec3) (grad geom.Vec3, curv geom.Mat3) {
	scale := 2 / float64(len(tracks))
	for _, t := range tracks {
		a := t.Direction()
		dr, da := partials(t.Origin().Sub(v), a)
		dr, da = dr.Scale(scale), da.Scale(scale)

		sigma := t.Covariance().Quad(geom.Join(dr, da)) + weightReg

		grad = grad.Sub(dr.Scale(1 / sigma))
		curv = curv.Add(curvature(a).Scale(scale / sigma))
	}
	return
}

// Score returns the fit quality score of vertex v: the sum over tracks of ‖𝐜ᵢ∘𝐜ᵢ‖₂ where
// 𝐜ᵢ = (𝐫ᵢ - 𝐯) × 𝐚ᵢ and ∘ is the element-wise product.
//
// The score is not normalized by the number of tracks or degrees of freedom. It ranks fits
// against each other and carries no absolute goodness-of-fit probability.
func Score(tracks []track.Track, v geom.Vec3) (score float64) {
	for _, t := range tracks {
		c := t.Origin().Sub(v).Cross(t.Direction())
		score += geom.Vec3{c[0] * c[0], c[1] * c[1], c[2] * c[2]}.Norm()
	}
	return
}

// stallCounter counts consecutive steps shorter than the tolerance.
type stallCounter struct {
	limit, n int
}

// observe records the last step length and reports whether the fit should stop.
func (s *stallCounter) observe(dv, tol float64) bool {
	if dv < tol {
		s.n++
		return s.n > s.limit
	}
	s.n = 0
	return false
}

// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package track

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/curioloop/svfit/geom"
	"github.com/curioloop/svfit/numdiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomParams(f *gofakeit.Faker) Params {
	return Params{
		Pt:         f.Float64Range(500, 50000),
		Eta:        f.Float64Range(-2.5, 2.5),
		Phi:        f.Float64Range(-math.Pi, math.Pi),
		D0:         f.Float64Range(-5, 5),
		Z0:         f.Float64Range(-50, 50),
		SigmaTheta: f.Float64Range(1e-4, 1e-2),
		SigmaPhi:   f.Float64Range(1e-4, 1e-2),
		SigmaD0:    f.Float64Range(1e-3, 1e-1),
		SigmaZ0:    f.Float64Range(1e-2, 1),
	}
}

func sl(v geom.Vec3) []float64 { return v[:] }

func TestTheta(t *testing.T) {
	assert.InDelta(t, math.Pi/2, Theta(0), 1e-15)
	assert.InDelta(t, 0.0, Theta(50), 1e-15)
	assert.InDelta(t, math.Pi, Theta(-50), 1e-15)
	for _, eta := range []float64{-2, -0.5, 0.3, 1.7} {
		assert.InDelta(t, eta, -math.Log(math.Tan(Theta(eta)/2)), 1e-12)
	}
}

func TestNewGeometry(t *testing.T) {
	tr, err := New(Params{Eta: 0, Phi: math.Pi / 2, D0: 2, Z0: -3}, Labels{})
	require.NoError(t, err)

	// θ = π/2, φ = π/2: direction along the third (vertical) axis
	assert.InDeltaSlice(t, []float64{0, 0, 1}, sl(tr.Direction()), 1e-15)
	// d₀ > 0 rotates the origin by -π/2
	assert.InDeltaSlice(t, []float64{-3, 2, 0}, sl(tr.Origin()), 1e-15)

	neg, err := New(Params{Eta: 0, Phi: math.Pi / 2, D0: -2, Z0: -3}, Labels{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-3, -2, 0}, sl(neg.Origin()), 1e-15)
	assert.Equal(t, tr.Direction(), neg.Direction())
}

func TestNewZeroImpactParameter(t *testing.T) {
	tr, err := New(Params{Eta: 1, Phi: 0.4, D0: 0, Z0: 1, SigmaTheta: 0.1, SigmaPhi: 0.1, SigmaD0: 0.1, SigmaZ0: 0.1}, Labels{})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1, 0, 0}, sl(tr.Origin()), 1e-15)
	for _, v := range tr.Covariance() {
		assert.False(t, math.IsNaN(v))
		assert.GreaterOrEqual(t, v, 0.0)
	}
	// non-negative branch: φ' = φ - π/2
	s, c := math.Sincos(0.4 - math.Pi/2)
	assert.InDelta(t, c*c*0.01, tr.Covariance()[1], 1e-15)
	assert.InDelta(t, s*s*0.01, tr.Covariance()[2], 1e-15)
}

func TestNewUnitDirection(t *testing.T) {
	f := gofakeit.New(11)
	for i := 0; i < 200; i++ {
		tr, err := New(randomParams(f), Labels{})
		require.NoError(t, err)
		assert.InDelta(t, 1, tr.Direction().Norm(), 1e-12)
	}
}

func TestNewOriginIsPerigee(t *testing.T) {
	f := gofakeit.New(12)
	for i := 0; i < 200; i++ {
		p := randomParams(f)
		tr, err := New(p, Labels{})
		require.NoError(t, err)

		o, a := tr.Origin(), tr.Direction()
		// transverse distance from the beam line is |d₀| and the transverse
		// components of origin and direction are orthogonal
		assert.InDelta(t, math.Abs(p.D0), math.Hypot(o[1], o[2]), 1e-12)
		assert.InDelta(t, 0, o[1]*a[1]+o[2]*a[2], 1e-12)
		assert.Equal(t, p.Z0, o[0])
	}
}

func TestCovariancePropagation(t *testing.T) {
	f := gofakeit.New(13)
	for i := 0; i < 50; i++ {
		p := randomParams(f)
		if math.Abs(p.D0) < 1e-3 {
			continue
		}
		tr, err := New(p, Labels{})
		require.NoError(t, err)

		// line components as a function of (θ, φ, d₀, z₀)
		line := func(x, y []float64) {
			q := p
			q.Eta = -math.Log(math.Tan(x[0] / 2))
			q.Phi, q.D0, q.Z0 = x[1], x[2], x[3]
			l, err := New(q, Labels{})
			if err != nil {
				panic(err)
			}
			v := geom.Join(l.Origin(), l.Direction())
			copy(y, v[:])
		}

		x0 := []float64{Theta(p.Eta), p.Phi, p.D0, p.Z0}
		jac := make([]float64, 4*6)
		approx := numdiff.ApproxSpec{N: 4, M: 6, Object: line, Method: numdiff.Central}
		require.NoError(t, approx.Diff(x0, jac))

		sigma := []float64{p.SigmaTheta, p.SigmaPhi, p.SigmaD0, p.SigmaZ0}
		cov := tr.Covariance()
		for j := 0; j < 6; j++ {
			want := 0.0
			for k := 0; k < 4; k++ {
				d := jac[k+4*j] * sigma[k]
				want += d * d
			}
			assert.InDelta(t, want, cov[j], 1e-7*math.Max(1, want), "component %d", j)
		}
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	for _, p := range []Params{
		{Eta: math.NaN()},
		{Phi: math.Inf(1)},
		{D0: math.NaN()},
		{SigmaD0: -1},
		{SigmaZ0: math.NaN()},
		{SigmaTheta: math.Inf(1)},
	} {
		_, err := New(p, Labels{})
		assert.Error(t, err, "%+v", p)
	}
}

func TestFromLine(t *testing.T) {
	tr, err := FromLine(geom.Vec3{1, 2, 3}, geom.Vec3{0, 0.6, 0.8}, geom.Diag6{1, 1, 1, 0, 0, 0}, Labels{Truth: FromB})
	require.NoError(t, err)
	assert.Equal(t, FromB, tr.Labels().Truth)

	_, err = FromLine(geom.Vec3{}, geom.Vec3{1, 1, 0}, geom.Diag6{}, Labels{})
	assert.Error(t, err)
	_, err = FromLine(geom.Vec3{math.NaN(), 0, 0}, geom.Vec3{1, 0, 0}, geom.Diag6{}, Labels{})
	assert.Error(t, err)
	_, err = FromLine(geom.Vec3{}, geom.Vec3{1, 0, 0}, geom.Diag6{0, -1}, Labels{})
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	f := gofakeit.New(14)
	for i := 0; i < 100; i++ {
		tr, err := New(randomParams(f), Labels{})
		require.NoError(t, err)

		assert.Equal(t, tr.Origin(), tr.Evaluate(0))
		assert.InDelta(t, 1, tr.Evaluate(1).Sub(tr.Origin()).Norm(), 1e-12)

		s := f.Float64Range(-100, 100)
		p := tr.Evaluate(s)
		assert.InDelta(t, 0, p.Sub(tr.Origin()).Cross(tr.Direction()).Norm(), 1e-9)
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, ND, LabelFromCode(-1))
	assert.Equal(t, ND, LabelFromCode(8))
	assert.Equal(t, FromBC, LabelFromCode(4))
	assert.Equal(t, "FromC", FromC.String())
	assert.Equal(t, "ND", Label(42).String())

	assert.True(t, FromB.HeavyFlavour())
	assert.True(t, FromBC.HeavyFlavour())
	assert.True(t, FromC.HeavyFlavour())
	assert.False(t, FromTau.HeavyFlavour())
	assert.False(t, Primary.HeavyFlavour())
	assert.False(t, ND.HeavyFlavour())

	assert.Equal(t, FromC, LabelFromScores([]float64{0.1, 0, 0.2, 0.1, 0.05, 0.5, 0.05, 0}))
	assert.Equal(t, OtherSecondary, LabelFromScores([]float64{math.NaN(), 0.5, 0, 0, 0, 0, 0, 0.7}))
	assert.Equal(t, ND, LabelFromScores([]float64{1, 2}))
}

func TestGobRoundTrip(t *testing.T) {
	f := gofakeit.New(17)
	tracks := make([]Track, 8)
	for i := range tracks {
		tr, err := New(Params{
			Pt: f.Float64Range(1e3, 1e5), Eta: f.Float64Range(-2.5, 2.5), Phi: f.Float64Range(-math.Pi, math.Pi),
			D0: f.Float64Range(-1, 1), Z0: f.Float64Range(-50, 50),
			SigmaTheta: 1e-3, SigmaPhi: 1e-3, SigmaD0: 0.01, SigmaZ0: 0.05,
		}, Labels{Truth: Label(i % NumClasses), Predicted: ND, SV1: i%2 == 0})
		require.NoError(t, err)
		tracks[i] = tr
	}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(tracks))
	var got []Track
	require.NoError(t, gob.NewDecoder(&buf).Decode(&got))
	assert.Equal(t, tracks, got)

	bad := wireTrack{Dir: geom.Vec3{2, 0, 0}}
	buf.Reset()
	require.NoError(t, gob.NewEncoder(&buf).Encode(bad))
	var tr Track
	assert.Error(t, tr.GobDecode(buf.Bytes()))
}

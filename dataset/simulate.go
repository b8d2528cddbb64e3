// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"errors"
	"io"
	"math"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/curioloop/svfit/geom"
	"github.com/curioloop/svfit/jet"
	"github.com/curioloop/svfit/track"
)

// Resolution holds the track parameter uncertainties of simulated tracks.
// Tracks are smeared by them and the tables carry them as the recorded uncertainties.
type Resolution struct {
	D0    float64 `yaml:"d0" validate:"gte=0"`
	Z0    float64 `yaml:"z0" validate:"gte=0"`
	Theta float64 `yaml:"theta" validate:"gte=0"`
	Phi   float64 `yaml:"phi" validate:"gte=0"`
}

// Simulation configures the toy jet generator.
type Simulation struct {
	Seed int64 `yaml:"seed"`
	Jets int   `yaml:"jets" validate:"gt=0"`

	// Fractions of b and c jets, the rest are light jets without a secondary vertex.
	BFraction float64 `yaml:"b_fraction" validate:"gte=0,lte=1"`
	CFraction float64 `yaml:"c_fraction" validate:"gte=0,lte=1"`

	// MeanLxy is the mean transverse decay length of the heavy hadron, in mm.
	MeanLxy float64 `yaml:"mean_lxy" validate:"gt=0"`

	// Track multiplicity ranges, inclusive.
	MinSecondary int `yaml:"min_secondary" validate:"gte=2"`
	MaxSecondary int `yaml:"max_secondary" validate:"gtefield=MinSecondary"`
	MinPrimary   int `yaml:"min_primary" validate:"gte=0"`
	MaxPrimary   int `yaml:"max_primary" validate:"gtefield=MinPrimary"`

	// Spread is the angular spread of tracks around the jet axis, in rad.
	Spread float64 `yaml:"spread" validate:"gte=0"`

	Resolution Resolution `yaml:"resolution"`

	// Mislabel is the probability that the predicted origin of a track is wrong.
	Mislabel float64 `yaml:"mislabel" validate:"gte=0,lte=1"`
	// SV1Efficiency is the probability that SV1 attaches a secondary track to its vertex.
	SV1Efficiency float64 `yaml:"sv1_efficiency" validate:"gte=0,lte=1"`
}

// DefaultSimulation returns a generator setup loosely modelled on b-jets in top pair events.
func DefaultSimulation() Simulation {
	return Simulation{
		Seed:          1,
		Jets:          1000,
		BFraction:     0.6,
		CFraction:     0.2,
		MeanLxy:       4,
		MinSecondary:  2,
		MaxSecondary:  6,
		MinPrimary:    2,
		MaxPrimary:    10,
		Spread:        0.1,
		Resolution:    Resolution{D0: 0.02, Z0: 0.05, Theta: 5e-4, Phi: 5e-4},
		Mislabel:      0.1,
		SV1Efficiency: 0.7,
	}
}

// Perigee returns the signed transverse and longitudinal impact parameters of the line with polar
// angle theta and azimuth phi passing through p. The result follows the sign convention of track.New.
func Perigee(p geom.Vec3, theta, phi float64) (d0, z0 float64) {
	sinT, cosT := math.Sincos(theta)
	sinP, cosP := math.Sincos(phi)
	t := -(p[1]*cosP + p[2]*sinP) / sinT
	q := geom.Vec3{p[0] + t*cosT, p[1] + t*sinT*cosP, p[2] + t*sinT*sinP}
	return q[1]*sinP - q[2]*cosP, q[0]
}

// Simulate writes a dataset of toy jets whose heavy flavour tracks meet at a displaced vertex.
// The same seed always produces the same tables.
func Simulate(jets, tracks io.Writer, sim Simulation) error {
	if sim.Jets <= 0 || sim.MinSecondary < 2 || sim.MaxSecondary < sim.MinSecondary ||
		sim.MinPrimary < 0 || sim.MaxPrimary < sim.MinPrimary || !(sim.MeanLxy > 0) {
		return errors.New("invalid simulation setup")
	}

	jw, err := NewTableWriter(jets, JetColumns)
	if err != nil {
		return err
	}
	tw, err := NewTableWriter(tracks, TrackColumns)
	if err != nil {
		return err
	}

	g := generator{f: gofakeit.New(sim.Seed), sim: &sim, row: make([]float64, len(TrackColumns))}
	for i := 0; i < sim.Jets; i++ {
		if err = g.jet(jw, tw, i); err != nil {
			return err
		}
	}

	if err = jw.Flush(); err != nil {
		return err
	}
	return tw.Flush()
}

type generator struct {
	f   *gofakeit.Faker
	sim *Simulation
	row []float64
}

func (g *generator) gauss(sigma float64) float64 {
	return sigma * g.f.Rand.NormFloat64()
}

// uniform draws from [0, 1).
func (g *generator) uniform() float64 {
	return g.f.Rand.Float64()
}

func (g *generator) jet(jw, tw *TableWriter, index int) error {
	f, sim := g.f, g.sim

	flavour := jet.Light
	switch u := g.uniform(); {
	case u < sim.BFraction:
		flavour = jet.Bottom
	case u < sim.BFraction+sim.CFraction:
		flavour = jet.Charm
	}

	eta := f.Float64Range(-2.5, 2.5)
	thetaJet := track.Theta(eta)
	pvz := f.Float64Range(-50, 50)
	pv := geom.Vec3{pvz, 0, 0}

	// after the π/2 rotation the jet axis lies in the (longitudinal, vertical) plane
	axis := geom.Vec3{math.Cos(thetaJet), 0, math.Sin(thetaJet)}

	truthLxy, sv := math.NaN(), pv
	var secondary int
	if flavour != jet.Light {
		truthLxy = -sim.MeanLxy * math.Log(1-g.uniform())
		sv = pv.Add(axis.Scale(truthLxy / math.Sin(thetaJet)))
		secondary = f.IntRange(sim.MinSecondary, sim.MaxSecondary)
	}
	primary := f.IntRange(sim.MinPrimary, sim.MaxPrimary)

	n := secondary + primary
	sv1Tracks := 0
	for _, k := range f.Rand.Perm(n) {
		fromSV := k < secondary
		vertex, truth := pv, track.Primary
		if fromSV {
			vertex = sv
			switch {
			case flavour == jet.Charm:
				truth = track.FromC
			case g.uniform() < 0.3:
				truth = track.FromBC
			default:
				truth = track.FromB
			}
		} else if g.uniform() < 0.1 {
			truth = track.PU
			vertex = geom.Vec3{f.Float64Range(-50, 50), 0, 0}
		}

		sv1 := -1.0
		if fromSV && g.uniform() < sim.SV1Efficiency {
			sv1 = 0
			sv1Tracks++
		}
		g.track(index, vertex, thetaJet, truth, sv1)
		if err := tw.Write(g.row...); err != nil {
			return err
		}
	}

	sv1L3d, sv1Lxy := math.NaN(), math.NaN()
	if sv1Tracks >= 2 {
		l3d := sv.Sub(pv).Norm()
		sv1L3d = math.Abs(l3d + g.gauss(0.05*l3d+0.1))
		sv1Lxy = math.Abs(truthLxy + g.gauss(0.05*truthLxy+0.1))
	}

	return jw.Write(
		float64(n), sv1L3d, sv1Lxy, eta, f.Float64Range(-math.Pi, math.Pi), f.Float64Range(20e3, 250e3),
		pvz, float64(flavour), truthLxy,
	)
}

// track fills the row of a track emitted from vertex around the jet axis.
func (g *generator) track(index int, vertex geom.Vec3, thetaJet float64, truth track.Label, sv1 float64) {
	f, sim, res := g.f, g.sim, g.sim.Resolution

	theta := math.Min(math.Max(thetaJet+g.gauss(sim.Spread), 1e-3), math.Pi-1e-3)
	phi := math.Pi/2 + g.gauss(sim.Spread)
	d0, z0 := Perigee(vertex, theta, phi)

	theta += g.gauss(res.Theta)
	phi += g.gauss(res.Phi)
	d0 += g.gauss(res.D0)
	z0 += g.gauss(res.Z0)

	predicted := truth
	if g.uniform() < sim.Mislabel {
		predicted = track.Label(f.IntRange(0, track.NumClasses-1))
	}

	row := g.row
	row[0] = float64(index)
	row[1] = f.Float64Range(1e3, 50e3)
	row[2] = -math.Log(math.Tan(theta / 2))
	row[3] = phi - math.Pi/2
	row[4] = d0
	row[5] = z0
	row[6] = float64(truth)
	row[7] = sv1
	row[8], row[9], row[10], row[11] = res.Theta, res.Phi, res.D0, res.Z0

	scores := row[12:]
	sum := 0.0
	for i := range scores {
		scores[i] = f.Float64Range(0, 0.2)
		if track.Label(i) == predicted {
			scores[i] += 1
		}
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
}

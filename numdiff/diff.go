package numdiff

import (
	"errors"
	"math"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use the second order accuracy central difference.
	Central
)

// ApproxSpec estimates the m × n Jacobian of a vector function by finite differences.
//
// The result is stored row-major: diff[i + j·n] = ∂yⱼ/∂xᵢ.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
type ApproxSpec struct {
	N, M int
	// Function of which to estimate the derivatives.
	// The argument x passed to this function is an n-vector and the result is stored in an m-vector y.
	Object func(x, y []float64)
	// Finite difference method to use.
	Method Method
	// Relative step size, the absolute step is h = RelStep · sign(x₀) · |x₀|.
	// When neither RelStep nor AbsStep is set, h = ε · sign(x₀) · max(1, |x₀|)
	// with ε = √eps for Forward and ∛eps for Central.
	RelStep float64
	// Absolute step size, takes precedence over RelStep.
	AbsStep float64

	f0, f1, f2 []float64
	step       []float64
}

// Check validates the dimensions and allocates the working space.
func (as *ApproxSpec) Check(x0, diff []float64) error {
	switch {
	case as.N <= 0 || as.M <= 0:
		return errors.New("negative dimensions")
	case as.Method != Forward && as.Method != Central:
		return errors.New("unknown method")
	case as.Object == nil:
		return errors.New("object function is required")
	case as.N != len(x0):
		return errors.New("invalid x0 dimensions")
	case as.N*as.M != len(diff):
		return errors.New("invalid diff dimensions")
	}

	if len(as.f0) != as.M {
		as.f0 = make([]float64, as.M)
		as.f1 = make([]float64, as.M)
		as.f2 = make([]float64, as.M)
	}
	if len(as.step) != as.N {
		as.step = make([]float64, as.N)
	}
	return nil
}

// Diff approximates the Jacobian at x0. The content of x0 is restored on return.
func (as *ApproxSpec) Diff(x0, diff []float64) error {
	if err := as.Check(x0, diff); err != nil {
		return err
	}
	as.absoluteStep(x0)
	if as.Method == Central {
		as.approxCentral(x0, diff)
	} else {
		as.approxForward(x0, diff)
	}
	return nil
}

func (as *ApproxSpec) absoluteStep(x0 []float64) {
	eps := sqrtEps
	if as.Method == Central {
		eps = cubeEps
	}

	for i, v := range x0 {
		s := as.AbsStep
		if s == 0 && as.RelStep != 0 {
			s = math.Copysign(as.RelStep, v) * math.Abs(v)
		}
		if s == 0 || (v+s)-v == 0 {
			s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		}
		if as.Method == Central {
			s = math.Abs(s)
		}
		as.step[i] = s
	}
}

func (as *ApproxSpec) approxForward(x0, df []float64) {
	n, f0, fx := as.N, as.f0, as.f1

	as.Object(x0, f0)
	for i, s := range as.step {
		t := x0[i]
		x0[i] = t + s
		as.Object(x0, fx)
		d := 1.0 / ((t + s) - t)
		for j := range f0 {
			df[i+j*n] = (fx[j] - f0[j]) * d
		}
		x0[i] = t
	}
}

func (as *ApproxSpec) approxCentral(x0, df []float64) {
	n, lo, hi := as.N, as.f1, as.f2

	for i, s := range as.step {
		t := x0[i]
		x0[i] = t - s
		as.Object(x0, lo)
		x0[i] = t + s
		as.Object(x0, hi)
		d := 1.0 / (2 * s)
		for j := range lo {
			df[i+j*n] = (hi[j] - lo[j]) * d
		}
		x0[i] = t
	}
}

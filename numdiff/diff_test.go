package numdiff

import (
	"math"
	"reflect"
	"testing"
)

func objV2(x, y []float64) {
	y[0] = x[0] * math.Sin(x[1])
	y[1] = x[1] * math.Cos(x[0])
	y[2] = math.Pow(x[0], 3) * math.Pow(x[1], -0.5)
}

func jacV2(x []float64) []float64 {
	return []float64{
		math.Sin(x[1]), x[0] * math.Cos(x[1]),
		-x[1] * math.Sin(x[0]), math.Cos(x[0]),
		3 * math.Pow(x[0], 2) * math.Pow(x[1], -0.5), -0.5 * math.Pow(x[0], 3) * math.Pow(x[1], -1.5),
	}
}

func objZero(x, y []float64) {
	y[0] = x[0] * x[1]
	y[1] = math.Cos(x[0] * x[1])
}

func jacZero(x []float64) []float64 {
	return []float64{
		x[1], x[0],
		-x[1] * math.Sin(x[0]*x[1]), -x[0] * math.Sin(x[0]*x[1]),
	}
}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py (test_absolute_step_sign)
func TestAbsoluteStep(t *testing.T) {

	x0 := []float64{1e-5, 0, 1, 1e5}
	dummy := make([]float64, 4)

	for method, eps := range map[Method]float64{
		Forward: sqrtEps,
		Central: cubeEps,
	} {
		as := ApproxSpec{N: 4, M: 1, Method: method, Object: func(x, y []float64) {}}
		if err := as.Check(x0, dummy); err != nil {
			t.Fatal(err)
		}
		as.absoluteStep(x0)

		expected := []float64{eps, eps, eps, eps * x0[3]}
		if !relativeEqual(as.step, expected, 1e-15) {
			t.Fatalf("unexpected step %v for method %d", as.step, method)
		}
	}

	// negative coordinates step backwards for forward differences only
	x0 = []float64{-2, -1e-3}
	dummy = make([]float64, 2)
	as := ApproxSpec{N: 2, M: 1, Method: Forward, Object: func(x, y []float64) {}, RelStep: 0.1}
	_ = as.Check(x0, dummy)
	as.absoluteStep(x0)
	if !relativeEqual(as.step, []float64{-0.2, -1e-4}, 1e-12) {
		t.Fatalf("unexpected forward step %v", as.step)
	}
	as.Method = Central
	as.absoluteStep(x0)
	if !relativeEqual(as.step, []float64{0.2, 1e-4}, 1e-12) {
		t.Fatalf("unexpected central step %v", as.step)
	}
}

func TestCheck(t *testing.T) {
	obj := func(x, y []float64) {}
	for _, as := range []ApproxSpec{
		{N: 0, M: 1, Object: obj},
		{N: 1, M: 1, Object: obj, Method: Method(7)},
		{N: 1, M: 1},
		{N: 2, M: 1, Object: obj},
	} {
		if err := as.Check([]float64{0}, []float64{0}); err == nil {
			t.Fatalf("expect check error for %+v", as)
		}
	}

	// x0 must be restored
	x0 := []float64{0.3, -0.7}
	as := ApproxSpec{N: 2, M: 3, Object: objV2, Method: Central}
	if err := as.Diff(x0, make([]float64, 6)); err != nil {
		t.Fatal(err)
	}
	if x0[0] != 0.3 || x0[1] != -0.7 {
		t.Fatal("x0 modified by Diff")
	}
}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py
// (TestApproxDerivativesDense.test_scalar_scalar)
func TestScalar(t *testing.T) {

	x0 := []float64{1.0}
	obj := func(x, y []float64) {
		y[0] = math.Sinh(x[0])
	}

	jac1 := []float64{math.Cosh(x0[0])}
	jac2 := []float64{0}
	jac3 := []float64{0}

	as := ApproxSpec{N: 1, M: 1, Method: Forward, Object: obj}
	if err := as.Diff(x0, jac2); err != nil {
		t.Fatal("approx scalar failed", err)
	}
	as = ApproxSpec{N: 1, M: 1, Method: Central, Object: obj}
	if err := as.Diff(x0, jac3); err != nil {
		t.Fatal("approx scalar failed", err)
	}
	if !relativeEqual(jac2, jac1, 1e-6) {
		t.Fatal("unexpected approx scalar result")
	}
	if !relativeEqual(jac3, jac1, 1e-9) {
		t.Fatal("unexpected approx scalar result")
	}

	as = ApproxSpec{N: 1, M: 1, Method: Forward, Object: obj, AbsStep: 1.49e-8}
	if err := as.Diff(x0, jac2); err != nil {
		t.Fatal("approx scalar failed", err)
	}
	as = ApproxSpec{N: 1, M: 1, Method: Central, Object: obj, AbsStep: 1.49e-8}
	if err := as.Diff(x0, jac3); err != nil {
		t.Fatal("approx scalar failed", err)
	}
	if !relativeEqual(jac2, jac1, 1e-6) {
		t.Fatal("unexpected approx scalar result")
	}
	if !relativeEqual(jac3, jac1, 1e-6) {
		t.Fatal("unexpected approx scalar result")
	}

}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py
// (TestApproxDerivativesDense.test_vector_vector)
func TestVector(t *testing.T) {

	x0 := []float64{-100.0, 0.2}
	obj := objV2
	jac1 := jacV2(x0)
	jac2 := make([]float64, 6)
	jac3 := make([]float64, 6)

	as := ApproxSpec{N: 2, M: 3, Method: Forward, Object: obj}
	if err := as.Diff(x0, jac2); err != nil {
		t.Fatal("approx vector failed", err)
	}
	as = ApproxSpec{N: 2, M: 3, Method: Central, Object: obj}
	if err := as.Diff(x0, jac3); err != nil {
		t.Fatal("approx vector failed", err)
	}
	if !relativeEqual(jac1, jac2, 1e-5) {
		t.Fatal("unexpected approx vector result")
	}
	if !relativeEqual(jac1, jac3, 1e-6) {
		t.Fatal("unexpected approx vector result")
	}

	as = ApproxSpec{N: 2, M: 3, Method: Forward, Object: obj, RelStep: 1e-4}
	if err := as.Diff(x0, jac2); err != nil {
		t.Fatal("approx vector failed", err)
	}
	as = ApproxSpec{N: 2, M: 3, Method: Central, Object: obj, RelStep: 1e-4}
	if err := as.Diff(x0, jac3); err != nil {
		t.Fatal("approx vector failed", err)
	}
	if !relativeEqual(jac1, jac2, 1e-2) {
		t.Fatal("unexpected approx vector result")
	}
	if !relativeEqual(jac1, jac3, 1e-4) {
		t.Fatal("unexpected approx scalar-vec result")
	}

}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py
// (TestApproxDerivativesDense.test_check_derivative)
func TestAccuracy(t *testing.T) {

	checkDerivative := func(
		n, m int, x0 []float64,
		fun func(x, y []float64),
		jac func(x []float64) []float64) float64 {

		jacTest := jac(x0)
		jacDiff := make([]float64, n*m)

		approx := ApproxSpec{N: n, M: m, Method: Central, Object: fun}
		if err := approx.Diff(x0, jacDiff); err != nil {
			panic(err)
		}

		maxErr := 0.0
		for i := 0; i < n*m; i++ {
			absErr := math.Abs(jacTest[i] - jacDiff[i])
			absErr /= math.Max(1, math.Abs(jacDiff[i]))
			if absErr > maxErr {
				maxErr = absErr
			}
		}
		return maxErr
	}

	x0 := []float64{-10.0, 10}
	acc := checkDerivative(2, 3, x0, objV2, jacV2)
	if acc > 1e-9 {
		t.Fatal("approx accuracy not enough")
	}

	x0 = []float64{0, 0}
	acc = checkDerivative(2, 2, x0, objZero, jacZero)
	if acc > 0 {
		t.Fatal("approx accuracy not enough")
	}

}

func relativeEqual[T float64 | []float64](a, b T, tol float64) bool {
	equalWithinRel := func(a, b float64) bool {
		if a == b {
			return true
		}
		delta := math.Abs(a - b)
		return delta/math.Max(math.Abs(a), math.Abs(b)) <= tol
	}
	switch reflect.TypeOf((*T)(nil)).Elem().Kind() {
	case reflect.Float64:
		return equalWithinRel(any(a).(float64), any(b).(float64))
	case reflect.Slice:
		a, b := any(a).([]float64), any(b).([]float64)
		if len(a) != len(b) {
			return false
		}
		for i, a := range a {
			if !equalWithinRel(a, b[i]) {
				return false
			}
		}
		return true
	default:
		panic("unknown type")
	}
}

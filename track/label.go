// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package track

import "math"

// Label classifies where a track comes from.
// The numeric values match the flavour tagging truth origin codes.
type Label int8

const (
	PU Label = iota
	Fake
	Primary
	FromB
	FromBC
	FromC
	FromTau
	OtherSecondary
	// ND marks an undefined origin.
	ND
)

// NumClasses is the number of defined origin classes, i.e. the length of a predicted probability vector.
const NumClasses = int(ND)

var labelNames = [...]string{"PU", "Fake", "Primary", "FromB", "FromBC", "FromC", "FromTau", "OtherSecondary", "ND"}

// LabelFromCode maps a dataset origin code onto a Label. Codes outside 0..7 are ND.
func LabelFromCode(code int) Label {
	if code < 0 || code >= NumClasses {
		return ND
	}
	return Label(code)
}

// LabelFromScores returns the class with the highest probability, ND for a short or NaN vector.
func LabelFromScores(p []float64) Label {
	if len(p) < NumClasses {
		return ND
	}
	best := ND
	for i, v := range p[:NumClasses] {
		if !math.IsNaN(v) && (best == ND || v > p[best]) {
			best = Label(i)
		}
	}
	return best
}

func (l Label) String() string {
	if l < 0 || l > ND {
		return labelNames[ND]
	}
	return labelNames[l]
}

// HeavyFlavour reports whether the label marks a b- or c-hadron decay product.
func (l Label) HeavyFlavour() bool {
	return l == FromB || l == FromBC || l == FromC
}

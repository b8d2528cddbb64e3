// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package track

import "fmt"

type invalidParamError struct {
	name  string
	value float64
}

func (e *invalidParamError) Error() string {
	return fmt.Sprintf("invalid track parameter %s: %v", e.name, e.value)
}

type directionNormError struct {
	norm float64
}

func (e *directionNormError) Error() string {
	return fmt.Sprintf("track direction must be a unit vector, got norm %v", e.norm)
}

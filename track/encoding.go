// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package track

import (
	"bytes"
	"encoding/gob"

	"github.com/curioloop/svfit/geom"
)

// wireTrack is the serialized form of a Track.
type wireTrack struct {
	Pt     float64
	Origin geom.Vec3
	Dir    geom.Vec3
	Cov    geom.Diag6
	Labels Labels
}

// GobEncode implements gob.GobEncoder.
func (t Track) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(wireTrack{t.pt, t.origin, t.dir, t.cov, t.labels})
	return buf.Bytes(), err
}

// GobDecode implements gob.GobDecoder. The decoded line is validated like FromLine.
func (t *Track) GobDecode(data []byte) error {
	var w wireTrack
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	tr, err := FromLine(w.Origin, w.Dir, w.Cov, w.Labels)
	if err != nil {
		return err
	}
	tr.pt = w.Pt
	*t = tr
	return nil
}

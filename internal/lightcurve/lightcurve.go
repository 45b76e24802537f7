// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package lightcurve holds multi-band flux measurements of astronomical
// objects, and reads, writes and simulates them.
package lightcurve

import (
	"github.com/rotisserie/eris"
	"github.com/valyala/fastrand"
)

var ErrInvalid = eris.New("lightcurve: invalid light curve")

// A single flux measurement
type Observation struct {
	ID    string  `csv:"id,omitempty" json:"id,omitempty"`
	T     float64 `csv:"t" json:"t"`
	Flux  float64 `csv:"flux" json:"flux"`
	Sigma float64 `csv:"sigma" json:"sigma"`
	Band  string  `csv:"band" json:"band"`
}

// Flux measurements of one object, as parallel arrays
type LightCurve struct {
	ID    string    `json:"id,omitempty"`
	T     []float64 `json:"t"`
	Flux  []float64 `json:"flux"`
	Sigma []float64 `json:"sigma"`
	Band  []string  `json:"band"`
}

func (lc *LightCurve) Len() int { return len(lc.T) }

func (lc *LightCurve) Append(o Observation) {
	lc.T = append(lc.T, o.T)
	lc.Flux = append(lc.Flux, o.Flux)
	lc.Sigma = append(lc.Sigma, o.Sigma)
	lc.Band = append(lc.Band, o.Band)
}

// The i-th observation
func (lc *LightCurve) Observation(i int) Observation {
	return Observation{ID: lc.ID, T: lc.T[i], Flux: lc.Flux[i], Sigma: lc.Sigma[i], Band: lc.Band[i]}
}

// Checks the arrays have equal, non-zero length
func (lc *LightCurve) Validate() error {
	n := len(lc.T)
	if len(lc.Flux) != n || len(lc.Sigma) != n || len(lc.Band) != n {
		return eris.Wrapf(ErrInvalid, "%q: %d times, %d fluxes, %d sigmas, %d bands",
			lc.ID, n, len(lc.Flux), len(lc.Sigma), len(lc.Band))
	}
	if n == 0 {
		return eris.Wrapf(ErrInvalid, "%q: no observations", lc.ID)
	}
	return nil
}

// Groups observations into light curves by ID, in order of first appearance
func Group(obs []Observation) []*LightCurve {
	var lcs []*LightCurve
	byID := map[string]*LightCurve{}
	for _, o := range obs {
		lc, ok := byID[o.ID]
		if !ok {
			lc = &LightCurve{ID: o.ID}
			byID[o.ID] = lc
			lcs = append(lcs, lc)
		}
		lc.Append(o)
	}
	return lcs
}

// Flattens light curves into observations
func Flatten(lcs []*LightCurve) []Observation {
	var obs []Observation
	for _, lc := range lcs {
		for i := range lc.T {
			obs = append(obs, lc.Observation(i))
		}
	}
	return obs
}

// Randomly permutes the observations in place
func (lc *LightCurve) Shuffle(rng *fastrand.RNG) {
	for i := len(lc.T) - 1; i > 0; i-- {
		j := int(rng.Uint32n(uint32(i + 1)))
		lc.T[i], lc.T[j] = lc.T[j], lc.T[i]
		lc.Flux[i], lc.Flux[j] = lc.Flux[j], lc.Flux[i]
		lc.Sigma[i], lc.Sigma[j] = lc.Sigma[j], lc.Sigma[i]
		lc.Band[i], lc.Band[j] = lc.Band[j], lc.Band[i]
	}
}
